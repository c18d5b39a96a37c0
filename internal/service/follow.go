package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkplate/backend/internal/models"
	"github.com/forkplate/backend/internal/types"
)

// FollowService manages user-to-author subscription edges.
type FollowService struct {
	db *gorm.DB
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{db: db}
}

// Follow creates a subscription edge. Self-follows are rejected and a
// duplicate edge is a conflict; the composite unique index backstops
// concurrent follows.
func (s *FollowService) Follow(ctx context.Context, userID, authorID uuid.UUID) error {
	if userID == authorID {
		return validationf("cannot subscribe to yourself")
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, "id = ?", authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s: %w", authorID, ErrNotFound)
		}
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("already subscribed to this user: %w", ErrConflict)
	}

	edge := models.Follow{UserID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Create(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("already subscribed to this user: %w", ErrConflict)
		}
		return err
	}
	return nil
}

func (s *FollowService) Unfollow(ctx context.Context, userID, authorID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("not subscribed to this user: %w", ErrNotFound)
	}
	return nil
}

// Subscriptions returns every author the user follows, newest subscription
// first, each annotated with up to recipeLimit of the author's most recent
// recipes and the author's total recipe count. A nil recipeLimit returns all
// recipes.
func (s *FollowService) Subscriptions(ctx context.Context, userID uuid.UUID, recipeLimit *int) ([]types.SubscriptionResponse, error) {
	var edges []models.Follow
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&edges).Error; err != nil {
		return nil, err
	}

	subs := make([]types.SubscriptionResponse, 0, len(edges))
	for _, edge := range edges {
		var author models.User
		if err := s.db.WithContext(ctx).First(&author, "id = ?", edge.AuthorID).Error; err != nil {
			return nil, err
		}

		query := s.db.WithContext(ctx).
			Where("author_id = ?", author.ID).
			Order("created_at DESC")
		if recipeLimit != nil {
			query = query.Limit(*recipeLimit)
		}
		var recipes []models.Recipe
		if err := query.Find(&recipes).Error; err != nil {
			return nil, err
		}

		var total int64
		if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
			Where("author_id = ?", author.ID).
			Count(&total).Error; err != nil {
			return nil, err
		}

		sub := types.SubscriptionResponse{
			ID:           author.ID,
			Email:        author.Email,
			Username:     author.Username,
			FirstName:    author.FirstName,
			LastName:     author.LastName,
			IsSubscribed: true,
			Recipes:      make([]types.RecipeSummary, 0, len(recipes)),
			RecipesCount: total,
		}
		for _, recipe := range recipes {
			sub.Recipes = append(sub.Recipes, types.RecipeSummary{
				ID:          recipe.ID,
				Name:        recipe.Name,
				Image:       recipe.Image,
				CookingTime: recipe.CookingTime,
			})
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// IsSubscribed reports whether user follows author. False for the zero user
// id, so anonymous requesters short-circuit to false.
func (s *FollowService) IsSubscribed(ctx context.Context, userID, authorID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	return count > 0, err
}
