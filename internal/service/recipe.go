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

// RecipeService owns the recipe aggregate: the authoring transaction, the
// favorite/cart toggles and filtered listing.
type RecipeService struct {
	db *gorm.DB
}

func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// RecipeFilter narrows a recipe listing. Filters combine with AND; TagSlugs
// match any of the given slugs. FavoritedBy/InCartOf are nil for anonymous
// requesters, which turns those filters into no-ops.
type RecipeFilter struct {
	TagSlugs    []string
	AuthorID    *uuid.UUID
	FavoritedBy *uuid.UUID
	InCartOf    *uuid.UUID
	Offset      int
	Limit       int
}

// Create validates and persists a recipe with its tag set and ingredient
// associations in one transaction. Partial writes are never observable.
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, req *types.CreateRecipeRequest) (uuid.UUID, error) {
	if req.CookingTime < 1 {
		return uuid.Nil, validationf("cooking time must be at least 1 minute")
	}

	var recipeID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := validateIngredients(tx, req.Ingredients)
		if err != nil {
			return err
		}
		tags, err := resolveTags(tx, req.Tags)
		if err != nil {
			return err
		}

		recipe := models.Recipe{
			AuthorID:    authorID,
			Name:        req.Name,
			Image:       req.Image,
			Text:        req.Text,
			CookingTime: req.CookingTime,
		}
		if err := tx.Omit("Tags", "Ingredients").Create(&recipe).Error; err != nil {
			return err
		}
		if len(tags) > 0 {
			if err := tx.Model(&recipe).Association("Tags").Append(tags); err != nil {
				return err
			}
		}
		if err := createIngredientRows(tx, recipe.ID, rows); err != nil {
			return err
		}

		recipeID = recipe.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return recipeID, nil
}

// Update applies a partial update. Nil request fields leave stored values
// untouched; a present tag or ingredient list replaces the whole set.
func (s *RecipeService) Update(ctx context.Context, recipeID, requesterID uuid.UUID, req *types.UpdateRecipeRequest) error {
	if req.CookingTime != nil && *req.CookingTime < 1 {
		return validationf("cooking time must be at least 1 minute")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.First(&recipe, "id = ?", recipeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("recipe %s: %w", recipeID, ErrNotFound)
			}
			return err
		}
		if recipe.AuthorID != requesterID {
			return ErrForbidden
		}

		if req.Name != nil {
			recipe.Name = *req.Name
		}
		if req.Image != nil {
			recipe.Image = *req.Image
		}
		if req.Text != nil {
			recipe.Text = *req.Text
		}
		if req.CookingTime != nil {
			recipe.CookingTime = *req.CookingTime
		}
		if err := tx.Omit("Tags", "Ingredients").Save(&recipe).Error; err != nil {
			return err
		}

		if req.Tags != nil {
			tags, err := resolveTags(tx, *req.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
				return err
			}
		}

		if req.Ingredients != nil {
			rows, err := validateIngredients(tx, *req.Ingredients)
			if err != nil {
				return err
			}
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
				return err
			}
			if err := createIngredientRows(tx, recipe.ID, rows); err != nil {
				return err
			}
		}

		return nil
	})
}

// Delete removes a recipe and cascades to its associations and any
// favorite/cart rows referencing it.
func (s *RecipeService) Delete(ctx context.Context, recipeID, requesterID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.First(&recipe, "id = ?", recipeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("recipe %s: %w", recipeID, ErrNotFound)
			}
			return err
		}
		if recipe.AuthorID != requesterID {
			return ErrForbidden
		}

		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.FavoriteRecipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.ShoppingCart{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
}

// Get returns the full recipe aggregate with the per-request derived flags.
// requesterID is nil for anonymous requesters.
func (s *RecipeService) Get(ctx context.Context, recipeID uuid.UUID, requesterID *uuid.UUID) (*types.RecipeResponse, error) {
	var recipe models.Recipe
	err := s.preloaded(ctx).First(&recipe, "recipes.id = ?", recipeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %s: %w", recipeID, ErrNotFound)
		}
		return nil, err
	}
	resp, err := s.buildResponse(ctx, &recipe, requesterID)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// List returns a page of recipes (most recent first) plus the total count
// matching the filter.
func (s *RecipeService) List(ctx context.Context, filter RecipeFilter, requesterID *uuid.UUID) ([]types.RecipeResponse, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Recipe{})

	if len(filter.TagSlugs) > 0 {
		query = query.Where("recipes.id IN (?)",
			s.db.Table("recipe_tags").
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", filter.TagSlugs))
	}
	if filter.AuthorID != nil {
		query = query.Where("recipes.author_id = ?", *filter.AuthorID)
	}
	if filter.FavoritedBy != nil {
		query = query.Where("recipes.id IN (?)",
			s.db.Model(&models.FavoriteRecipe{}).Select("recipe_id").Where("user_id = ?", *filter.FavoritedBy))
	}
	if filter.InCartOf != nil {
		query = query.Where("recipes.id IN (?)",
			s.db.Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", *filter.InCartOf))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	page := s.withPreloads(query).Order("recipes.created_at DESC")
	if filter.Limit > 0 {
		page = page.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := page.Find(&recipes).Error; err != nil {
		return nil, 0, err
	}

	responses := make([]types.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		resp, err := s.buildResponse(ctx, &recipes[i], requesterID)
		if err != nil {
			return nil, 0, err
		}
		responses = append(responses, resp)
	}
	return responses, total, nil
}

// AddFavorite records a favorite membership. A second add for the same pair
// fails with ErrConflict; the unique index backstops concurrent adds.
func (s *RecipeService) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) (*types.RecipeSummary, error) {
	summary, err := s.recipeSummary(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	exists, err := s.membershipExists(ctx, &models.FavoriteRecipe{}, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("recipe already favorited: %w", ErrConflict)
	}
	row := models.FavoriteRecipe{UserID: userID, RecipeID: recipeID}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("recipe already favorited: %w", ErrConflict)
		}
		return nil, err
	}
	return summary, nil
}

func (s *RecipeService) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&models.FavoriteRecipe{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recipe is not favorited: %w", ErrNotFound)
	}
	return nil
}

// AddToCart records a shopping-cart membership, same toggle rules as
// AddFavorite.
func (s *RecipeService) AddToCart(ctx context.Context, userID, recipeID uuid.UUID) (*types.RecipeSummary, error) {
	summary, err := s.recipeSummary(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	exists, err := s.membershipExists(ctx, &models.ShoppingCart{}, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("recipe already in shopping cart: %w", ErrConflict)
	}
	row := models.ShoppingCart{UserID: userID, RecipeID: recipeID}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("recipe already in shopping cart: %w", ErrConflict)
		}
		return nil, err
	}
	return summary, nil
}

func (s *RecipeService) RemoveFromCart(ctx context.Context, userID, recipeID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&models.ShoppingCart{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recipe is not in shopping cart: %w", ErrNotFound)
	}
	return nil
}

func (s *RecipeService) recipeSummary(ctx context.Context, recipeID uuid.UUID) (*types.RecipeSummary, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %s: %w", recipeID, ErrNotFound)
		}
		return nil, err
	}
	return &types.RecipeSummary{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	}, nil
}

func (s *RecipeService) membershipExists(ctx context.Context, model interface{}, userID, recipeID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	return count > 0, err
}

func (s *RecipeService) preloaded(ctx context.Context) *gorm.DB {
	return s.withPreloads(s.db.WithContext(ctx).Model(&models.Recipe{}))
}

func (s *RecipeService) withPreloads(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("recipe_ingredients.created_at")
		}).
		Preload("Ingredients.Ingredient")
}

func (s *RecipeService) buildResponse(ctx context.Context, recipe *models.Recipe, requesterID *uuid.UUID) (types.RecipeResponse, error) {
	resp := types.RecipeResponse{
		ID: recipe.ID,
		Author: types.UserResponse{
			ID:        recipe.Author.ID,
			Email:     recipe.Author.Email,
			Username:  recipe.Author.Username,
			FirstName: recipe.Author.FirstName,
			LastName:  recipe.Author.LastName,
		},
		Name:        recipe.Name,
		Image:       recipe.Image,
		Text:        recipe.Text,
		CookingTime: recipe.CookingTime,
		CreatedAt:   recipe.CreatedAt,
		Tags:        make([]types.TagResponse, 0, len(recipe.Tags)),
		Ingredients: make([]types.RecipeIngredientResponse, 0, len(recipe.Ingredients)),
	}
	for _, tag := range recipe.Tags {
		resp.Tags = append(resp.Tags, types.TagResponse{
			ID:    tag.ID,
			Name:  tag.Name,
			Color: tag.Color,
			Slug:  tag.Slug,
		})
	}
	for _, row := range recipe.Ingredients {
		resp.Ingredients = append(resp.Ingredients, types.RecipeIngredientResponse{
			ID:              row.IngredientID,
			Name:            row.Ingredient.Name,
			MeasurementUnit: row.Ingredient.MeasurementUnit,
			Amount:          row.Amount,
		})
	}

	if requesterID != nil {
		favorited, err := s.membershipExists(ctx, &models.FavoriteRecipe{}, *requesterID, recipe.ID)
		if err != nil {
			return types.RecipeResponse{}, err
		}
		resp.IsFavorited = favorited

		inCart, err := s.membershipExists(ctx, &models.ShoppingCart{}, *requesterID, recipe.ID)
		if err != nil {
			return types.RecipeResponse{}, err
		}
		resp.IsInShoppingCart = inCart

		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Follow{}).
			Where("user_id = ? AND author_id = ?", *requesterID, recipe.AuthorID).
			Count(&count).Error; err != nil {
			return types.RecipeResponse{}, err
		}
		resp.Author.IsSubscribed = count > 0
	}
	return resp, nil
}

// validateIngredients checks the authoring invariants and resolves each
// ingredient id, returning association rows ready for insertion.
func validateIngredients(tx *gorm.DB, items []types.IngredientAmount) ([]models.RecipeIngredient, error) {
	if len(items) == 0 {
		return nil, validationf("recipe needs at least one ingredient")
	}
	seen := make(map[uuid.UUID]bool, len(items))
	rows := make([]models.RecipeIngredient, 0, len(items))
	for _, item := range items {
		if item.Amount < 1 {
			return nil, validationf("ingredient amount must be at least 1")
		}
		if seen[item.ID] {
			return nil, validationf("ingredient %s listed more than once", item.ID)
		}
		seen[item.ID] = true

		var ingredient models.Ingredient
		if err := tx.First(&ingredient, "id = ?", item.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("ingredient %s: %w", item.ID, ErrNotFound)
			}
			return nil, err
		}
		rows = append(rows, models.RecipeIngredient{
			IngredientID: ingredient.ID,
			Amount:       item.Amount,
		})
	}
	return rows, nil
}

// resolveTags looks up tags by id; tags are never created here.
func resolveTags(tx *gorm.DB, ids []uuid.UUID) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(ids))
	for _, id := range ids {
		var tag models.Tag
		if err := tx.First(&tag, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("tag %s: %w", id, ErrNotFound)
			}
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// createIngredientRows inserts association rows one at a time so their
// creation order matches the payload order.
func createIngredientRows(tx *gorm.DB, recipeID uuid.UUID, rows []models.RecipeIngredient) error {
	for i := range rows {
		rows[i].RecipeID = recipeID
		if err := tx.Create(&rows[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
