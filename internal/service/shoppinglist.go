package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkplate/backend/internal/models"
	"github.com/forkplate/backend/internal/types"
)

// ShoppingListService folds every cart recipe's ingredient quantities into one
// per-unit total list.
type ShoppingListService struct {
	db *gorm.DB
}

func NewShoppingListService(db *gorm.DB) *ShoppingListService {
	return &ShoppingListService{db: db}
}

// Build aggregates the user's cart. Amounts are summed per ingredient name in
// the order names are first encountered. An occurrence whose measurement unit
// differs from the one first seen for that name is never summed into it; it
// opens its own line instead.
func (s *ShoppingListService) Build(ctx context.Context, userID uuid.UUID) ([]types.ShoppingListItem, error) {
	var carts []models.ShoppingCart
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&carts).Error; err != nil {
		return nil, err
	}

	items := make([]types.ShoppingListItem, 0)
	index := make(map[string]int)
	for _, cart := range carts {
		var rows []models.RecipeIngredient
		if err := s.db.WithContext(ctx).
			Preload("Ingredient").
			Where("recipe_id = ?", cart.RecipeID).
			Order("created_at").
			Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			key := row.Ingredient.Name
			if pos, ok := index[key]; ok && items[pos].MeasurementUnit != row.Ingredient.MeasurementUnit {
				key = row.Ingredient.Name + "\x00" + row.Ingredient.MeasurementUnit
			}
			if pos, ok := index[key]; ok {
				items[pos].Amount += row.Amount
				continue
			}
			index[key] = len(items)
			items = append(items, types.ShoppingListItem{
				Name:            row.Ingredient.Name,
				MeasurementUnit: row.Ingredient.MeasurementUnit,
				Amount:          row.Amount,
			})
		}
	}
	return items, nil
}

// Render formats the aggregated list as a flat text document, one line per
// ingredient. An empty list renders as empty content.
func (s *ShoppingListService) Render(items []types.ShoppingListItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s (%s) - %d\n", item.Name, item.MeasurementUnit, item.Amount)
	}
	return b.String()
}
