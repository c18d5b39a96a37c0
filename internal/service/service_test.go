package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/forkplate/backend/internal/models"
	"github.com/forkplate/backend/internal/testhelpers"
	"github.com/forkplate/backend/internal/types"
)

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedIngredient(t *testing.T, db *gorm.DB, name, unit string) models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, db.Create(&ingredient).Error)
	return ingredient
}

func seedTag(t *testing.T, db *gorm.DB, name, slug string) models.Tag {
	t.Helper()
	// The color column is varchar(7); derive a unique hex-sized value.
	color := "#" + (slug + "000000")[:6]
	tag := models.Tag{Name: name, Color: color, Slug: slug}
	require.NoError(t, db.Create(&tag).Error)
	return tag
}

// recipeFixture bundles the rows most recipe tests need.
type recipeFixture struct {
	db     *gorm.DB
	author models.User
	flour  models.Ingredient
	egg    models.Ingredient
	tag    models.Tag
}

func newRecipeFixture(t *testing.T) recipeFixture {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	return recipeFixture{
		db:     db,
		author: seedUser(t, db, "author"),
		flour:  seedIngredient(t, db, "flour", "g"),
		egg:    seedIngredient(t, db, "egg", "pcs"),
		tag:    seedTag(t, db, "Breakfast", "breakfast"),
	}
}

func (f recipeFixture) createRequest() *types.CreateRecipeRequest {
	return &types.CreateRecipeRequest{
		Name:        "Pancakes",
		Image:       "https://example.com/pancakes.png",
		Text:        "Mix and fry.",
		CookingTime: 15,
		Tags:        []uuid.UUID{f.tag.ID},
		Ingredients: []types.IngredientAmount{
			{ID: f.flour.ID, Amount: 150},
			{ID: f.egg.ID, Amount: 1},
		},
	}
}
