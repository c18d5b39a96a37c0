package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkplate/backend/internal/models"
	"github.com/forkplate/backend/internal/service"
	"github.com/forkplate/backend/internal/types"
)

func TestCreateRecipe(t *testing.T) {
	f := newRecipeFixture(t)
	svc := service.NewRecipeService(f.db)
	ctx := context.Background()

	id, err := svc.Create(ctx, f.author.ID, f.createRequest())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	resp, err := svc.Get(ctx, id, nil)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", resp.Name)
	assert.Equal(t, 15, resp.CookingTime)
	assert.Equal(t, f.author.ID, resp.Author.ID)
	require.Len(t, resp.Tags, 1)
	assert.Equal(t, "breakfast", resp.Tags[0].Slug)
	require.Len(t, resp.Ingredients, 2)
	assert.Equal(t, "flour", resp.Ingredients[0].Name)
	assert.Equal(t, 150, resp.Ingredients[0].Amount)
	assert.Equal(t, "egg", resp.Ingredients[1].Name)
	assert.False(t, resp.IsFavorited)
	assert.False(t, resp.IsInShoppingCart)
}

func TestCreateRecipeValidation(t *testing.T) {
	f := newRecipeFixture(t)
	svc := service.NewRecipeService(f.db)
	ctx := context.Background()

	t.Run("cooking time below one", func(t *testing.T) {
		req := f.createRequest()
		req.CookingTime = 0
		_, err := svc.Create(ctx, f.author.ID, req)
		require.Error(t, err)
		assert.True(t, service.IsValidation(err))
	})

	t.Run("cooking time of one is accepted", func(t *testing.T) {
		req := f.createRequest()
		req.CookingTime = 1
		_, err := svc.Create(ctx, f.author.ID, req)
		require.NoError(t, err)
	})

	t.Run("empty ingredient list", func(t *testing.T) {
		req := f.createRequest()
		req.Ingredients = nil
		_, err := svc.Create(ctx, f.author.ID, req)
		require.Error(t, err)
		assert.True(t, service.IsValidation(err))
	})

	t.Run("zero amount", func(t *testing.T) {
		req := f.createRequest()
		req.Ingredients[0].Amount = 0
		_, err := svc.Create(ctx, f.author.ID, req)
		require.Error(t, err)
		assert.True(t, service.IsValidation(err))
	})

	t.Run("duplicate ingredient", func(t *testing.T) {
		req := f.createRequest()
		req.Ingredients = []types.IngredientAmount{
			{ID: f.flour.ID, Amount: 100},
			{ID: f.flour.ID, Amount: 200},
		}
		_, err := svc.Create(ctx, f.author.ID, req)
		require.Error(t, err)
		assert.True(t, service.IsValidation(err))
	})

	t.Run("unknown ingredient", func(t *testing.T) {
		req := f.createRequest()
		req.Ingredients[0].ID = uuid.New()
		_, err := svc.Create(ctx, f.author.ID, req)
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("unknown tag", func(t *testing.T) {
		req := f.createRequest()
		req.Tags = []uuid.UUID{uuid.New()}
		_, err := svc.Create(ctx, f.author.ID, req)
		require.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestCreateRecipeFailureWritesNothing(t *testing.T) {
	f := newRecipeFixture(t)
	svc := service.NewRecipeService(f.db)
	ctx := context.Background()

	req := f.createRequest()
	req.Ingredients = append(req.Ingredients, types.IngredientAmount{ID: uuid.New(), Amount: 5})
	_, err := svc.Create(ctx, f.author.ID, req)
	require.Error(t, err)

	var recipes, rows int64
	require.NoError(t, f.db.Model(&models.Recipe{}).Count(&recipes).Error)
	require.NoError(t, f.db.Model(&models.RecipeIngredient{}).Count(&rows).Error)
	assert.Zero(t, recipes)
	assert.Zero(t, rows)
}

func TestUpdateRecipe(t *testing.T) {
	f := newRecipeFixture(t)
	svc := service.NewRecipeService(f.db)
	ctx := context.Background()

	id, err := svc.Create(ctx, f.author.ID, f.createRequest())
	require.NoError(t, err)

	t.Run("partial update leaves other fields untouched", func(t *testing.T) {
		name := "Thin Pancakes"
		err := svc.Update(ctx, id, f.author.ID, &types.UpdateRecipeRequest{Name: &name})
		require.NoError(t, err)

		resp, err := svc.Get(ctx, id, nil)
		require.NoError(t, err)
		assert.Equal(t, "Thin Pancakes", resp.Name)
		assert.Equal(t, 15, resp.CookingTime)
		assert.Len(t, resp.Ingredients, 2)
	})

	t.Run("ingredient list replaces the whole set", func(t *testing.T) {
		ingredients := []types.IngredientAmount{{ID: f.egg.ID, Amount: 3}}
		err := svc.Update(ctx, id, f.author.ID, &types.UpdateRecipeRequest{Ingredients: &ingredients})
		require.NoError(t, err)

		resp, err := svc.Get(ctx, id, nil)
		require.NoError(t, err)
		require.Len(t, resp.Ingredients, 1)
		assert.Equal(t, "egg", resp.Ingredients[0].Name)
		assert.Equal(t, 3, resp.Ingredients[0].Amount)

		var rows int64
		require.NoError(t, f.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", id).Count(&rows).Error)
		assert.EqualValues(t, 1, rows)
	})

	t.Run("non-author is rejected", func(t *testing.T) {
		other := seedUser(t, f.db, "intruder")
		name := "Hijacked"
		err := svc.Update(ctx, id, other.ID, &types.UpdateRecipeRequest{Name: &name})
		require.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("unknown recipe", func(t *testing.T) {
		name := "Ghost"
		err := svc.Update(ctx, uuid.New(), f.author.ID, &types.UpdateRecipeRequest{Name: &name})
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("invalid cooking time", func(t *testing.T) {
		zero := 0
		err := svc.Update(ctx, id, f.author.ID, &types.UpdateRecipeRequest{CookingTime: &zero})
		require.Error(t, err)
		assert.True(t, service.IsValidation(err))
	})
}

func TestDeleteRecipe(t *testing.T) {
	f := newRecipeFixture(t)
	svc := service.NewRecipeService(f.db)
	ctx := context.Background()

	id, err := svc.Create(ctx, f.author.ID, f.createRequest())
	require.NoError(t, err)

	reader := seedUser(t, f.db, "reader")
	_, err = svc.AddFavorite(ctx, reader.ID, id)
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, reader.ID, id)
	require.NoError(t, err)

	t.Run("non-author is rejected", func(t *testing.T) {
		require.ErrorIs(t, svc.Delete(ctx, id, reader.ID), service.ErrForbidden)
	})

	t.Run("author delete cascades", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, id, f.author.ID))

		_, err := svc.Get(ctx, id, nil)
		require.ErrorIs(t, err, service.ErrNotFound)

		var favorites, carts, rows int64
		require.NoError(t, f.db.Model(&models.FavoriteRecipe{}).Where("recipe_id = ?", id).Count(&favorites).Error)
		require.NoError(t, f.db.Model(&models.ShoppingCart{}).Where("recipe_id = ?", id).Count(&carts).Error)
		require.NoError(t, f.db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", id).Count(&rows).Error)
		assert.Zero(t, favorites)
		assert.Zero(t, carts)
		assert.Zero(t, rows)
	})
}

func TestListRecipes(t *testing.T) {
	f := newRecipeFixture(t)
	svc := service.NewRecipeService(f.db)
	ctx := context.Background()

	dinner := seedTag(t, f.db, "Dinner", "dinner")
	other := seedUser(t, f.db, "other")

	first, err := svc.Create(ctx, f.author.ID, f.createRequest())
	require.NoError(t, err)

	req := f.createRequest()
	req.Name = "Omelette"
	req.Tags = []uuid.UUID{dinner.ID}
	second, err := svc.Create(ctx, other.ID, req)
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		results, total, err := svc.List(ctx, service.RecipeFilter{Limit: 10}, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, results, 2)
		assert.Equal(t, second, results[0].ID)
		assert.Equal(t, first, results[1].ID)
	})

	t.Run("tag filter matches any slug", func(t *testing.T) {
		results, total, err := svc.List(ctx, service.RecipeFilter{TagSlugs: []string{"dinner"}, Limit: 10}, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, second, results[0].ID)

		_, total, err = svc.List(ctx, service.RecipeFilter{TagSlugs: []string{"dinner", "breakfast"}, Limit: 10}, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})

	t.Run("author filter", func(t *testing.T) {
		results, total, err := svc.List(ctx, service.RecipeFilter{AuthorID: &f.author.ID, Limit: 10}, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, first, results[0].ID)
	})

	t.Run("favorited filter", func(t *testing.T) {
		_, err := svc.AddFavorite(ctx, other.ID, first)
		require.NoError(t, err)

		results, total, err := svc.List(ctx, service.RecipeFilter{FavoritedBy: &other.ID, Limit: 10}, &other.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, results, 1)
		assert.Equal(t, first, results[0].ID)
		assert.True(t, results[0].IsFavorited)
	})

	t.Run("pagination", func(t *testing.T) {
		results, total, err := svc.List(ctx, service.RecipeFilter{Offset: 1, Limit: 1}, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, results, 1)
		assert.Equal(t, first, results[0].ID)
	})
}

func TestFavoriteToggle(t *testing.T) {
	f := newRecipeFixture(t)
	svc := service.NewRecipeService(f.db)
	ctx := context.Background()

	id, err := svc.Create(ctx, f.author.ID, f.createRequest())
	require.NoError(t, err)
	reader := seedUser(t, f.db, "reader")

	summary, err := svc.AddFavorite(ctx, reader.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", summary.Name)

	_, err = svc.AddFavorite(ctx, reader.ID, id)
	require.ErrorIs(t, err, service.ErrConflict)

	_, err = svc.AddFavorite(ctx, reader.ID, uuid.New())
	require.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, svc.RemoveFavorite(ctx, reader.ID, id))
	require.ErrorIs(t, svc.RemoveFavorite(ctx, reader.ID, id), service.ErrNotFound)
}

func TestCartToggle(t *testing.T) {
	f := newRecipeFixture(t)
	svc := service.NewRecipeService(f.db)
	ctx := context.Background()

	id, err := svc.Create(ctx, f.author.ID, f.createRequest())
	require.NoError(t, err)
	reader := seedUser(t, f.db, "reader")

	summary, err := svc.AddToCart(ctx, reader.ID, id)
	require.NoError(t, err)
	assert.Equal(t, id, summary.ID)

	_, err = svc.AddToCart(ctx, reader.ID, id)
	require.ErrorIs(t, err, service.ErrConflict)

	require.NoError(t, svc.RemoveFromCart(ctx, reader.ID, id))
	require.ErrorIs(t, svc.RemoveFromCart(ctx, reader.ID, id), service.ErrNotFound)
}

func TestGetSurfacesMembershipLookupFailure(t *testing.T) {
	f := newRecipeFixture(t)
	svc := service.NewRecipeService(f.db)
	ctx := context.Background()

	id, err := svc.Create(ctx, f.author.ID, f.createRequest())
	require.NoError(t, err)
	reader := seedUser(t, f.db, "reader")

	// A broken favorites store must fail the read, not report false flags.
	require.NoError(t, f.db.Migrator().DropTable(&models.FavoriteRecipe{}))

	_, err = svc.Get(ctx, id, &reader.ID)
	require.Error(t, err)

	// Anonymous reads never touch the membership stores.
	resp, err := svc.Get(ctx, id, nil)
	require.NoError(t, err)
	assert.False(t, resp.IsFavorited)
}

func TestDerivedFlagsPerRequester(t *testing.T) {
	f := newRecipeFixture(t)
	svc := service.NewRecipeService(f.db)
	followSvc := service.NewFollowService(f.db)
	ctx := context.Background()

	id, err := svc.Create(ctx, f.author.ID, f.createRequest())
	require.NoError(t, err)

	fan := seedUser(t, f.db, "fan")
	_, err = svc.AddFavorite(ctx, fan.ID, id)
	require.NoError(t, err)
	require.NoError(t, followSvc.Follow(ctx, fan.ID, f.author.ID))

	resp, err := svc.Get(ctx, id, &fan.ID)
	require.NoError(t, err)
	assert.True(t, resp.IsFavorited)
	assert.False(t, resp.IsInShoppingCart)
	assert.True(t, resp.Author.IsSubscribed)

	stranger := seedUser(t, f.db, "stranger")
	resp, err = svc.Get(ctx, id, &stranger.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsFavorited)
	assert.False(t, resp.Author.IsSubscribed)
}
