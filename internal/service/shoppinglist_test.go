package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkplate/backend/internal/service"
	"github.com/forkplate/backend/internal/testhelpers"
	"github.com/forkplate/backend/internal/types"
)

func TestShoppingListAggregation(t *testing.T) {
	f := newRecipeFixture(t)
	recipes := service.NewRecipeService(f.db)
	lists := service.NewShoppingListService(f.db)
	ctx := context.Background()

	reader := seedUser(t, f.db, "reader")

	// Recipe A: 100 g flour, 2 pcs egg. Recipe B: 200 g flour.
	reqA := f.createRequest()
	reqA.Name = "Crepes"
	reqA.Ingredients = []types.IngredientAmount{
		{ID: f.flour.ID, Amount: 100},
		{ID: f.egg.ID, Amount: 2},
	}
	a, err := recipes.Create(ctx, f.author.ID, reqA)
	require.NoError(t, err)

	reqB := f.createRequest()
	reqB.Name = "Bread"
	reqB.Ingredients = []types.IngredientAmount{
		{ID: f.flour.ID, Amount: 200},
	}
	b, err := recipes.Create(ctx, f.author.ID, reqB)
	require.NoError(t, err)

	_, err = recipes.AddToCart(ctx, reader.ID, a)
	require.NoError(t, err)
	_, err = recipes.AddToCart(ctx, reader.ID, b)
	require.NoError(t, err)

	items, err := lists.Build(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Amounts fold per name; names keep first-seen order.
	assert.Equal(t, types.ShoppingListItem{Name: "flour", MeasurementUnit: "g", Amount: 300}, items[0])
	assert.Equal(t, types.ShoppingListItem{Name: "egg", MeasurementUnit: "pcs", Amount: 2}, items[1])

	text := lists.Render(items)
	assert.Equal(t, "flour (g) - 300\negg (pcs) - 2\n", text)
}

func TestShoppingListEmptyCart(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	lists := service.NewShoppingListService(db)

	user := seedUser(t, db, "empty")
	items, err := lists.Build(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, "", lists.Render(items))
}

func TestShoppingListUnitDivergence(t *testing.T) {
	f := newRecipeFixture(t)
	recipes := service.NewRecipeService(f.db)
	lists := service.NewShoppingListService(f.db)
	ctx := context.Background()

	// Same ingredient name under two measurement units.
	sugarG := seedIngredient(t, f.db, "sugar", "g")
	sugarTbsp := seedIngredient(t, f.db, "sugar", "tbsp")
	reader := seedUser(t, f.db, "reader")

	reqA := f.createRequest()
	reqA.Name = "Cake"
	reqA.Ingredients = []types.IngredientAmount{{ID: sugarG.ID, Amount: 50}}
	a, err := recipes.Create(ctx, f.author.ID, reqA)
	require.NoError(t, err)

	reqB := f.createRequest()
	reqB.Name = "Tea"
	reqB.Ingredients = []types.IngredientAmount{{ID: sugarTbsp.ID, Amount: 2}}
	b, err := recipes.Create(ctx, f.author.ID, reqB)
	require.NoError(t, err)

	reqC := f.createRequest()
	reqC.Name = "Cookies"
	reqC.Ingredients = []types.IngredientAmount{{ID: sugarG.ID, Amount: 30}}
	c, err := recipes.Create(ctx, f.author.ID, reqC)
	require.NoError(t, err)

	for _, id := range []uuid.UUID{a, b, c} {
		_, err = recipes.AddToCart(ctx, reader.ID, id)
		require.NoError(t, err)
	}

	items, err := lists.Build(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Diverging units never fold together; each unit keeps its own line.
	assert.Equal(t, types.ShoppingListItem{Name: "sugar", MeasurementUnit: "g", Amount: 80}, items[0])
	assert.Equal(t, types.ShoppingListItem{Name: "sugar", MeasurementUnit: "tbsp", Amount: 2}, items[1])
}

func TestShoppingListFollowsPayloadOrder(t *testing.T) {
	f := newRecipeFixture(t)
	recipes := service.NewRecipeService(f.db)
	lists := service.NewShoppingListService(f.db)
	ctx := context.Background()

	milk := seedIngredient(t, f.db, "milk", "ml")
	reader := seedUser(t, f.db, "reader")

	req := f.createRequest()
	req.Ingredients = []types.IngredientAmount{
		{ID: milk.ID, Amount: 250},
		{ID: f.egg.ID, Amount: 2},
		{ID: f.flour.ID, Amount: 150},
	}
	id, err := recipes.Create(ctx, f.author.ID, req)
	require.NoError(t, err)
	_, err = recipes.AddToCart(ctx, reader.ID, id)
	require.NoError(t, err)

	items, err := lists.Build(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "milk", items[0].Name)
	assert.Equal(t, "egg", items[1].Name)
	assert.Equal(t, "flour", items[2].Name)
}
