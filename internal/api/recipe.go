package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forkplate/backend/internal/middleware"
	"github.com/forkplate/backend/internal/service"
	"github.com/forkplate/backend/internal/types"
)

type RecipeHandler struct {
	recipeService   *service.RecipeService
	shoppingService *service.ShoppingListService
	imageService    *service.ImageService
	authService     middleware.TokenValidator
	createLimiter   *middleware.RateLimiter
	modifyLimiter   *middleware.RateLimiter
}

func NewRecipeHandler(
	recipeService *service.RecipeService,
	shoppingService *service.ShoppingListService,
	imageService *service.ImageService,
	authService middleware.TokenValidator,
) *RecipeHandler {
	return &RecipeHandler{
		recipeService:   recipeService,
		shoppingService: shoppingService,
		imageService:    imageService,
		authService:     authService,
	}
}

// WithRateLimiters attaches the Redis rate limiters to write endpoints. No-op
// when Redis is not configured.
func (h *RecipeHandler) WithRateLimiters(create, modify *middleware.RateLimiter) *RecipeHandler {
	h.createLimiter = create
	h.modifyLimiter = modify
	return h
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	optional := middleware.OptionalAuthMiddleware(h.authService)
	required := middleware.AuthMiddleware(h.authService)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optional, h.ListRecipes)
		recipes.GET("/download_shopping_cart", required, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.GetRecipe)

		create := []gin.HandlerFunc{required}
		if h.createLimiter != nil {
			create = append(create, h.createLimiter.RateLimitMiddleware())
		}
		recipes.POST("", append(create, h.CreateRecipe)...)

		modify := []gin.HandlerFunc{required}
		if h.modifyLimiter != nil {
			modify = append(modify, h.modifyLimiter.PerRecipeRateLimitMiddleware())
		}
		recipes.PATCH("/:id", append(modify, h.UpdateRecipe)...)
		recipes.DELETE("/:id", required, h.DeleteRecipe)

		recipes.POST("/:id/favorite", required, h.FavoriteRecipe)
		recipes.DELETE("/:id/favorite", required, h.UnfavoriteRecipe)
		recipes.POST("/:id/shopping_cart", required, h.AddToShoppingCart)
		recipes.DELETE("/:id/shopping_cart", required, h.RemoveFromShoppingCart)
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	offset, limit := pageParams(c)
	filter := service.RecipeFilter{
		TagSlugs: c.QueryArray("tags"),
		Offset:   offset,
		Limit:    limit,
	}

	if author := c.Query("author"); author != "" {
		authorID, err := uuid.Parse(author)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author id"})
			return
		}
		filter.AuthorID = &authorID
	}

	requester := requesterID(c)
	// Membership filters are no-ops for anonymous requesters.
	if requester != nil {
		if isTruthy(c.Query("is_favorited")) {
			filter.FavoritedBy = requester
		}
		if isTruthy(c.Query("is_in_shopping_cart")) {
			filter.InCartOf = requester
		}
	}

	recipes, total, err := h.recipeService.List(c.Request.Context(), filter, requester)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, paginated(total, recipes))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	recipe, err := h.recipeService.Get(c.Request.Context(), recipeID, requesterID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if h.imageService != nil && req.Image != "" {
		imageURL, err := h.imageService.UploadRecipeImage(c.Request.Context(), req.Image)
		if err != nil {
			respondError(c, err)
			return
		}
		req.Image = imageURL
	}

	recipeID, err := h.recipeService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipeService.Get(c.Request.Context(), recipeID, &userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	var req types.UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if h.imageService != nil && req.Image != nil && *req.Image != "" {
		imageURL, err := h.imageService.UploadRecipeImage(c.Request.Context(), *req.Image)
		if err != nil {
			respondError(c, err)
			return
		}
		req.Image = &imageURL
	}

	if err := h.recipeService.Update(c.Request.Context(), recipeID, userID, &req); err != nil {
		respondError(c, err)
		return
	}

	recipe, err := h.recipeService.Get(c.Request.Context(), recipeID, &userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := h.recipeService.Delete(c.Request.Context(), recipeID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) FavoriteRecipe(c *gin.Context) {
	h.addMembership(c, h.recipeService.AddFavorite)
}

func (h *RecipeHandler) UnfavoriteRecipe(c *gin.Context) {
	h.removeMembership(c, h.recipeService.RemoveFavorite)
}

func (h *RecipeHandler) AddToShoppingCart(c *gin.Context) {
	h.addMembership(c, h.recipeService.AddToCart)
}

func (h *RecipeHandler) RemoveFromShoppingCart(c *gin.Context) {
	h.removeMembership(c, h.recipeService.RemoveFromCart)
}

// DownloadShoppingCart returns the aggregated shopping list as a plain-text
// attachment. An empty cart downloads as an empty file.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	items, err := h.shoppingService.Build(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	content := h.shoppingService.Render(items)
	c.Header("Content-Disposition", `attachment; filename=shopping_list.txt`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

func (h *RecipeHandler) addMembership(c *gin.Context, add func(ctx context.Context, userID, recipeID uuid.UUID) (*types.RecipeSummary, error)) {
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	summary, err := add(c.Request.Context(), userID, recipeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, summary)
}

func (h *RecipeHandler) removeMembership(c *gin.Context, remove func(ctx context.Context, userID, recipeID uuid.UUID) error) {
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := remove(c.Request.Context(), userID, recipeID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func requesterID(c *gin.Context) *uuid.UUID {
	if id, ok := middleware.CurrentUserID(c); ok {
		return &id
	}
	return nil
}

func isTruthy(value string) bool {
	return value == "1" || value == "true"
}
