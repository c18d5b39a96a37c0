package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/forkplate/backend/internal/api"
	"github.com/forkplate/backend/internal/middleware"
	"github.com/forkplate/backend/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *gorm.DB
}

// New wires services, handlers and middleware into a router. redisClient and
// imageService may be nil; the affected features degrade gracefully.
func New(db *gorm.DB, redisClient *redis.Client, authService *service.AuthService, imageService *service.ImageService) *Server {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	recipeService := service.NewRecipeService(db)
	shoppingService := service.NewShoppingListService(db)
	followService := service.NewFollowService(db)

	recipeHandler := api.NewRecipeHandler(recipeService, shoppingService, imageService, authService)
	if redisClient != nil {
		recipeHandler.WithRateLimiters(
			middleware.NewRecipeCreationRateLimiter(redisClient),
			middleware.NewRecipeModificationRateLimiter(redisClient),
		)
	}

	v1 := router.Group("/api/v1")
	api.NewAuthHandler(authService, db).RegisterRoutes(v1)
	api.NewIngredientHandler(db).RegisterRoutes(v1)
	api.NewTagHandler(db).RegisterRoutes(v1)
	recipeHandler.RegisterRoutes(v1)
	api.NewUserHandler(db, followService, authService).RegisterRoutes(v1)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &Server{
		router: router,
		db:     db,
	}
}

// Router exposes the underlying engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the server and blocks until it stops listening.
func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}
