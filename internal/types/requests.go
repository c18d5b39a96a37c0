package types

import "github.com/google/uuid"

// RegisterRequest is the payload for user registration.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// IngredientAmount is one (ingredient, amount) pair of a recipe payload.
type IngredientAmount struct {
	ID     uuid.UUID `json:"id" binding:"required"`
	Amount int       `json:"amount" binding:"required"`
}

// CreateRecipeRequest is the payload for POST /recipes.
type CreateRecipeRequest struct {
	Name        string             `json:"name" binding:"required"`
	Image       string             `json:"image"`
	Text        string             `json:"text" binding:"required"`
	CookingTime int                `json:"cooking_time"`
	Tags        []uuid.UUID        `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients"`
}

// UpdateRecipeRequest is the payload for PATCH /recipes/:id. Nil fields leave
// the stored values untouched.
type UpdateRecipeRequest struct {
	Name        *string             `json:"name"`
	Image       *string             `json:"image"`
	Text        *string             `json:"text"`
	CookingTime *int                `json:"cooking_time"`
	Tags        *[]uuid.UUID        `json:"tags"`
	Ingredients *[]IngredientAmount `json:"ingredients"`
}
