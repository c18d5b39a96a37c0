package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/forkplate/backend/internal/models"
	"github.com/forkplate/backend/internal/server"
	"github.com/forkplate/backend/internal/service"
	"github.com/forkplate/backend/internal/testhelpers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	auth := service.NewAuthService(db, "test-secret")
	srv := server.New(db, nil, auth, nil)
	return &testEnv{router: srv.Router(), db: db, auth: auth}
}

// signup registers a user over the API and returns their token and id.
func (e *testEnv) signup(t *testing.T, username string) (string, models.User) {
	t.Helper()
	body := map[string]string{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": "Test",
		"last_name":  "User",
		"password":   "correct-horse",
	}
	w := e.do(t, http.MethodPost, "/api/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	var user models.User
	require.NoError(t, e.db.First(&user, "username = ?", username).Error)
	return resp.Token, user
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedIngredient(t *testing.T, name, unit string) models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, e.db.Where("name = ? AND measurement_unit = ?", name, unit).
		FirstOrCreate(&ingredient).Error)
	return ingredient
}

func (e *testEnv) seedTag(t *testing.T, name, slug string) models.Tag {
	t.Helper()
	color := "#" + (slug + "000000")[:6]
	tag := models.Tag{Name: name, Color: color, Slug: slug}
	require.NoError(t, e.db.Where("slug = ?", slug).FirstOrCreate(&tag).Error)
	return tag
}

func (e *testEnv) recipePayload(t *testing.T) map[string]interface{} {
	t.Helper()
	flour := e.seedIngredient(t, "flour", "g")
	tag := e.seedTag(t, "Breakfast", "breakfast")
	return map[string]interface{}{
		"name":         "Pancakes",
		"text":         "Mix and fry.",
		"cooking_time": 15,
		"tags":         []string{tag.ID.String()},
		"ingredients": []map[string]interface{}{
			{"id": flour.ID.String(), "amount": 150},
		},
	}
}
