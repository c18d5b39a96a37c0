package main

import (
	"encoding/json"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/forkplate/backend/internal/models"
)

type ingredientFixture struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type tagFixture struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

// Loads the ingredient and tag catalog into the database. Safe to re-run:
// existing rows are left alone.
func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	seedIngredients(db, "fixtures/ingredients.json")
	seedTags(db, "fixtures/tags.json")
}

func seedIngredients(db *gorm.DB, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read %s: %v", path, err)
	}

	var fixtures []ingredientFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		log.Fatalf("failed to parse %s: %v", path, err)
	}

	created := 0
	for _, f := range fixtures {
		ingredient := models.Ingredient{Name: f.Name, MeasurementUnit: f.MeasurementUnit}
		res := db.Where("name = ? AND measurement_unit = ?", f.Name, f.MeasurementUnit).
			FirstOrCreate(&ingredient)
		if res.Error != nil {
			log.Fatalf("failed to seed ingredient %q: %v", f.Name, res.Error)
		}
		created += int(res.RowsAffected)
	}
	log.Printf("Seeded %d of %d ingredients", created, len(fixtures))
}

func seedTags(db *gorm.DB, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read %s: %v", path, err)
	}

	var fixtures []tagFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		log.Fatalf("failed to parse %s: %v", path, err)
	}

	created := 0
	for _, f := range fixtures {
		tag := models.Tag{Name: f.Name, Color: f.Color, Slug: f.Slug}
		res := db.Where("slug = ?", f.Slug).FirstOrCreate(&tag)
		if res.Error != nil {
			log.Fatalf("failed to seed tag %q: %v", f.Slug, res.Error)
		}
		created += int(res.RowsAffected)
	}
	log.Printf("Seeded %d of %d tags", created, len(fixtures))
}
