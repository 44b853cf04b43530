package orchestrators

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"unisp/internal/domain/food"
)

// FoodRow is one pre-parsed row of the food distribution sheet.
type FoodRow struct {
	Product  string `json:"prodotto"`
	Quantity string `json:"quantita"`
	Unit     string `json:"unita"`
}

// ImportFoodInput carries the rows and the distribution date.
type ImportFoodInput struct {
	Rows []FoodRow
	Date string // YYYY-MM-DD
}

// ImportFoodResult reports how many rows were stored.
type ImportFoodResult struct {
	Imported int
	Rejected int
}

// FoodStore defines the food store interface needed for import.
type FoodStore interface {
	Save(ctx context.Context, value food.Item) error
}

// ImportFoodDeps holds dependencies for ImportFood.
type ImportFoodDeps struct {
	FoodStore FoodStore
}

// ExecuteImportFood stores a sheet of food distribution rows. Quantities
// accept both comma and period decimal separators; rows that fail
// validation are counted and skipped.
func ExecuteImportFood(ctx context.Context, input ImportFoodInput, deps ImportFoodDeps) (ImportFoodResult, error) {
	var result ImportFoodResult
	for _, row := range input.Rows {
		qty, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(row.Quantity), ",", "."), 64)
		if err != nil {
			result.Rejected++
			continue
		}

		item := food.Item{
			ID:            uuid.New().String(),
			Product:       strings.TrimSpace(row.Product),
			Quantity:      qty,
			Unit:          strings.TrimSpace(row.Unit),
			DistributedOn: input.Date,
			CreatedAt:     time.Now(),
		}
		if err := item.Validate(); err != nil {
			result.Rejected++
			continue
		}
		if err := deps.FoodStore.Save(ctx, item); err != nil {
			return result, err
		}
		result.Imported++
	}

	slog.Info("food_import", "imported", result.Imported, "rejected", result.Rejected)
	return result, nil
}
