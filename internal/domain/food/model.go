package food

import (
	"errors"
	"strings"
	"time"
)

// Item is one row of the food distribution register. The check-in core only
// reads these for the statistics view.
type Item struct {
	ID            string
	Product       string
	Quantity      float64
	Unit          string
	DistributedOn string // YYYY-MM-DD, taken from the source file name
	CreatedAt     time.Time
}

// Validate checks if the Item has valid data.
// POST: Returns error if validation fails, nil otherwise
func (i *Item) Validate() error {
	if strings.TrimSpace(i.Product) == "" {
		return errors.New("food item product cannot be empty")
	}
	return nil
}

// NormalizedProduct returns the product name key used for frequency stats.
func (i *Item) NormalizedProduct() string {
	return strings.ToUpper(strings.TrimSpace(i.Product))
}
