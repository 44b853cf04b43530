package projections

import (
	"context"
	"sort"

	"unisp/internal/domain/food"
	"unisp/internal/domain/member"
	"unisp/internal/domain/passage"
)

// TopProductsLimit caps the food leaderboard shown on the dashboard.
const TopProductsLimit = 15

// StatsPassageStore defines the passage store interface for statistics.
type StatsPassageStore interface {
	ListAll(ctx context.Context) ([]passage.Passage, error)
}

// StatsMemberStore defines the member store interface for statistics.
type StatsMemberStore interface {
	ListAll(ctx context.Context) ([]member.Member, error)
}

// StatsFoodStore defines the food store interface for statistics.
type StatsFoodStore interface {
	List(ctx context.Context) ([]food.Item, error)
}

// StatsDeps holds dependencies for the stats projection.
type StatsDeps struct {
	PassageStore StatsPassageStore
	MemberStore  StatsMemberStore
	FoodStore    StatsFoodStore
}

// TrendPoint is one day of the attendance trend.
type TrendPoint struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// ProductStat aggregates one product's distributed quantity.
type ProductStat struct {
	Product  string  `json:"product"`
	Quantity float64 `json:"quantity"`
}

// StatsResult is the dashboard payload.
type StatsResult struct {
	Trend       []TrendPoint   `json:"trend"`
	Statuses    map[string]int `json:"statuses"`
	TopProducts []ProductStat  `json:"topProducts"`
}

// QueryGetStats aggregates the dashboard numbers: attendance per day,
// member status distribution, and the most distributed food products.
// POST: Trend is ordered by day ascending; TopProducts by quantity
// descending, capped at TopProductsLimit
func QueryGetStats(ctx context.Context, deps StatsDeps) (StatsResult, error) {
	passages, err := deps.PassageStore.ListAll(ctx)
	if err != nil {
		return StatsResult{}, err
	}

	perDay := make(map[string]int)
	for _, p := range passages {
		perDay[p.Day]++
	}
	trend := make([]TrendPoint, 0, len(perDay))
	for day, count := range perDay {
		trend = append(trend, TrendPoint{Day: day, Count: count})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Day < trend[j].Day })

	members, err := deps.MemberStore.ListAll(ctx)
	if err != nil {
		return StatsResult{}, err
	}
	statuses := make(map[string]int)
	for _, m := range members {
		statuses[m.Status]++
	}

	items, err := deps.FoodStore.List(ctx)
	if err != nil {
		return StatsResult{}, err
	}
	perProduct := make(map[string]float64)
	for _, item := range items {
		perProduct[item.NormalizedProduct()] += item.Quantity
	}
	products := make([]ProductStat, 0, len(perProduct))
	for product, qty := range perProduct {
		products = append(products, ProductStat{Product: product, Quantity: qty})
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Quantity != products[j].Quantity {
			return products[i].Quantity > products[j].Quantity
		}
		return products[i].Product < products[j].Product
	})
	if len(products) > TopProductsLimit {
		products = products[:TopProductsLimit]
	}

	return StatsResult{
		Trend:       trend,
		Statuses:    statuses,
		TopProducts: products,
	}, nil
}
