package scoring

import (
	"math"

	"vaultgallery/internal/catalog"
)

// MaxDimension is the upper bound of each quality dimension.
const MaxDimension = 20

// ClampCardValue returns a dimension clamped to 0..20, treating null as 0.
func ClampCardValue(value *int) int {
	if value == nil {
		return 0
	}
	return min(max(*value, 0), MaxDimension)
}

// PowerScore sums the five clamped dimensions (0..100).
func PowerScore(scores catalog.Scores) int {
	total := 0
	for _, v := range scores.Values() {
		total += ClampCardValue(v)
	}
	return total
}

// StarRating maps a power score to 1..5 stars, or 0 when nothing is scored.
func StarRating(power int) int {
	if power <= 0 {
		return 0
	}
	stars := int(math.Round(float64(power) / 20))
	return min(max(stars, 1), 5)
}

// Card is the score summary shown beside a category.
type Card struct {
	Power int `json:"power"`
	Stars int `json:"stars"`
}

// CardFor computes the card summary of a category.
func CardFor(category *catalog.Category) Card {
	if category == nil {
		return Card{}
	}
	power := PowerScore(category.Scores)
	return Card{Power: power, Stars: StarRating(power)}
}
