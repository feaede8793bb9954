package rating

import "restaurantfinder/src/types"

// Average returns the mean score and the number of grades.
// The mean is nil when there are no grades.
func Average(grades []types.Grade) (*float64, int) {
	if len(grades) == 0 {
		return nil, 0
	}

	total := 0
	for _, g := range grades {
		total += g.Score
	}
	avg := float64(total) / float64(len(grades))
	return &avg, len(grades)
}
