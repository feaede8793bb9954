// Package finder answers "which restaurants are near this point" questions
// against a DataStore and shapes the answer for API clients.
package finder

import (
	"context"

	"github.com/pkg/errors"

	"restaurantfinder/src/rating"
	"restaurantfinder/src/types"
)

// ValidationError is returned before any store access when a query is
// rejected on its arguments alone.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Service struct {
	store types.DataStore
}

func NewService(store types.DataStore) *Service {
	return &Service{store: store}
}

// Nearby returns every restaurant within radius meters of center.
func (s *Service) Nearby(ctx context.Context, center types.Location, radius float64) ([]types.RestaurantOutput, error) {
	restaurants, err := s.store.FindWithin(ctx, center, radius)
	if err != nil {
		return nil, errors.Wrap(err, "find restaurants within radius")
	}
	return ToOutputs(restaurants)
}

// InRange returns every restaurant at least minDistance and less than
// maxDistance meters from center.
func (s *Service) InRange(ctx context.Context, center types.Location, minDistance, maxDistance float64) ([]types.RestaurantOutput, error) {
	if err := CheckRange(minDistance, maxDistance); err != nil {
		return nil, err
	}

	restaurants, err := s.store.FindBetween(ctx, center, minDistance, maxDistance)
	if err != nil {
		return nil, errors.Wrap(err, "find restaurants in range")
	}
	return ToOutputs(restaurants)
}

// CheckRange applies the distance rules of a range query.
func CheckRange(minDistance, maxDistance float64) error {
	if minDistance < 0 || maxDistance < 0 {
		return &ValidationError{Message: "Distances should be positive"}
	}
	if minDistance >= maxDistance {
		return &ValidationError{Message: "min_distance should be less than max_distance"}
	}
	return nil
}

// ToOutput maps a stored document to its API shape, swapping the stored
// [lon, lat] pair into a named Location.
func ToOutput(r types.Restaurant) (types.RestaurantOutput, error) {
	if len(r.Address.Coord) < 2 {
		return types.RestaurantOutput{}, errors.Errorf("restaurant %q has malformed coordinates %v", r.Name, r.Address.Coord)
	}

	avg, count := rating.Average(r.Grades)
	return types.RestaurantOutput{
		Name:        r.Name,
		Description: r.Cuisine,
		Location: types.Location{
			Latitude:  r.Address.Coord[1],
			Longitude: r.Address.Coord[0],
		},
		AverageRating: avg,
		NoOfRatings:   count,
	}, nil
}

func ToOutputs(restaurants []types.Restaurant) ([]types.RestaurantOutput, error) {
	result := make([]types.RestaurantOutput, 0, len(restaurants))
	for _, r := range restaurants {
		out, err := ToOutput(r)
		if err != nil {
			return nil, err
		}
		result = append(result, out)
	}
	return result, nil
}
