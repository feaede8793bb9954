package handlers

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"restaurantfinder/src/finder"
	"restaurantfinder/src/respond"
	"restaurantfinder/src/types"
)

// RestaurantFinder is implemented by *finder.Service.
type RestaurantFinder interface {
	Nearby(ctx context.Context, center types.Location, radius float64) ([]types.RestaurantOutput, error)
	InRange(ctx context.Context, center types.Location, minDistance, maxDistance float64) ([]types.RestaurantOutput, error)
}

// HandleRestaurants serves GET /restaurants/?lat=&lon=&radius=
func HandleRestaurants(f RestaurantFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := parseRadiusParams(r.URL.Query())
		if err != nil {
			respond.Detail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		restaurants, err := f.Nearby(r.Context(), center(p.Lat, p.Lon), p.Radius)
		if err != nil {
			serverError(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, restaurants)
	}
}

// HandleRestaurantsRange serves GET /restaurants/range/?lat=&lon=&min_distance=&max_distance=
func HandleRestaurantsRange(f RestaurantFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := parseRangeParams(r.URL.Query())
		if err != nil {
			respond.Detail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		// Distance rules win over coordinate ranges.
		if err := finder.CheckRange(p.MinDistance, p.MaxDistance); err != nil {
			badRange(w, err)
			return
		}
		if err := validateParams(p); err != nil {
			respond.Detail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		restaurants, err := f.InRange(r.Context(), center(p.Lat, p.Lon), p.MinDistance, p.MaxDistance)
		var verr *finder.ValidationError
		if errors.As(err, &verr) {
			badRange(w, verr)
			return
		}
		if err != nil {
			serverError(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, restaurants)
	}
}

func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func badRange(w http.ResponseWriter, err error) {
	respond.Detail(w, http.StatusBadRequest, err.Error())
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	requestLog(r).WithError(err).Error("Request failed")
	respond.Detail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
