package handlers

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"restaurantfinder/src/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
	})
	return v
}

type radiusParams struct {
	Lat    float64 `query:"lat" validate:"gte=-90,lte=90"`
	Lon    float64 `query:"lon" validate:"gte=-180,lte=180"`
	Radius float64 `query:"radius" validate:"gte=0"`
}

// rangeParams leaves the distance rules to finder.CheckRange, which
// answers them with 400 rather than 422.
type rangeParams struct {
	Lat         float64 `query:"lat" validate:"gte=-90,lte=90"`
	Lon         float64 `query:"lon" validate:"gte=-180,lte=180"`
	MinDistance float64 `query:"min_distance"`
	MaxDistance float64 `query:"max_distance"`
}

func center(lat, lon float64) types.Location {
	return types.Location{Latitude: lat, Longitude: lon}
}

func parseRadiusParams(q url.Values) (radiusParams, error) {
	var p radiusParams
	err := parseFloats(q, map[string]*float64{
		"lat":    &p.Lat,
		"lon":    &p.Lon,
		"radius": &p.Radius,
	})
	if err != nil {
		return p, err
	}
	return p, validateParams(p)
}

func parseRangeParams(q url.Values) (rangeParams, error) {
	var p rangeParams
	err := parseFloats(q, map[string]*float64{
		"lat":          &p.Lat,
		"lon":          &p.Lon,
		"min_distance": &p.MinDistance,
		"max_distance": &p.MaxDistance,
	})
	return p, err
}

// parseFloats fills every target from its required query parameter,
// checking names in sorted order so errors are deterministic.
func parseFloats(q url.Values, targets map[string]*float64) error {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			return errors.Errorf("query parameter %s is required", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("query parameter %s must be a finite number, got %q", name, raw)
		}
		*targets[name] = v
	}
	return nil
}

func validateParams(p interface{}) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return errors.Errorf("query parameter %s must be %s %s", fe.Field(), comparison(fe.Tag()), fe.Param())
}

func comparison(tag string) string {
	switch tag {
	case "gte":
		return ">="
	case "lte":
		return "<="
	case "gt":
		return ">"
	case "lt":
		return "<"
	}
	return fmt.Sprintf("valid for %s", tag)
}
