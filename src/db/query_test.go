package db

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"restaurantfinder/src/types"
)

var center = types.Location{Latitude: 40.7128, Longitude: -74.0060}

func TestCenterSphereFilter(t *testing.T) {
	got := CenterSphereFilter(center, 6378100)
	want := bson.M{
		"address.coord": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{-74.0060, 40.7128}, 1.0},
			},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CenterSphereFilter() = %v, want %v", got, want)
	}
}

func TestAnnulusFilter(t *testing.T) {
	got := AnnulusFilter(center, 50, 100)
	want := bson.M{
		"$and": bson.A{
			bson.M{"address.coord": bson.M{"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{-74.0060, 40.7128}, 100 / 6378100.0},
			}}},
			bson.M{"address.coord": bson.M{"$not": bson.M{"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{-74.0060, 40.7128}, 50 / 6378100.0},
			}}}},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AnnulusFilter() = %v, want %v", got, want)
	}
}

func TestFiltersMarshalToBSON(t *testing.T) {
	for name, filter := range map[string]bson.M{
		"radius":  CenterSphereFilter(center, 500),
		"annulus": AnnulusFilter(center, 50, 100),
	} {
		if _, err := bson.Marshal(filter); err != nil {
			t.Errorf("%s filter does not marshal: %v", name, err)
		}
	}
}

func querySource(t *testing.T, q interface{ Source() (interface{}, error) }) string {
	t.Helper()
	src, err := q.Source()
	if err != nil {
		t.Fatalf("Source() error: %v", err)
	}
	b, err := json.Marshal(src)
	if err != nil {
		t.Fatalf("marshal source: %v", err)
	}
	return string(b)
}

func TestRadiusQuery(t *testing.T) {
	src := querySource(t, RadiusQuery(center, 1500))

	for _, want := range []string{`"geo_distance"`, `"address.coord"`, `"distance":"1500m"`, `"lat":40.7128`, `"lon":-74.006`} {
		if !strings.Contains(src, want) {
			t.Errorf("radius query %s missing %s", src, want)
		}
	}
	if strings.Contains(src, "must_not") {
		t.Errorf("radius query %s should not exclude anything", src)
	}
}

func TestAnnulusQuery(t *testing.T) {
	src := querySource(t, AnnulusQuery(center, 50, 100))

	for _, want := range []string{`"filter"`, `"must_not"`, `"distance":"100m"`, `"distance":"50m"`} {
		if !strings.Contains(src, want) {
			t.Errorf("annulus query %s missing %s", src, want)
		}
	}
}
