package db

import (
	"github.com/olivere/elastic/v7"
	"go.mongodb.org/mongo-driver/bson"

	"restaurantfinder/src/geo"
	"restaurantfinder/src/types"
)

// coordField holds [lon, lat] in both stores: a legacy coordinate pair in
// MongoDB and a geo_point in Elasticsearch.
const coordField = "address.coord"

// CenterSphere is the $geoWithin predicate for a sphere of the given radius.
func CenterSphere(center types.Location, meters float64) bson.M {
	return bson.M{
		"$geoWithin": bson.M{
			"$centerSphere": bson.A{
				bson.A{center.Longitude, center.Latitude},
				geo.MetersToRadians(meters),
			},
		},
	}
}

// CenterSphereFilter selects documents within radius meters of center.
func CenterSphereFilter(center types.Location, radius float64) bson.M {
	return bson.M{coordField: CenterSphere(center, radius)}
}

// AnnulusFilter selects documents inside the maxDistance sphere and outside
// the minDistance sphere.
func AnnulusFilter(center types.Location, minDistance, maxDistance float64) bson.M {
	return bson.M{
		"$and": bson.A{
			bson.M{coordField: CenterSphere(center, maxDistance)},
			bson.M{coordField: bson.M{"$not": CenterSphere(center, minDistance)}},
		},
	}
}

func GeoDistanceQuery(center types.Location, meters float64) *elastic.GeoDistanceQuery {
	return elastic.NewGeoDistanceQuery(coordField).
		Point(center.Latitude, center.Longitude).
		Distance(geo.FormatMeters(meters)).
		DistanceType("arc")
}

func RadiusQuery(center types.Location, radius float64) elastic.Query {
	return elastic.NewBoolQuery().Filter(GeoDistanceQuery(center, radius))
}

func AnnulusQuery(center types.Location, minDistance, maxDistance float64) elastic.Query {
	return elastic.NewBoolQuery().
		Filter(GeoDistanceQuery(center, maxDistance)).
		MustNot(GeoDistanceQuery(center, minDistance))
}
