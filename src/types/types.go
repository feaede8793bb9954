package types

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrUserNotFound = errors.New("user not found")

// Address is stored exactly as the seed data has it. Coord is [longitude, latitude].
type Address struct {
	Building string    `json:"building,omitempty" bson:"building,omitempty"`
	Coord    []float64 `json:"coord" bson:"coord"`
	Street   string    `json:"street,omitempty" bson:"street,omitempty"`
	Zipcode  string    `json:"zipcode,omitempty" bson:"zipcode,omitempty"`
}

type Grade struct {
	Date  time.Time `json:"date" bson:"date"`
	Grade string    `json:"grade" bson:"grade"`
	Score int       `json:"score" bson:"score"`
}

type Restaurant struct {
	ID           primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	RestaurantID string             `json:"restaurant_id,omitempty" bson:"restaurant_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Borough      string             `json:"borough" bson:"borough"`
	Cuisine      string             `json:"cuisine" bson:"cuisine"`
	Address      Address            `json:"address" bson:"address"`
	Grades       []Grade            `json:"grades" bson:"grades"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RestaurantOutput is what the API returns. AverageRating is nil exactly when
// NoOfRatings is zero, and serializes as null.
type RestaurantOutput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Location      Location `json:"location"`
	AverageRating *float64 `json:"average_rating"`
	NoOfRatings   int      `json:"no_of_ratings"`
}

type User struct {
	Username string `json:"username" bson:"username"`
}

type UserInDB struct {
	User           `bson:",inline"`
	HashedPassword string `json:"-" bson:"hashed_password"`
}

// DataStore is a restaurant collection that can answer spherical queries.
// Distances are in meters.
type DataStore interface {
	FindWithin(ctx context.Context, center Location, radius float64) ([]Restaurant, error)
	FindBetween(ctx context.Context, center Location, minDistance, maxDistance float64) ([]Restaurant, error)
	Seed(ctx context.Context, restaurants []Restaurant) error
}

// UserStore returns ErrUserNotFound for unknown usernames.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*UserInDB, error)
}
