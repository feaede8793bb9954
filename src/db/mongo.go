package db

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"restaurantfinder/src/config"
	"restaurantfinder/src/types"
)

// MongoStore serves restaurants and users from MongoDB collections.
type MongoStore struct {
	Client      *mongo.Client
	restaurants *mongo.Collection
	users       *mongo.Collection
}

func NewMongoStore(ctx context.Context, cfg config.Mongo) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrapf(err, "ping mongodb at %s", cfg.URI)
	}

	database := client.Database(cfg.Database)
	log.WithField("database", cfg.Database).Info("Connected to MongoDB")
	return &MongoStore{
		Client:      client,
		restaurants: database.Collection(cfg.RestaurantsCollection),
		users:       database.Collection(cfg.UsersCollection),
	}, nil
}

// EnsureIndexes creates the spherical index queries run against and the
// unique username index. Both calls are no-ops when the index exists.
func (ms *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := ms.restaurants.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: coordField, Value: "2dsphere"}},
	})
	if err != nil {
		return errors.Wrap(err, "create 2dsphere index")
	}

	_, err = ms.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "create username index")
	}
	return nil
}

func (ms *MongoStore) FindWithin(ctx context.Context, center types.Location, radius float64) ([]types.Restaurant, error) {
	return ms.find(ctx, CenterSphereFilter(center, radius))
}

func (ms *MongoStore) FindBetween(ctx context.Context, center types.Location, minDistance, maxDistance float64) ([]types.Restaurant, error) {
	return ms.find(ctx, AnnulusFilter(center, minDistance, maxDistance))
}

func (ms *MongoStore) find(ctx context.Context, filter bson.M) ([]types.Restaurant, error) {
	cursor, err := ms.restaurants.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "query restaurants")
	}

	restaurants := []types.Restaurant{}
	if err := cursor.All(ctx, &restaurants); err != nil {
		return nil, errors.Wrap(err, "decode restaurants")
	}
	return restaurants, nil
}

// Seed inserts restaurants unordered into an empty collection; a collection
// that already holds documents is left alone. Documents rejected by the
// server (unindexable coordinates) are logged and skipped.
func (ms *MongoStore) Seed(ctx context.Context, restaurants []types.Restaurant) error {
	if len(restaurants) == 0 {
		return nil
	}

	existing, err := ms.restaurants.EstimatedDocumentCount(ctx)
	if err != nil {
		return errors.Wrap(err, "count restaurants")
	}
	if existing > 0 {
		log.WithField("existing", existing).Info("Restaurants already seeded, skipping")
		return nil
	}

	docs := make([]interface{}, 0, len(restaurants))
	for _, r := range restaurants {
		docs = append(docs, r)
	}

	res, err := ms.restaurants.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		log.WithField("failed", len(bulkErr.WriteErrors)).Warn("Some restaurants were not inserted")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "insert restaurants")
	}

	log.WithField("inserted", len(res.InsertedIDs)).Info("Restaurants seeded")
	return nil
}

func (ms *MongoStore) GetUser(ctx context.Context, username string) (*types.UserInDB, error) {
	var user types.UserInDB
	err := ms.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find user %q", username)
	}
	return &user, nil
}

// UpsertUsers writes the given credentials, replacing stored hashes for
// usernames that already exist.
func (ms *MongoStore) UpsertUsers(ctx context.Context, users []types.UserInDB) error {
	for _, u := range users {
		_, err := ms.users.UpdateOne(ctx,
			bson.M{"username": u.Username},
			bson.M{"$set": bson.M{"hashed_password": u.HashedPassword}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return errors.Wrapf(err, "upsert user %q", u.Username)
		}
	}
	return nil
}

func (ms *MongoStore) Close(ctx context.Context) error {
	return ms.Client.Disconnect(ctx)
}
