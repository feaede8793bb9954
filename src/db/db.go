package db

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/olivere/elastic/v7"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"restaurantfinder/src/types"
)

const scrollPageSize = 500

// ElasticStore serves restaurants from an Elasticsearch index whose
// address.coord field is mapped as a geo_point.
type ElasticStore struct {
	Client *elastic.Client
	Index  string
}

func NewElasticStore(url, index string, options ...elastic.ClientOptionFunc) (*ElasticStore, error) {
	opts := append([]elastic.ClientOptionFunc{elastic.SetURL(url), elastic.SetSniff(false)}, options...)
	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create elasticsearch client")
	}
	return &ElasticStore{Client: client, Index: index}, nil
}

func (es *ElasticStore) FindWithin(ctx context.Context, center types.Location, radius float64) ([]types.Restaurant, error) {
	return es.search(ctx, RadiusQuery(center, radius))
}

func (es *ElasticStore) FindBetween(ctx context.Context, center types.Location, minDistance, maxDistance float64) ([]types.Restaurant, error) {
	return es.search(ctx, AnnulusQuery(center, minDistance, maxDistance))
}

// search scrolls through every hit so callers get all matches, not one page.
func (es *ElasticStore) search(ctx context.Context, query elastic.Query) ([]types.Restaurant, error) {
	scroll := es.Client.Scroll(es.Index).Query(query).Size(scrollPageSize)
	defer func() {
		if err := scroll.Clear(context.Background()); err != nil {
			log.WithError(err).Debug("Clearing scroll failed")
		}
	}()

	restaurants := []types.Restaurant{}
	for {
		res, err := scroll.Do(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "search restaurants")
		}

		for _, hit := range res.Hits.Hits {
			var r types.Restaurant
			if err := json.Unmarshal(hit.Source, &r); err != nil {
				return nil, errors.Wrapf(err, "decode hit %s", hit.Id)
			}
			restaurants = append(restaurants, r)
		}
	}
	return restaurants, nil
}

// CreateIndexWithMapping creates the index from the mapping file unless it
// already exists.
func (es *ElasticStore) CreateIndexWithMapping(ctx context.Context, pathMapping string) error {
	exists, err := es.Client.IndexExists(es.Index).Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "check index %s", es.Index)
	}
	if exists {
		log.WithField("index", es.Index).Info("Index already exists")
		return nil
	}

	mapping, err := os.ReadFile(pathMapping)
	if err != nil {
		return errors.Wrap(err, "read index mapping")
	}

	createIndex, err := es.Client.CreateIndex(es.Index).BodyString(string(mapping)).Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "create index %s", es.Index)
	}
	if !createIndex.Acknowledged {
		log.Warn("CreateIndex was not acknowledged. Check that timeout value is correct.")
	}

	log.WithField("index", es.Index).Info("Index created")
	return nil
}

// Seed bulk-indexes restaurants. Per-item failures are logged, not returned.
func (es *ElasticStore) Seed(ctx context.Context, restaurants []types.Restaurant) error {
	if len(restaurants) == 0 {
		return nil
	}

	bulkRequest := es.Client.Bulk().Refresh("wait_for")
	for _, r := range restaurants {
		req := elastic.NewBulkIndexRequest().Index(es.Index).Doc(r)
		if !r.ID.IsZero() {
			req = req.Id(r.ID.Hex())
		}
		bulkRequest = bulkRequest.Add(req)
	}

	bulkResponse, err := bulkRequest.Do(ctx)
	if err != nil {
		return errors.Wrap(err, "bulk index restaurants")
	}

	for _, item := range bulkResponse.Failed() {
		if item.Error != nil {
			log.WithField("id", item.Id).Warnf("Failed to index restaurant: %s", item.Error.Reason)
		}
	}
	log.WithField("indexed", len(bulkResponse.Succeeded())).Info("Restaurants seeded")
	return nil
}

func (es *ElasticStore) Close(context.Context) error {
	es.Client.Stop()
	return nil
}
