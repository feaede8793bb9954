package db

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"

	"restaurantfinder/src/types"
)

// ReadRestaurants loads a mongoexport-style file: one extended JSON
// restaurant document per line.
func ReadRestaurants(path string) ([]types.Restaurant, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open seed file")
	}
	defer file.Close()

	return DecodeRestaurants(file)
}

func DecodeRestaurants(r io.Reader) ([]types.Restaurant, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var restaurants []types.Restaurant
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var restaurant types.Restaurant
		if err := bson.UnmarshalExtJSON(text, false, &restaurant); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		restaurants = append(restaurants, restaurant)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read seed file")
	}
	return restaurants, nil
}
