package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/olivere/elastic/v7"
)

// fakeElastic answers the handful of endpoints ElasticStore uses.
type fakeElastic struct {
	mu       sync.Mutex
	hits     []string
	requests []string
	bodies   []string
	exists   bool
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodHead:
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut:
		_, _ = io.WriteString(w, `{"acknowledged":true,"shards_acknowledged":true,"index":"restaurants"}`)
	case r.URL.Path == "/_search/scroll" && r.Method == http.MethodDelete:
		_, _ = io.WriteString(w, `{"succeeded":true,"num_freed":1}`)
	case r.URL.Path == "/_search/scroll":
		_, _ = io.WriteString(w, `{"_scroll_id":"scroll-1","hits":{"total":{"value":0,"relation":"eq"},"hits":[]}}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		items := make([]string, 0, len(f.hits))
		for i, src := range f.hits {
			items = append(items, fmt.Sprintf(`{"_index":"restaurants","_id":"%d","_score":1,"_source":%s}`, i, src))
		}
		fmt.Fprintf(w, `{"_scroll_id":"scroll-1","took":1,"hits":{"total":{"value":%d,"relation":"eq"},"hits":[%s]}}`,
			len(items), strings.Join(items, ","))
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		_, _ = io.WriteString(w, `{"took":3,"errors":false,"items":[{"index":{"_index":"restaurants","_id":"1","status":201,"result":"created"}}]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeElastic) body(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 {
		i = len(f.bodies) + i
	}
	return f.bodies[i]
}

func (f *fakeElastic) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func newTestElasticStore(t *testing.T, fake *fakeElastic) *ElasticStore {
	t.Helper()
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	store, err := NewElasticStore(ts.URL, "restaurants", elastic.SetHealthcheck(false))
	if err != nil {
		t.Fatalf("NewElasticStore: %v", err)
	}
	return store
}

func TestElasticStoreFindWithin(t *testing.T) {
	fake := &fakeElastic{hits: []string{
		`{"name":"Bagel Bar","borough":"Queens","cuisine":"Bagels","address":{"coord":[-73.8,40.7]},"grades":[{"date":"2014-03-03T00:00:00Z","grade":"A","score":4}]}`,
		`{"name":"Noodle House","borough":"Queens","cuisine":"Chinese","address":{"coord":[-73.81,40.71]},"grades":[]}`,
	}}
	store := newTestElasticStore(t, fake)

	got, err := store.FindWithin(context.Background(), center, 2000)
	if err != nil {
		t.Fatalf("FindWithin returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d restaurants, want 2", len(got))
	}
	if got[0].Name != "Bagel Bar" || got[0].Grades[0].Score != 4 {
		t.Errorf("unexpected first restaurant %+v", got[0])
	}
	if got[1].Address.Coord[1] != 40.71 {
		t.Errorf("coord = %v", got[1].Address.Coord)
	}

	first := fake.body(0)
	if !strings.Contains(first, `"geo_distance"`) || !strings.Contains(first, `"distance":"2000m"`) {
		t.Errorf("search body %s does not carry the radius filter", first)
	}
}

func TestElasticStoreFindBetweenEmpty(t *testing.T) {
	fake := &fakeElastic{}
	store := newTestElasticStore(t, fake)

	got, err := store.FindBetween(context.Background(), center, 50, 100)
	if err != nil {
		t.Fatalf("FindBetween returned error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty non-nil slice", got)
	}
	if !strings.Contains(fake.body(0), `"must_not"`) {
		t.Errorf("search body %s does not exclude the inner circle", fake.body(0))
	}
}

func TestElasticStoreFindUndecodableHit(t *testing.T) {
	fake := &fakeElastic{hits: []string{
		`{"name":"Bagel Bar","cuisine":"Bagels","address":{"coord":[-73.8,40.7]}}`,
		`{"name":123,"cuisine":"Chinese","address":{"coord":[-73.81,40.71]}}`,
	}}
	store := newTestElasticStore(t, fake)

	got, err := store.FindWithin(context.Background(), center, 2000)
	if err == nil {
		t.Fatalf("FindWithin returned %d restaurants and no error, want error", len(got))
	}
	if got != nil {
		t.Errorf("got %#v alongside error, want nil", got)
	}
	if !strings.Contains(err.Error(), "decode hit 1") {
		t.Errorf("err = %v, want it to name the bad hit", err)
	}
}

func TestElasticStoreCreateIndexWithMapping(t *testing.T) {
	mapping := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(mapping, []byte(`{"mappings":{"properties":{"address":{"properties":{"coord":{"type":"geo_point"}}}}}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("creates missing index", func(t *testing.T) {
		fake := &fakeElastic{}
		store := newTestElasticStore(t, fake)
		if err := store.CreateIndexWithMapping(context.Background(), mapping); err != nil {
			t.Fatalf("CreateIndexWithMapping: %v", err)
		}
		requests := fake.recorded()
		if got := requests[len(requests)-1]; got != "PUT /restaurants" {
			t.Errorf("last request = %q, want PUT /restaurants", got)
		}
		if !strings.Contains(fake.body(-1), "geo_point") {
			t.Errorf("mapping was not sent")
		}
	})

	t.Run("keeps existing index", func(t *testing.T) {
		fake := &fakeElastic{exists: true}
		store := newTestElasticStore(t, fake)
		if err := store.CreateIndexWithMapping(context.Background(), mapping); err != nil {
			t.Fatalf("CreateIndexWithMapping: %v", err)
		}
		for _, req := range fake.recorded() {
			if strings.HasPrefix(req, "PUT") {
				t.Errorf("unexpected %s for existing index", req)
			}
		}
	})
}

func TestElasticStoreSeed(t *testing.T) {
	fake := &fakeElastic{}
	store := newTestElasticStore(t, fake)

	restaurants, err := DecodeRestaurants(strings.NewReader(sampleSeed))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Seed(context.Background(), restaurants); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	body := fake.body(-1)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) != 4 {
		t.Fatalf("bulk body has %d lines, want 4 (two action/doc pairs):\n%s", len(lines), body)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &doc); err != nil {
		t.Fatalf("bulk doc is not JSON: %v", err)
	}
	if _, ok := doc["_id"]; ok {
		t.Errorf("document source must not carry _id: %v", doc)
	}
	if doc["name"] != "Morris Park Bake Shop" {
		t.Errorf("name = %v", doc["name"])
	}
}
