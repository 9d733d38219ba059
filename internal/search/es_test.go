package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
}

func (f *fakeES) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":3},"hits":[{"_id":"7"},{"_id":"x"},{"_id":"3"}]}}`)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result":"not_found"}`)
	default:
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	}
}

func newIndex(t *testing.T) (*Index, *fakeES) {
	t.Helper()
	f := &fakeES{}
	srv := httptest.NewServer(http.HandlerFunc(f.handler))
	t.Cleanup(srv.Close)

	ix, err := New(Config{URL: srv.URL})
	require.NoError(t, err)
	return ix, f
}

func TestSearchIDs(t *testing.T) {
	ix, f := newIndex(t)

	ids, err := ix.SearchIDs(context.Background(), "phone", 50)
	require.NoError(t, err)
	assert.Equal(t, []uint{7, 3}, ids)

	require.Len(t, f.requests, 1)
	assert.Equal(t, "POST /products/_search", f.requests[0])

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.bodies[0]), &body))
	assert.EqualValues(t, 50, body["size"])
}

func TestIndexAndDelete(t *testing.T) {
	ix, f := newIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexProduct(ctx, &models.Product{ID: 12, Name: "Laptop", Brand: "Acme", CategoryID: 2}))
	require.NoError(t, ix.DeleteProduct(ctx, 12))

	require.Len(t, f.requests, 2)
	assert.Equal(t, "PUT /products/_doc/12", f.requests[0])
	assert.Contains(t, f.bodies[0], `"brand":"Acme"`)
	assert.Equal(t, "DELETE /products/_doc/12", f.requests[1])
}
