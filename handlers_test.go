package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if err := InitLogger("listing-locations-test", "test", "error", "json"); err != nil {
		panic(err)
	}
	if err := InitMetrics("listing-locations-test", "test"); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

// fakeListingStore is an in-memory ListingStore for handler tests
type fakeListingStore struct {
	counts map[string]int
	rows   []LocationCount
	types  []PropertyType
	err    error
}

func (f *fakeListingStore) GetCount(ctx context.Context, location string, propertyTypes []int, groupingType string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[location+"|"+propertyTypesKey(propertyTypes)+"|"+groupingType], nil
}

func (f *fakeListingStore) ListLocationCounts(ctx context.Context, groupingType string, propertyTypes []int) ([]LocationCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeListingStore) ListPropertyTypes(ctx context.Context) ([]PropertyType, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.types, nil
}

func (f *fakeListingStore) Close() error { return nil }

// newTestRouter builds the full router over a fake store
func newTestRouter(t *testing.T, store ListingStore) *gin.Engine {
	t.Helper()

	cfg := &Config{}
	cfg.Search.Path = "/idx"
	cfg.Search.CountFootnote = "The number in parentheses is the number of active listings in each location."
	cfg.Monitoring.EnablePrometheus = false

	return setupRouter(cfg, store, NewButtonRenderer(cfg.Search), nil)
}

func doRequest(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetLocationButtons(t *testing.T) {
	store := &fakeListingStore{
		rows: []LocationCount{
			{Location: "35801", Count: 12, LastUpdated: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
			{Location: "35802", Count: 0, LastUpdated: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)},
		},
	}
	router := newTestRouter(t, store)

	w := doRequest(t, router, "/api/locations/buttons?grouping=zip&types=1,2")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "35801 (12)")
	assert.NotContains(t, w.Body.String(), "35802")
	assert.Contains(t, w.Body.String(), "idx-q-PropertyTypes%3C0%3E=1")
	assert.Contains(t, w.Body.String(), `class="footnote"`)
}

func TestGetLocationButtons_DefaultsToZip(t *testing.T) {
	store := &fakeListingStore{
		rows: []LocationCount{
			{Location: "35801", Count: 1, LastUpdated: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		},
	}
	router := newTestRouter(t, store)

	w := doRequest(t, router, "/api/locations/buttons")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `locations-with-counts zip`)
}

func TestGetLocationButtons_InvalidTypes(t *testing.T) {
	router := newTestRouter(t, &fakeListingStore{})

	w := doRequest(t, router, "/api/locations/buttons?types=1,abc")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLocationButtons_StoreError(t *testing.T) {
	router := newTestRouter(t, &fakeListingStore{err: errors.New("connection refused")})

	w := doRequest(t, router, "/api/locations/buttons?grouping=tract")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetLocationCount(t *testing.T) {
	store := &fakeListingStore{
		counts: map[string]int{
			"35801|[1,2]|zip": 42,
		},
	}
	router := newTestRouter(t, store)

	w := doRequest(t, router, "/api/locations/count?location=35801&types=1,2")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp CountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "35801", resp.Location)
	assert.Equal(t, 42, resp.Count)
}

func TestGetLocationCount_GroupingKeysLookup(t *testing.T) {
	// One location aggregated under two grouping modes must resolve to the
	// row matching the requested mode, not an arbitrary one.
	store := &fakeListingStore{
		counts: map[string]int{
			"Madison|[]|county": 9,
			"Madison|[]|zip":    2,
		},
	}
	router := newTestRouter(t, store)

	w := doRequest(t, router, "/api/locations/count?location=Madison&grouping=county")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp CountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 9, resp.Count)

	// Default grouping is zip.
	w = doRequest(t, router, "/api/locations/count?location=Madison")

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
}

func TestGetLocationCount_NoData(t *testing.T) {
	router := newTestRouter(t, &fakeListingStore{counts: map[string]int{}})

	w := doRequest(t, router, "/api/locations/count?location=99999")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp CountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestGetLocationCount_MissingLocation(t *testing.T) {
	router := newTestRouter(t, &fakeListingStore{})

	w := doRequest(t, router, "/api/locations/count")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPropertyTypes(t *testing.T) {
	store := &fakeListingStore{
		types: []PropertyType{
			{ID: 1, Name: "Single Family"},
			{ID: 2, Name: "Condo"},
		},
	}
	router := newTestRouter(t, store)

	w := doRequest(t, router, "/api/property-types")

	assert.Equal(t, http.StatusOK, w.Code)

	var types []PropertyType
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	require.Len(t, types, 2)
	assert.Equal(t, "Single Family", types[0].Name)
}

func TestGetPropertyTypes_EmptyCatalog(t *testing.T) {
	router := newTestRouter(t, &fakeListingStore{})

	w := doRequest(t, router, "/api/property-types")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestGetPropertyTypes_FailsFastOnStoreError(t *testing.T) {
	router := newTestRouter(t, &fakeListingStore{err: errors.New("table missing")})

	w := doRequest(t, router, "/api/property-types")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to load property types")
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &fakeListingStore{})

	w := doRequest(t, router, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestParsePropertyTypes(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int
		wantErr bool
	}{
		{"empty", "", []int{}, false},
		{"single", "1", []int{1}, false},
		{"ordered", "2,1,3", []int{2, 1, 3}, false},
		{"spaces", " 1 , 2 ", []int{1, 2}, false},
		{"garbage", "1,x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePropertyTypes(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
