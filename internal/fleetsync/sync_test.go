package fleetsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtransport-dispatch/config"
	"medtransport-dispatch/internal/model"
)

// mockStore is a mock implementation of the UnitWriter interface.
type mockStore struct {
	mu              sync.Mutex
	UpsertUnitsFunc func(ctx context.Context, units []model.Unit) error
	calls           [][]model.Unit
}

func (m *mockStore) UpsertUnits(ctx context.Context, units []model.Unit) error {
	m.mu.Lock()
	m.calls = append(m.calls, units)
	m.mu.Unlock()
	if m.UpsertUnitsFunc == nil {
		return nil
	}
	return m.UpsertUnitsFunc(ctx, units)
}

func fleetConfig(url string) *config.FleetConfig {
	return &config.FleetConfig{
		Enabled:         true,
		Interval:        time.Hour,
		Timezone:        "America/New_York",
		TimestampLayout: "2006-01-02 15:04:05",
		DefaultStatus:   "OFF_DUTY",
		Request: config.FleetRequest{
			URL:      url,
			PageSize: 2,
			Headers:  map[string]string{"Authorization": "Bearer t"},
			Payload:  map[string]any{"active": true},
		},
	}
}

func page(total int, items ...ApiUnit) ApiResponse {
	var resp ApiResponse
	resp.Data.Total = total
	resp.Data.Items = items
	return resp
}

func lat(v float64) *float64 { return &v }

func TestSyncOnce_PaginatesAndNormalises(t *testing.T) {
	org := uuid.NewString()
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()
	seen := "2025-03-01 08:30:00"

	var mu sync.Mutex
	var pages []float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["active"])
		p := body["page"].(float64)
		mu.Lock()
		pages = append(pages, p)
		mu.Unlock()

		switch p {
		case 1:
			json.NewEncoder(w).Encode(page(3,
				ApiUnit{ID: a, OrganizationID: org, DisplayID: "M-1", Status: "available",
					Capabilities: json.RawMessage(`"{\"can_do_cct\":true}"`),
					Latitude:     lat(40.7), Longitude: lat(-74), LocationTime: &seen,
					FatigueLevel: "MEDIUM", CrewIDs: json.RawMessage(`"p1, e2"`)},
				ApiUnit{ID: b, OrganizationID: org, DisplayID: "M-2"},
			))
		case 2:
			json.NewEncoder(w).Encode(page(3,
				ApiUnit{ID: c, OrganizationID: "not-a-uuid", DisplayID: "M-3"},
			))
		}
	}))
	defer server.Close()

	store := &mockStore{}
	svc := NewService(fleetConfig(server.URL), store)

	n, err := svc.SyncOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []float64{1, 2}, pages)
	require.Len(t, store.calls, 1)
	units := store.calls[0]
	require.Len(t, units, 2)

	m1 := units[0]
	assert.Equal(t, "AVAILABLE", m1.Status)
	assert.Equal(t, "MODERATE", m1.FatigueLevel)
	assert.Equal(t, []string{"p1", "e2"}, m1.CrewIDs)
	assert.Equal(t, `"{\"can_do_cct\":true}"`, m1.Capabilities)
	require.NotNil(t, m1.LocationUpdatedAt)
	assert.Equal(t, time.Date(2025, 3, 1, 13, 30, 0, 0, time.UTC), *m1.LocationUpdatedAt)

	m2 := units[1]
	assert.Equal(t, "OFF_DUTY", m2.Status)
	assert.Nil(t, m2.Latitude)
	assert.Nil(t, m2.LocationUpdatedAt)
}

func TestSyncOnce_FlushesCachedResponsesAfterWrite(t *testing.T) {
	org := uuid.NewString()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(page(1, ApiUnit{ID: uuid.NewString(), OrganizationID: org, DisplayID: "M-1", FatigueLevel: "HIGH"}))
	}))
	defer server.Close()

	responses := cache.New(time.Minute, time.Minute)
	responses.Set("/api/incidents/x/recommendations", []byte("{}"), cache.DefaultExpiration)

	svc := NewService(fleetConfig(server.URL), &mockStore{})
	svc.OnUpdate(responses.Flush)
	n, err := svc.SyncOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, responses.ItemCount())
}

func TestSyncOnce_FailedWriteKeepsCachedResponses(t *testing.T) {
	org := uuid.NewString()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(page(1, ApiUnit{ID: uuid.NewString(), OrganizationID: org, DisplayID: "M-1"}))
	}))
	defer server.Close()

	flushed := 0
	store := &mockStore{UpsertUnitsFunc: func(context.Context, []model.Unit) error {
		return assert.AnError
	}}
	svc := NewService(fleetConfig(server.URL), store)
	svc.OnUpdate(func() { flushed++ })

	_, err := svc.SyncOnce(context.Background())

	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, flushed)
}

func TestSyncOnce_FetchErrorLeavesDataUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	store := &mockStore{}
	n, err := NewService(fleetConfig(server.URL), store).SyncOnce(context.Background())

	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.calls)
}

func TestSyncOnce_PartialFetchWritesWhatArrived(t *testing.T) {
	org := uuid.NewString()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["page"].(float64) == 2 {
			json.NewEncoder(w).Encode(map[string]any{"code": 500})
			return
		}
		json.NewEncoder(w).Encode(page(4,
			ApiUnit{ID: uuid.NewString(), OrganizationID: org, DisplayID: "M-1"},
			ApiUnit{ID: uuid.NewString(), OrganizationID: org, DisplayID: "M-2"},
		))
	}))
	defer server.Close()

	store := &mockStore{}
	n, err := NewService(fleetConfig(server.URL), store).SyncOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.calls, 1)
}

func TestSyncOnce_EmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(page(0))
	}))
	defer server.Close()

	store := &mockStore{}
	n, err := NewService(fleetConfig(server.URL), store).SyncOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.calls)
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	cfg := fleetConfig("http://127.0.0.1:1")
	cfg.Enabled = false
	store := &mockStore{}

	done := make(chan struct{})
	go func() {
		NewService(cfg, store).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for a disabled service")
	}
	assert.Empty(t, store.calls)
}

func TestRun_SyncsUntilCancelled(t *testing.T) {
	org := uuid.NewString()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(page(1, ApiUnit{ID: uuid.NewString(), OrganizationID: org, DisplayID: "M-1"}))
	}))
	defer server.Close()

	synced := make(chan struct{}, 1)
	store := &mockStore{UpsertUnitsFunc: func(context.Context, []model.Unit) error {
		select {
		case synced <- struct{}{}:
		default:
		}
		return nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewService(fleetConfig(server.URL), store).Run(ctx)
		close(done)
	}()

	select {
	case <-synced:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the first sync")
	}
	cancel()
	<-done
}
