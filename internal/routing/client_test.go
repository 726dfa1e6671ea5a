package routing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	origin      = core.LngLat{Lng: 2.3522, Lat: 48.8566}
	destination = core.LngLat{Lng: 2.2945, Lat: 48.8584}
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "driving", 0)
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
}

func TestComputeRoute_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/route/v1/driving/2.352200,48.856600;2.294500,48.858400"), r.URL.Path)
		assert.Equal(t, "geojson", r.URL.Query().Get("geometries"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":{"type":"LineString",
			"coordinates":[[2.3522,48.8566],[2.33,48.86],[2.2945,48.8584]]},"distance":4800.5,"duration":610}]}`))
	}))
	defer server.Close()

	c := New(server.URL, "driving", time.Second)
	res, err := c.ComputeRoute(context.Background(), origin, destination)
	require.NoError(t, err)
	assert.Len(t, res.Geometry, 3)
	assert.Equal(t, 4800.5, res.Distance)
	assert.Equal(t, 610.0, res.Duration)
}

func TestComputeRoute_NoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "driving", time.Second).ComputeRoute(context.Background(), origin, destination)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoRoute")
}

func TestComputeRoute_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL, "driving", time.Second).ComputeRoute(context.Background(), origin, destination)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestComputeRoute_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := New(server.URL, "driving", time.Minute).ComputeRoute(ctx, origin, destination)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestComputeRoute_ServerDown(t *testing.T) {
	_, err := New("http://localhost:59999", "driving", time.Second).ComputeRoute(context.Background(), origin, destination)
	assert.Error(t, err)
}

func TestStraight(t *testing.T) {
	res, err := Straight{Speed: 10}.ComputeRoute(context.Background(), origin, destination)
	require.NoError(t, err)
	assert.Equal(t, core.Polyline{origin, destination}, res.Geometry)
	assert.InDelta(t, 4220, res.Distance, 30)
	assert.InDelta(t, res.Distance/10, res.Duration, 1e-9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Straight{}.ComputeRoute(ctx, origin, destination)
	assert.ErrorIs(t, err, context.Canceled)
}

type namedService string

func (n namedService) ComputeRoute(ctx context.Context, origin, destination core.LngLat) (Result, error) {
	return Result{Distance: float64(len(n))}, nil
}

func TestByMode(t *testing.T) {
	mode := core.ModeCar
	b := ByMode{Car: namedService("c"), Walking: namedService("ww"), Mode: func() core.Mode { return mode }}

	res, err := b.ComputeRoute(context.Background(), origin, destination)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Distance)

	mode = core.ModeWalking
	res, err = b.ComputeRoute(context.Background(), origin, destination)
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Distance)

	mode = core.Mode("boat")
	_, err = b.ComputeRoute(context.Background(), origin, destination)
	assert.Error(t, err)

	// Walking falls back to the car service when no foot profile is set.
	mode = core.ModeWalking
	res, err = ByMode{Car: namedService("c"), Mode: func() core.Mode { return mode }}.ComputeRoute(context.Background(), origin, destination)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Distance)
}
