package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/OCAP2/mapdrive/internal/geo"
	"github.com/OCAP2/mapdrive/pkg/core"
)

// Client talks to an OSRM-compatible routing server.
type Client struct {
	baseURL    string
	profile    string
	httpClient *http.Client
}

// New creates a routing client for one profile (e.g. "driving", "foot").
func New(baseURL, profile string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    profile,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

func (c *Client) routeURL(origin, destination core.LngLat) string {
	return fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, c.profile, origin.Lng, origin.Lat, destination.Lng, destination.Lat)
}

// ComputeRoute requests the fastest route between origin and destination.
func (c *Client) ComputeRoute(ctx context.Context, origin, destination core.LngLat) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.routeURL(origin, destination), nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	var body routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Result{}, fmt.Errorf("route returned status %d", resp.StatusCode)
		}
		return Result{}, fmt.Errorf("failed to decode route: %w", err)
	}
	if resp.StatusCode != http.StatusOK || body.Code != "Ok" {
		return Result{}, fmt.Errorf("route returned status %d: %s %s", resp.StatusCode, body.Code, body.Message)
	}
	if len(body.Routes) == 0 {
		return Result{}, fmt.Errorf("route response has no routes")
	}

	r := body.Routes[0]
	geometry, err := geo.PolylineFromCoordinates(r.Geometry.Coordinates)
	if err != nil {
		return Result{}, fmt.Errorf("invalid route geometry: %w", err)
	}
	return Result{Geometry: geometry, Distance: r.Distance, Duration: r.Duration}, nil
}
