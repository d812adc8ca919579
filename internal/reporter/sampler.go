package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"fieldagent/internal/trackbuf"
)

// Sampler produces the next location fix.
type Sampler interface {
	Sample(ctx context.Context) (*trackbuf.Fix, error)
}

// GeoIPSampler resolves a coarse device position from an IP-geolocation
// endpoint. Agents on hardware with a real positioning source plug in their
// own Sampler instead.
type GeoIPSampler struct {
	endpoint   string
	httpClient *http.Client
}

func NewGeoIPSampler(endpoint string) *GeoIPSampler {
	return &GeoIPSampler{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type geoResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (s *GeoIPSampler) Sample(ctx context.Context) (*trackbuf.Fix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build geo request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query geo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo endpoint returned %d", resp.StatusCode)
	}

	var payload geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode geo response: %w", err)
	}

	return &trackbuf.Fix{
		ID:         uuid.NewString(),
		Lat:        payload.Lat,
		Lon:        payload.Lon,
		RecordedAt: time.Now().UTC(),
	}, nil
}
