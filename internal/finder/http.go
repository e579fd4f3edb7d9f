package finder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

const defaultFindTimeout = 5 * time.Second

type findRequest struct {
	BloodType    string   `json:"bloodType"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	RadiusMeters float64  `json:"radiusMeters"`
	ExcludeIDs   []string `json:"excludeIds,omitempty"`
}

type findResponse struct {
	Candidates []domain.Recipient `json:"candidates"`
}

// HTTPFinder calls the matching service's candidate search endpoint.
type HTTPFinder struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPFinder(endpoint string) (*HTTPFinder, error) {
	client := resty.New()
	client.SetTimeout(defaultFindTimeout)
	client.SetRetryCount(0)

	return NewHTTPFinderWithClient(endpoint, client)
}

func NewHTTPFinderWithClient(endpoint string, client *resty.Client) (*HTTPFinder, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("finder endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid finder endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	return &HTTPFinder{client: client, endpoint: trimmedEndpoint}, nil
}

func (f *HTTPFinder) Find(
	ctx context.Context,
	bloodType string,
	location Location,
	radiusMeters float64,
	excludeIDs []string,
) ([]domain.Recipient, error) {
	if f == nil || f.client == nil {
		return nil, fmt.Errorf("finder is not initialized")
	}

	var body findResponse
	response, err := f.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(findRequest{
			BloodType:    bloodType,
			Latitude:     location.Latitude,
			Longitude:    location.Longitude,
			RadiusMeters: radiusMeters,
			ExcludeIDs:   excludeIDs,
		}).
		SetResult(&body).
		Post(f.endpoint)
	if err != nil {
		return nil, fmt.Errorf("candidate lookup failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("candidate lookup returned status %d", response.StatusCode())
	}

	candidates := make([]domain.Recipient, 0, len(body.Candidates))
	for _, candidate := range body.Candidates {
		if candidate.Validate() != nil {
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}
