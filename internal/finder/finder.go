// Package finder consumes the external donor-matching service.
package finder

import (
	"context"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

// Location is a WGS84 point used to center candidate searches.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Finder returns ranked candidate recipients for a blood type around a
// location. Implementations may fail; callers degrade to an empty candidate
// set rather than aborting the campaign.
type Finder interface {
	Find(ctx context.Context, bloodType string, location Location, radiusMeters float64, excludeIDs []string) ([]domain.Recipient, error)
}
