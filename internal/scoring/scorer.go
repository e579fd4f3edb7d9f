// Package scoring computes urgency priority scores for blood requests.
package scoring

import (
	"time"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

const (
	baseCritical = 100
	baseUrgent   = 75
	baseNormal   = 50
	baseOther    = 25

	rareBloodBonus = 25
	pediatricBonus = 20

	timePressureTight = 30
	timePressureNear  = 15

	pediatricAgeLimit = 18

	tightWindow = 2 * time.Hour
	nearWindow  = 6 * time.Hour
)

// Request carries the attributes that contribute to a priority score. Missing
// optional fields contribute zero.
type Request struct {
	Urgency    domain.Urgency
	BloodType  string
	PatientAge *int
	NeededBy   *time.Time
}

// Score returns the additive priority score for a request, clamped to
// [0, 200]. Pure and deterministic for a fixed now.
func Score(req Request, now time.Time) int {
	score := 0

	switch req.Urgency {
	case domain.UrgencyCritical:
		score += baseCritical
	case domain.UrgencyUrgent:
		score += baseUrgent
	case domain.UrgencyNormal:
		score += baseNormal
	default:
		score += baseOther
	}

	if domain.IsRareBloodType(req.BloodType) {
		score += rareBloodBonus
	}

	if req.PatientAge != nil && *req.PatientAge < pediatricAgeLimit {
		score += pediatricBonus
	}

	if req.NeededBy != nil {
		remaining := req.NeededBy.Sub(now)
		switch {
		case remaining < tightWindow:
			score += timePressureTight
		case remaining < nearWindow:
			score += timePressureNear
		}
	}

	return domain.ClampPriority(score)
}
