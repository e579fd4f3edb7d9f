// Package facility notifies the requesting facility and broader emergency
// contacts. All calls are fire-and-forget: failures are logged, never
// retried by this engine.
package facility

import (
	"context"
	"time"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

// ContactSink receives campaign progress events destined for humans at the
// facility.
type ContactSink interface {
	// NotifyAcceptance reports a single recipient's acceptance.
	NotifyAcceptance(ctx context.Context, campaignID string, fac domain.Facility, recipientID string, estimatedArrival *time.Time)
	// NotifySchedule reports the final recipient list with assigned slots.
	NotifySchedule(ctx context.Context, campaignID string, fac domain.Facility, slots []domain.SlotAssignment)
	// BroadcastEscalation alerts broader emergency contacts and nearby
	// facilities after an escalation.
	BroadcastEscalation(ctx context.Context, campaignID string, fac domain.Facility, priorityScore int, radiusMeters float64)
}

// Nop discards all notifications; used when no facility gateway is
// configured.
type Nop struct{}

func (Nop) NotifyAcceptance(context.Context, string, domain.Facility, string, *time.Time) {}

func (Nop) NotifySchedule(context.Context, string, domain.Facility, []domain.SlotAssignment) {}

func (Nop) BroadcastEscalation(context.Context, string, domain.Facility, int, float64) {}
