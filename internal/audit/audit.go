// Package audit persists a durable record of delivery attempts, responses,
// and closed campaigns. Sinks are best-effort: a write failure is logged,
// never surfaced to the caller.
package audit

import (
	"context"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

// Sink records campaign activity for offline analysis.
type Sink interface {
	RecordAttempt(ctx context.Context, campaignID string, attempt domain.DeliveryAttempt)
	RecordResponse(ctx context.Context, campaignID string, response domain.Response)
	ArchiveCampaign(ctx context.Context, c domain.Campaign)
}

// Nop is a Sink that discards everything; used when no database is configured.
type Nop struct{}

func (Nop) RecordAttempt(context.Context, string, domain.DeliveryAttempt) {}
func (Nop) RecordResponse(context.Context, string, domain.Response)      {}
func (Nop) ArchiveCampaign(context.Context, domain.Campaign)             {}
