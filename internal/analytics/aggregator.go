// Package analytics reduces campaign state to aggregate effectiveness
// numbers.
package analytics

import (
	"time"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

// ChannelStats is the delivery record for one channel across all campaigns.
type ChannelStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`

	// SuccessRate is sent / (sent + failed); 1.0 when the channel was never
	// attempted.
	SuccessRate float64 `json:"successRate"`
}

// Snapshot is a point-in-time aggregate over every campaign.
type Snapshot struct {
	TotalCampaigns     int                     `json:"totalCampaigns"`
	ActiveCampaigns    int                     `json:"activeCampaigns"`
	TotalResponses     int                     `json:"totalResponses"`
	TotalAccepts       int                     `json:"totalAccepts"`
	SuccessfulMatches  int                     `json:"successfulMatches"`
	AvgResponseLatency time.Duration           `json:"avgResponseLatencyNs"`
	Channels           map[string]ChannelStats `json:"channels"`
}

// Summarize computes the aggregate snapshot. Every known channel appears in
// the result even with zero traffic.
func Summarize(campaigns []domain.Campaign) Snapshot {
	snapshot := Snapshot{
		TotalCampaigns: len(campaigns),
		Channels:       make(map[string]ChannelStats, 4),
	}

	var latencySum time.Duration

	for i := range campaigns {
		c := &campaigns[i]

		if !c.Status.IsTerminal() {
			snapshot.ActiveCampaigns++
		}
		// Campaigns resolved by a manual close count as matches even when
		// they never passed through COORDINATING.
		if c.MatchedAt != nil || c.Status == domain.StatusResolved {
			snapshot.SuccessfulMatches++
		}

		for j := range c.Responses {
			snapshot.TotalResponses++
			latencySum += c.Responses[j].Latency
			if c.Responses[j].Decision == domain.DecisionAccept {
				snapshot.TotalAccepts++
			}
		}

		for j := range c.DeliveryAttempts {
			attempt := &c.DeliveryAttempts[j]
			name := attempt.Channel.String()
			stats := snapshot.Channels[name]
			if attempt.Outcome == domain.AttemptSent {
				stats.Sent++
			} else {
				stats.Failed++
			}
			snapshot.Channels[name] = stats
		}
	}

	if snapshot.TotalResponses > 0 {
		snapshot.AvgResponseLatency = latencySum / time.Duration(snapshot.TotalResponses)
	}

	for _, ch := range []domain.Channel{domain.ChannelPush, domain.ChannelWhatsApp, domain.ChannelSMS, domain.ChannelEmail} {
		stats := snapshot.Channels[ch.String()]
		total := stats.Sent + stats.Failed
		if total == 0 {
			stats.SuccessRate = 1.0
		} else {
			stats.SuccessRate = float64(stats.Sent) / float64(total)
		}
		snapshot.Channels[ch.String()] = stats
	}

	return snapshot
}
