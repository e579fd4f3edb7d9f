package scoring

import (
	"testing"
	"time"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

func TestScore(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	in := func(d time.Duration) *time.Time {
		at := now.Add(d)
		return &at
	}
	age := func(a int) *int { return &a }

	tests := []struct {
		name string
		req  Request
		want int
	}{
		{
			name: "critical rare within two hours",
			req: Request{
				Urgency:   domain.UrgencyCritical,
				BloodType: "O-",
				NeededBy:  in(time.Hour),
			},
			want: 155,
		},
		{
			name: "urgent common no deadline",
			req: Request{
				Urgency:   domain.UrgencyUrgent,
				BloodType: "A+",
			},
			want: 75,
		},
		{
			name: "normal rare near deadline",
			req: Request{
				Urgency:   domain.UrgencyNormal,
				BloodType: "B-",
				NeededBy:  in(4 * time.Hour),
			},
			want: 90,
		},
		{
			name: "scheduled falls to base bonus",
			req: Request{
				Urgency:   domain.UrgencyScheduled,
				BloodType: "O+",
				NeededBy:  in(48 * time.Hour),
			},
			want: 25,
		},
		{
			name: "pediatric bonus applies under 18",
			req: Request{
				Urgency:    domain.UrgencyCritical,
				BloodType:  "A+",
				PatientAge: age(7),
			},
			want: 120,
		},
		{
			name: "adult patient earns no pediatric bonus",
			req: Request{
				Urgency:    domain.UrgencyCritical,
				BloodType:  "A+",
				PatientAge: age(42),
			},
			want: 100,
		},
		{
			name: "all bonuses stack",
			req: Request{
				Urgency:    domain.UrgencyCritical,
				BloodType:  "AB-",
				PatientAge: age(5),
				NeededBy:   in(30 * time.Minute),
			},
			want: 175,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Score(tt.req, now); got != tt.want {
				t.Fatalf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreIsMonotonicUnderEscalation(t *testing.T) {
	t.Parallel()

	score := Score(Request{Urgency: domain.UrgencyCritical, BloodType: "O-"}, time.Now())
	for i := 0; i < 10; i++ {
		next := domain.ClampPriority(score + 25)
		if next < score {
			t.Fatalf("escalated score %d decreased below %d", next, score)
		}
		score = next
	}
	if score != domain.MaxPriorityScore {
		t.Fatalf("score after repeated escalation = %d, want %d", score, domain.MaxPriorityScore)
	}
}
