package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/eguard/eguard-backend/internal/models"
)

const recentChecksOnDashboard = 3

// staleAfter is how old the last check may get before the dashboard suggests
// checking again.
const staleAfter = 30 * 24 * time.Hour

type Dashboard struct {
	User          models.UserSummary
	Stats         models.UserStats
	RecentChecks  []models.EmailCheck
	SecurityScore models.SecurityScore
}

type DashboardService struct {
	users  UserStore
	checks CheckStore
	now    func() time.Time
}

func NewDashboardService(users UserStore, checks CheckStore) *DashboardService {
	return &DashboardService{users: users, checks: checks, now: time.Now}
}

func (s *DashboardService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	oid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	stats, err := s.checks.Stats(ctx, oid, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	recent, err := s.checks.List(ctx, oid, 0, recentChecksOnDashboard)
	if err != nil {
		return nil, fmt.Errorf("dashboard recent checks: %w", err)
	}

	return &Dashboard{
		User:          user.Summary(),
		Stats:         stats,
		RecentChecks:  recent,
		SecurityScore: SecurityScore(stats, s.now()),
	}, nil
}

// Analytics reports check counts for the last 7, 30 and 90 days.
func (s *DashboardService) Analytics(ctx context.Context, userID string) (models.Analytics, error) {
	oid, err := parseUserID(userID)
	if err != nil {
		return models.Analytics{}, err
	}

	now := s.now().UTC()
	window := func(days int) (models.WindowStats, error) {
		stats, err := s.checks.Stats(ctx, oid, now.AddDate(0, 0, -days))
		if err != nil {
			return models.WindowStats{}, fmt.Errorf("analytics %dd: %w", days, err)
		}
		return stats.Window(), nil
	}

	var out models.Analytics
	if out.Last7Days, err = window(7); err != nil {
		return models.Analytics{}, err
	}
	if out.Last30Days, err = window(30); err != nil {
		return models.Analytics{}, err
	}
	if out.Last90Days, err = window(90); err != nil {
		return models.Analytics{}, err
	}
	return out, nil
}

// SecurityScore is the share of safe checks on a 0-100 scale. A user with no
// checks scores 100.
func SecurityScore(stats models.UserStats, now time.Time) models.SecurityScore {
	score := 100
	if stats.TotalChecks > 0 {
		score = int(math.Round(100 * float64(stats.SafeCount) / float64(stats.TotalChecks)))
	}

	var recs []string
	switch {
	case stats.TotalChecks == 0:
		recs = append(recs, "Run your first email check to see if your accounts are exposed")
	case stats.BreachedCount > 0:
		recs = append(recs,
			"Change the passwords of accounts tied to compromised emails",
			"Enable two-factor authentication wherever it is offered",
		)
	default:
		recs = append(recs, "Keep up the good work!")
	}
	if stats.LastCheck != nil && now.Sub(*stats.LastCheck) > staleAfter {
		recs = append(recs, "Check your emails again, new breaches are published regularly")
	}

	return models.SecurityScore{Score: score, Rating: rating(score), Recommendations: recs}
}

func rating(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 70:
		return "Good"
	case score >= 40:
		return "Fair"
	default:
		return "At Risk"
	}
}
