// Package storetest provides in-memory stores for service and handler tests.
// They apply the same validation and ownership rules as the Mongo stores.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/models"
)

type Users struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func NewUsers() *Users {
	return &Users{users: map[primitive.ObjectID]models.User{}}
}

func (s *Users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if err := models.ValidateUser(u); err != nil {
		return err
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return apperr.Conflict("User already exists with this email")
		}
	}
	u.ID = primitive.NewObjectID()
	s.users[u.ID] = *u
	return nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (s *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return &u, nil
}

// Checks is an in-memory CheckStore. Setting StatsErr makes Stats fail, which
// exercises the degraded path after a successful insert.
type Checks struct {
	mu       sync.Mutex
	checks   []models.EmailCheck
	StatsErr error
	// ListCalls counts List queries.
	ListCalls int
}

func NewChecks() *Checks {
	return &Checks{}
}

func (s *Checks) Create(_ context.Context, c *models.EmailCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if c.CheckedAt.IsZero() {
		c.CheckedAt = now
	}
	c.CreatedAt, c.UpdatedAt = now, now
	if c.BreachDetails == nil {
		c.BreachDetails = []models.BreachDetail{}
	}
	if err := models.ValidateEmailCheck(c); err != nil {
		return err
	}
	c.ID = primitive.NewObjectID()
	s.checks = append(s.checks, *c)
	return nil
}

func (s *Checks) List(_ context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.EmailCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ListCalls++
	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("storetest: negative skip %d or limit %d", skip, limit)
	}

	owned := s.owned(userID)
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].CheckedAt.After(owned[j].CheckedAt) })

	out := []models.EmailCheck{}
	for i := skip; i < int64(len(owned)) && int64(len(out)) < limit; i++ {
		out = append(out, owned[i])
	}
	return out, nil
}

func (s *Checks) Count(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.owned(userID))), nil
}

func (s *Checks) Stats(_ context.Context, userID primitive.ObjectID, since time.Time) (models.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.StatsErr != nil {
		return models.UserStats{}, s.StatsErr
	}

	var stats models.UserStats
	emails := map[string]struct{}{}
	for _, c := range s.owned(userID) {
		if !since.IsZero() && c.CheckedAt.Before(since) {
			continue
		}
		stats.TotalChecks++
		if c.Breached {
			stats.BreachedCount++
		}
		stats.TotalBreaches += int64(c.Breaches)
		emails[c.Email] = struct{}{}
		if stats.LastCheck == nil || c.CheckedAt.After(*stats.LastCheck) {
			at := c.CheckedAt
			stats.LastCheck = &at
		}
	}
	stats.UniqueEmailCount = int64(len(emails))
	stats.SafeCount = stats.TotalChecks - stats.BreachedCount
	return stats, nil
}

func (s *Checks) FindOwned(_ context.Context, userID, checkID primitive.ObjectID) (*models.EmailCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.checks {
		if c.ID == checkID && c.UserID == userID {
			return &c, nil
		}
	}
	return nil, apperr.NotFound("Email check record not found")
}

func (s *Checks) DeleteOwned(_ context.Context, userID, checkID primitive.ObjectID) (*models.EmailCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.checks {
		if c.ID == checkID && c.UserID == userID {
			s.checks = append(s.checks[:i], s.checks[i+1:]...)
			return &c, nil
		}
	}
	return nil, apperr.NotFound("Email check record not found")
}

// All returns a copy of every stored check regardless of owner.
func (s *Checks) All() []models.EmailCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.EmailCheck(nil), s.checks...)
}

func (s *Checks) owned(userID primitive.ObjectID) []models.EmailCheck {
	var out []models.EmailCheck
	for _, c := range s.checks {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}
