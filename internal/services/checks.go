package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/models"
	"github.com/eguard/eguard-backend/pkg/slogx"
	"github.com/eguard/eguard-backend/pkg/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	StatusCompromised = "compromised"
	StatusSafe        = "safe"

	lookupCacheResource = "breach"
)

// BreachLookup is satisfied by *BreachGateway.
type BreachLookup interface {
	Lookup(ctx context.Context, email string) (LookupOutcome, error)
}

type CheckInput struct {
	UserID    string
	Email     string
	IPAddress string
	UserAgent string
}

// CheckOutcome is what a completed check returns to the caller.
type CheckOutcome struct {
	Email  string
	Result models.BreachResult
	Status string
	Record *models.EmailCheck
	Stats  models.UserStats
}

// LogInput is a client-asserted result. Breached is required; Breaches
// defaults to len(BreachDetails).
type LogInput struct {
	UserID        string
	Email         string
	Breached      *bool
	Breaches      *int
	BreachDetails []models.BreachDetail
	IPAddress     string
	UserAgent     string
}

type HistoryPage struct {
	History    []models.EmailCheck
	Pagination models.Pagination
	Stats      models.UserStats
	UserID     string
}

// CheckService runs lookups and owns the per-user check history.
type CheckService struct {
	checks   CheckStore
	lookup   BreachLookup
	cache    *CacheService
	cacheTTL time.Duration
	now      func() time.Time
}

func NewCheckService(checks CheckStore, lookup BreachLookup, cache *CacheService, cacheTTL time.Duration) *CheckService {
	return &CheckService{
		checks:   checks,
		lookup:   lookup,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Check looks the email up, records the outcome for the user and returns it
// with the user's refreshed stats. An unavailable provider is recorded as a
// zero result with lookupStatus "unavailable".
func (s *CheckService) Check(ctx context.Context, in CheckInput) (*CheckOutcome, error) {
	if in.UserID == "" {
		return nil, apperr.Unauthenticated("User not authenticated")
	}
	userID, err := parseUserID(in.UserID)
	if err != nil {
		return nil, err
	}
	email, err := requireEmail(in.Email)
	if err != nil {
		return nil, err
	}

	logger := slogx.FromContext(ctx).With("user_id", in.UserID, "email", utils.MaskEmail(email))

	outcome, err := s.lookup.Lookup(ctx, email)
	if err != nil {
		if !errors.Is(err, apperr.ErrLookupUnavailable) {
			return nil, fmt.Errorf("breach lookup: %w", err)
		}
		logger.Warn("provider unavailable, recording unverified zero result", slog.Any("error", err))
		outcome = LookupOutcome{Result: models.EmptyBreachResult(), LookupStatus: models.LookupUnavailable}
	}

	record := &models.EmailCheck{
		UserID:        userID,
		Email:         email,
		Breached:      outcome.Result.Breached,
		Breaches:      outcome.Result.Count,
		BreachDetails: outcome.Result.Details,
		CheckedAt:     s.now().UTC(),
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
		LookupStatus:  outcome.LookupStatus,
		Source:        models.SourceGateway,
	}
	if err := s.checks.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("save email check: %w", err)
	}
	logger.Info("email check recorded",
		"check_id", record.ID.Hex(),
		"breached", record.Breached,
		"breaches", record.Breaches,
		"lookup_status", record.LookupStatus,
	)

	stats, err := s.checks.Stats(ctx, userID, time.Time{})
	if err != nil {
		logger.Error("stats refresh failed after saving check", "check_id", record.ID.Hex(), slog.Any("error", err))
		stats = models.UserStats{}
	}

	return &CheckOutcome{
		Email:  email,
		Result: record.Result(),
		Status: resultStatus(record.Breached),
		Record: record,
		Stats:  stats,
	}, nil
}

// Lookup is the unauthenticated lookup. Nothing is persisted; successful
// results are cached.
func (s *CheckService) Lookup(ctx context.Context, email string) (LookupOutcome, error) {
	email, err := requireEmail(email)
	if err != nil {
		return LookupOutcome{}, err
	}

	logger := slogx.FromContext(ctx)
	key := CacheKey(lookupCacheResource, email)

	var cached LookupOutcome
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		logger.Warn("lookup cache read failed", slog.Any("error", err))
	} else if hit {
		return cached, nil
	}

	outcome, err := s.lookup.Lookup(ctx, email)
	if err != nil {
		return LookupOutcome{}, err
	}

	if err := s.cache.SetWithTTL(ctx, key, outcome, s.cacheTTL); err != nil {
		logger.Warn("lookup cache write failed", slog.Any("error", err))
	}
	return outcome, nil
}

// Log persists a client-asserted result without consulting the provider.
func (s *CheckService) Log(ctx context.Context, in LogInput) (*models.EmailCheck, error) {
	if in.UserID == "" {
		return nil, apperr.Unauthenticated("User not authenticated")
	}
	userID, err := parseUserID(in.UserID)
	if err != nil {
		return nil, err
	}
	email := utils.NormalizeEmail(in.Email)
	if email == "" || in.Breached == nil {
		return nil, apperr.BadRequest("Email and breached status required")
	}

	details := in.BreachDetails
	if details == nil {
		details = []models.BreachDetail{}
	}
	breaches := len(details)
	if in.Breaches != nil {
		breaches = *in.Breaches
	}

	record := &models.EmailCheck{
		UserID:        userID,
		Email:         email,
		Breached:      *in.Breached,
		Breaches:      breaches,
		BreachDetails: details,
		CheckedAt:     s.now().UTC(),
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
		LookupStatus:  models.LookupClientReported,
		Source:        models.SourceClient,
	}
	if err := s.checks.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("log email check: %w", err)
	}

	slogx.FromContext(ctx).Info("client reported check logged",
		"user_id", in.UserID, "check_id", record.ID.Hex(), "breached", record.Breached)
	return record, nil
}

// History returns one page of the user's checks, newest first.
func (s *CheckService) History(ctx context.Context, userID string, page, limit int) (*HistoryPage, error) {
	oid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)

	total, err := s.checks.Count(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("history count: %w", err)
	}
	pagination := Paginate(page, limit, total)

	// Pages past the end are empty; skipping the query also keeps the skip
	// offset bounded by total.
	history := []models.EmailCheck{}
	if page <= pagination.TotalPages {
		history, err = s.checks.List(ctx, oid, int64(page-1)*int64(limit), int64(limit))
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
	}
	stats, err := s.checks.Stats(ctx, oid, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}

	return &HistoryPage{
		History:    history,
		Pagination: pagination,
		Stats:      stats,
		UserID:     userID,
	}, nil
}

func (s *CheckService) Stats(ctx context.Context, userID string) (models.UserStats, error) {
	oid, err := parseUserID(userID)
	if err != nil {
		return models.UserStats{}, err
	}
	stats, err := s.checks.Stats(ctx, oid, time.Time{})
	if err != nil {
		return models.UserStats{}, fmt.Errorf("stats: %w", err)
	}
	return stats, nil
}

// Get returns one check owned by userID. A malformed id is reported as not
// found.
func (s *CheckService) Get(ctx context.Context, userID, checkID string) (*models.EmailCheck, error) {
	oid, cid, err := s.ownedIDs(userID, checkID)
	if err != nil {
		return nil, err
	}
	return s.checks.FindOwned(ctx, oid, cid)
}

// Delete removes one check owned by userID and returns the deleted record.
func (s *CheckService) Delete(ctx context.Context, userID, checkID string) (*models.EmailCheck, error) {
	oid, cid, err := s.ownedIDs(userID, checkID)
	if err != nil {
		return nil, err
	}

	deleted, err := s.checks.DeleteOwned(ctx, oid, cid)
	if err != nil {
		return nil, err
	}
	slogx.FromContext(ctx).Info("email check deleted", "user_id", userID, "check_id", checkID)
	return deleted, nil
}

func (s *CheckService) ownedIDs(userID, checkID string) (primitive.ObjectID, primitive.ObjectID, error) {
	oid, err := parseUserID(userID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, err
	}
	cid, err := primitive.ObjectIDFromHex(checkID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, apperr.NotFound("Email check record not found")
	}
	return oid, cid, nil
}

// Paginate builds pagination metadata for a page of size limit.
func Paginate(page, limit int, total int64) models.Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return models.Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalRecords: total,
		HasNext:      page < totalPages,
		HasPrev:      page > 1,
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func requireEmail(raw string) (string, error) {
	email := utils.NormalizeEmail(raw)
	if email == "" {
		return "", apperr.BadRequest("Email is required")
	}
	if !models.ValidEmail(email) {
		return "", apperr.BadRequest("Please provide a valid email address")
	}
	return email, nil
}

func resultStatus(breached bool) string {
	if breached {
		return StatusCompromised
	}
	return StatusSafe
}
