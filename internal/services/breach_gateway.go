package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/internal/models"
	"github.com/eguard/eguard-backend/pkg/slogx"
	"github.com/eguard/eguard-backend/pkg/utils"
	"github.com/eguard/eguard-backend/pkg/xposed"
)

// BreachProvider is satisfied by *xposed.Client.
type BreachProvider interface {
	BreachAnalytics(ctx context.Context, email string) (*xposed.BreachAnalytics, error)
}

// LookupOutcome is a normalized lookup plus the status recorded with it.
type LookupOutcome struct {
	Result       models.BreachResult
	LookupStatus string
}

// BreachGateway turns provider responses into BreachResult values.
type BreachGateway struct {
	provider BreachProvider
}

func NewBreachGateway(provider BreachProvider) *BreachGateway {
	return &BreachGateway{provider: provider}
}

// Lookup never fabricates a safe result: any provider failure other than a 404
// is returned wrapped in apperr.ErrLookupUnavailable.
func (g *BreachGateway) Lookup(ctx context.Context, email string) (LookupOutcome, error) {
	logger := slogx.FromContext(ctx).With("email", utils.MaskEmail(email))

	data, err := g.provider.BreachAnalytics(ctx, email)
	if err != nil {
		if errors.Is(err, xposed.ErrNotFound) {
			return LookupOutcome{Result: models.EmptyBreachResult(), LookupStatus: models.LookupNotFound}, nil
		}
		logger.Warn("breach lookup failed", slog.Any("error", err))
		return LookupOutcome{}, fmt.Errorf("%w: %v", apperr.ErrLookupUnavailable, err)
	}

	result, err := normalizeBreaches(logger, data)
	if err != nil {
		logger.Warn("breach lookup returned no usable entries", slog.Any("error", err))
		return LookupOutcome{}, fmt.Errorf("%w: %v", apperr.ErrLookupUnavailable, err)
	}
	status := models.LookupNotFound
	if result.Breached {
		status = models.LookupFound
	}
	return LookupOutcome{Result: result, LookupStatus: status}, nil
}

// normalizeBreaches fails when the provider listed entries but none of them
// could be decoded, so an unreadable response is never reported as clean.
func normalizeBreaches(logger *slog.Logger, data *xposed.BreachAnalytics) (models.BreachResult, error) {
	if data == nil || data.ExposedBreaches == nil || len(data.ExposedBreaches.Details) == 0 {
		return models.EmptyBreachResult(), nil
	}

	details := make([]models.BreachDetail, 0, len(data.ExposedBreaches.Details))
	for i, raw := range data.ExposedBreaches.Details {
		entry, err := xposed.DecodeEntry(raw)
		if err != nil {
			logger.Warn("skipping malformed breach entry", "index", i, slog.Any("error", err))
			continue
		}
		details = append(details, toBreachDetail(entry))
	}

	if len(details) == 0 {
		return models.BreachResult{}, fmt.Errorf("none of %d breach entries decoded", len(data.ExposedBreaches.Details))
	}

	return models.BreachResult{
		Breached: true,
		Count:    len(details),
		Details:  details,
	}, nil
}

func toBreachDetail(e xposed.BreachEntry) models.BreachDetail {
	d := models.BreachDetail{
		Name:           orUnknown(string(e.Breach)),
		Domain:         orUnknown(string(e.Domain)),
		BreachDate:     parseBreachDate(string(e.XposedDate)),
		DataClasses:    e.DataClasses(),
		ExposedRecords: int64(e.XposedRecords),
	}
	if len(d.DataClasses) == 0 {
		if details := strings.TrimSpace(string(e.Details)); details != "" {
			d.DataClasses = []string{details}
		} else {
			d.DataClasses = []string{}
		}
	}
	if d.ExposedRecords < 0 {
		d.ExposedRecords = 0
	}
	return d
}

var breachDateLayouts = []string{"2006-01-02", "2006-01", "2006", time.RFC3339}

// parseBreachDate returns nil for empty or unparseable dates.
func parseBreachDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range breachDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "Unknown"
	}
	return s
}
