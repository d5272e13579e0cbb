package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eguard/eguard-backend/internal/apperr"
	"github.com/eguard/eguard-backend/pkg/slogx"
	"github.com/eguard/eguard-backend/pkg/xposed"
)

// PasswordProvider is satisfied by *xposed.Client.
type PasswordProvider interface {
	PasswordAnalytics(ctx context.Context, prefix string) (*xposed.PasswordAnalytics, error)
}

// PasswordExposure is the outcome of an anonymous password lookup.
type PasswordExposure struct {
	Found           bool
	Count           int64
	Characteristics string
	Anon            string
}

// PasswordService checks passwords against leaked credential sets. Only a hash
// prefix leaves the process.
type PasswordService struct {
	provider PasswordProvider
}

func NewPasswordService(provider PasswordProvider) *PasswordService {
	return &PasswordService{provider: provider}
}

func (s *PasswordService) Check(ctx context.Context, password string) (PasswordExposure, error) {
	if password == "" {
		return PasswordExposure{}, apperr.BadRequest("Password is required")
	}

	prefix := xposed.PasswordPrefix(password)
	data, err := s.provider.PasswordAnalytics(ctx, prefix)
	if err != nil {
		if errors.Is(err, xposed.ErrNotFound) {
			return PasswordExposure{}, nil
		}
		slogx.FromContext(ctx).Warn("password lookup failed", slog.Any("error", err))
		return PasswordExposure{}, fmt.Errorf("%w: %v", apperr.ErrLookupUnavailable, err)
	}

	if data.SearchPassAnon == nil {
		return PasswordExposure{}, nil
	}
	return PasswordExposure{
		Found:           true,
		Count:           int64(data.SearchPassAnon.Count),
		Characteristics: data.SearchPassAnon.Char,
		Anon:            data.SearchPassAnon.Anon,
	}, nil
}
