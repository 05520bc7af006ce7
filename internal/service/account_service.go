package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/trushine/fieldops-api/internal/models"
	"github.com/trushine/fieldops-api/internal/schedule"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
)

type credentialRepository interface {
	FindByLocationID(ctx context.Context, locationID string) (*models.GHLCredential, error)
	First(ctx context.Context) (*models.GHLCredential, error)
}

type accountCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const timezoneCacheTTL = 12 * time.Hour

// AccountService resolves GHL account context: the credential holding the
// access token and the account timezone used for slot windows.
type AccountService struct {
	creds  credentialRepository
	cache  accountCache
	logger *zap.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(creds credentialRepository, cache accountCache, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{creds: creds, cache: cache, logger: logger}
}

// CredentialForLocation returns the credential for a location, falling back
// to the single stored account when the location has none of its own.
func (s *AccountService) CredentialForLocation(ctx context.Context, locationID string) (*models.GHLCredential, error) {
	if locationID != "" {
		cred, err := s.creds.FindByLocationID(ctx, locationID)
		if err == nil {
			return cred, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load credential")
		}
	}

	cred, err := s.creds.First(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSyncUnavailable, "no GHL credential configured")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load credential")
	}
	return cred, nil
}

// Timezone returns the IANA timezone for a location. Results are cached;
// when nothing resolves the scheduling default applies.
func (s *AccountService) Timezone(ctx context.Context, locationID string) string {
	cacheKey := "account:timezone:" + locationID

	if s.cache != nil {
		var cached string
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil && cached != "" {
			return cached
		}
	}

	tz := schedule.DefaultTimezone
	cred, err := s.CredentialForLocation(ctx, locationID)
	if err != nil {
		s.logger.Sugar().Warnw("timezone lookup failed, using default",
			"location_id", locationID, "error", err)
		return tz
	}
	if cred.Timezone != nil && *cred.Timezone != "" {
		if _, err := time.LoadLocation(*cred.Timezone); err == nil {
			tz = *cred.Timezone
		} else {
			s.logger.Sugar().Warnw("stored timezone is not a valid IANA zone, using default",
				"location_id", locationID, "timezone", *cred.Timezone)
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, tz, timezoneCacheTTL); err != nil {
			s.logger.Sugar().Warnw("failed to cache timezone", "error", err)
		}
	}
	return tz
}
