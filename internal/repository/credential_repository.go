package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trushine/fieldops-api/internal/models"
)

const credentialColumns = `id, ghl_user_id, access_token, refresh_token, expires_in, company_id, location_id, timezone, created_at, updated_at`

// CredentialRepository stores GHL OAuth credentials per location.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// FindByLocationID returns the credential for a GHL location.
func (r *CredentialRepository) FindByLocationID(ctx context.Context, locationID string) (*models.GHLCredential, error) {
	query := fmt.Sprintf(`SELECT %s FROM ghl_credentials WHERE location_id = $1 ORDER BY updated_at DESC LIMIT 1`, credentialColumns)
	var cred models.GHLCredential
	if err := r.db.GetContext(ctx, &cred, query, locationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find credential by location: %w", err)
	}
	return &cred, nil
}

// First returns the oldest stored credential. Single-account installs carry
// exactly one row, so this is the account fallback when no location is given.
func (r *CredentialRepository) First(ctx context.Context) (*models.GHLCredential, error) {
	query := fmt.Sprintf(`SELECT %s FROM ghl_credentials ORDER BY created_at ASC LIMIT 1`, credentialColumns)
	var cred models.GHLCredential
	if err := r.db.GetContext(ctx, &cred, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find first credential: %w", err)
	}
	return &cred, nil
}

// UpdateTokens stores a refreshed token pair.
func (r *CredentialRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresIn int) error {
	const query = `UPDATE ghl_credentials SET access_token = $2, refresh_token = $3, expires_in = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresIn, time.Now().UTC()); err != nil {
		return fmt.Errorf("update credential tokens: %w", err)
	}
	return nil
}
