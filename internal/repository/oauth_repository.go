package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
)

// OAuthAccountRepo provides data access to the `oauth_accounts` table.
type OAuthAccountRepo struct{ DB *sql.DB }

func NewOAuthAccountRepo(db *sql.DB) *OAuthAccountRepo { return &OAuthAccountRepo{DB: db} }

const oauthColumns = "id,provider,provider_user_id,provider_email,user_id,is_active,created_at"

// GetByProviderUser fetches the account linked to a provider identity.
func (r *OAuthAccountRepo) GetByProviderUser(ctx context.Context, provider, providerUserID string) (model.OAuthAccount, error) {
	var a model.OAuthAccount
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+oauthColumns+" FROM oauth_accounts WHERE provider=? AND provider_user_id=? LIMIT 1",
		provider, providerUserID).
		Scan(&a.ID, &a.Provider, &a.ProviderUserID, &a.ProviderEmail, &a.UserID, &a.IsActive, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

// CreateTx links a provider identity to a user inside the caller's
// transaction. ErrDuplicate when the (provider, provider_user_id) pair is
// already linked.
func (r *OAuthAccountRepo) CreateTx(ctx context.Context, tx *sql.Tx, provider, providerUserID, providerEmail string, userID uint64) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO oauth_accounts (provider, provider_user_id, provider_email, user_id, is_active) VALUES (?,?,?,?,TRUE)",
		provider, providerUserID, providerEmail, userID)
	if err != nil {
		if strings.Contains(err.Error(), mysqlDuplicateEntry) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByUser returns all provider links of one user.
func (r *OAuthAccountRepo) ListByUser(ctx context.Context, userID uint64) ([]model.OAuthAccount, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+oauthColumns+" FROM oauth_accounts WHERE user_id=? ORDER BY provider", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []model.OAuthAccount
	for rows.Next() {
		var a model.OAuthAccount
		if err := rows.Scan(&a.ID, &a.Provider, &a.ProviderUserID, &a.ProviderEmail, &a.UserID, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
