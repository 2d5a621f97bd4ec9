package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

// OAuthDirectory bundles the relational work of the OAuth callback: looking
// up provider links, linking accounts and creating OAuth-only users. The
// multi-row writes run in one transaction so a half-linked account can never
// be observed.
type OAuthDirectory struct {
	DB       *sql.DB
	Users    *UserRepo
	Accounts *OAuthAccountRepo
}

func NewOAuthDirectory(db *sql.DB, users *UserRepo, accounts *OAuthAccountRepo) *OAuthDirectory {
	return &OAuthDirectory{DB: db, Users: users, Accounts: accounts}
}

// FindAccount looks up an existing provider link.
func (d *OAuthDirectory) FindAccount(ctx context.Context, provider, providerUserID string) (model.OAuthAccount, error) {
	return d.Accounts.GetByProviderUser(ctx, provider, providerUserID)
}

// FindUserByEmail looks up a non-deleted user by the provider email.
func (d *OAuthDirectory) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return d.Users.GetByEmail(ctx, email)
}

// LinkAccount attaches a provider identity to an existing user.
func (d *OAuthDirectory) LinkAccount(ctx context.Context, provider, providerUserID, providerEmail string, userID uint64) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := d.Accounts.CreateTx(ctx, tx, provider, providerUserID, providerEmail, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateUserWithAccount creates an OAuth-only user (nil password hash,
// verified, default role) and links the provider identity, all in one
// transaction. The username starts as the email local part; on a collision a
// short random suffix is appended.
func (d *OAuthDirectory) CreateUserWithAccount(ctx context.Context, provider, providerUserID, email string) (uint64, error) {
	base := usernameFromEmail(email)

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var userID uint64
	username := base
	for attempt := 0; ; attempt++ {
		userID, err = d.Users.CreateTx(ctx, tx, email, username, nil, true)
		if err == nil {
			break
		}
		if err != ErrDuplicate || attempt >= 3 {
			return 0, err
		}
		suffix, rerr := utils.RandomURLSafe(3)
		if rerr != nil {
			return 0, rerr
		}
		username = fmt.Sprintf("%s-%s", base, strings.ToLower(suffix))
	}

	var roleID uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT id FROM roles WHERE name=? LIMIT 1", model.RoleUser).Scan(&roleID); err != nil {
		return 0, err
	}
	if err := d.Users.AddRoleTx(ctx, tx, userID, roleID); err != nil {
		return 0, err
	}
	if _, err := d.Accounts.CreateTx(ctx, tx, provider, providerUserID, email, userID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return userID, nil
}

// usernameFromEmail extracts a usable username from the local part of an
// email address.
func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	local = strings.TrimSpace(local)
	if local == "" {
		local = "user"
	}
	return local
}
