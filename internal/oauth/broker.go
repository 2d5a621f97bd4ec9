package oauth

import (
	"context"
	"errors"

	"github.com/iliyamo/auth-service/internal/autherr"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// StateStore is the anti-CSRF state storage: put on authorize-url creation,
// atomic pop on callback. *repository.RevocationRepo satisfies it.
type StateStore interface {
	PutState(ctx context.Context, state string, userID uint64) error
	PopState(ctx context.Context, state string) (uint64, error)
}

// Directory is the relational side of the callback.
// *repository.OAuthDirectory satisfies it; tests provide an in-memory fake.
type Directory interface {
	FindAccount(ctx context.Context, provider, providerUserID string) (model.OAuthAccount, error)
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	LinkAccount(ctx context.Context, provider, providerUserID, providerEmail string, userID uint64) error
	CreateUserWithAccount(ctx context.Context, provider, providerUserID, email string) (uint64, error)
}

// CallbackResult reports what the callback did.
type CallbackResult struct {
	UserID      uint64 // the local user the provider identity resolved to
	CreatedUser bool   // a brand-new user was created for this login
	Connected   bool   // this was a connect flow, not a login
}

// Broker ties the provider registry, the state store and the directory into
// the authorize and callback flows.
type Broker struct {
	Providers *Registry
	States    StateStore
	Dir       Directory
}

func NewBroker(providers *Registry, states StateStore, dir Directory) *Broker {
	return &Broker{Providers: providers, States: states, Dir: dir}
}

// stateBytes of random material back each anti-CSRF state value.
const stateBytes = 32

// AuthorizeURL creates a fresh state bound to the initiating user (0 for a
// plain login) and returns the provider's authorization URL carrying it.
func (b *Broker) AuthorizeURL(ctx context.Context, providerName string, userID uint64) (string, error) {
	p, err := b.Providers.Get(providerName)
	if err != nil {
		return "", err
	}
	state, err := utils.RandomURLSafe(stateBytes)
	if err != nil {
		return "", err
	}
	if err := b.States.PutState(ctx, state, userID); err != nil {
		return "", autherr.Transport(err)
	}
	return p.AuthorizeURL(state), nil
}

// Callback consumes the state, exchanges the code and applies the account
// linking rules:
//
//	connect + account on same user      -> idempotent success
//	connect + account on another user   -> LinkedAnotherUserOAuth
//	connect + no account                -> link to the initiator
//	login + account                     -> log in as the linked user
//	login + no account, email known     -> link to that user, log in
//	login + no account, email unknown   -> create user, link, log in
func (b *Broker) Callback(ctx context.Context, providerName, code, state string) (CallbackResult, error) {
	initiator, err := b.States.PopState(ctx, state)
	if err == repository.ErrMissing {
		return CallbackResult{}, autherr.OAuthStateNotFound()
	}
	if err != nil {
		return CallbackResult{}, autherr.Transport(err)
	}

	p, err := b.Providers.Get(providerName)
	if err != nil {
		return CallbackResult{}, err
	}
	tok, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return CallbackResult{}, autherr.Transport(err)
	}
	info, err := p.FetchUserInfo(ctx, tok)
	if err != nil {
		return CallbackResult{}, autherr.Transport(err)
	}
	if info.ProviderUserID == "" {
		return CallbackResult{}, autherr.Transport(errors.New("provider returned empty user id"))
	}

	account, err := b.Dir.FindAccount(ctx, providerName, info.ProviderUserID)
	haveAccount := err == nil
	if err != nil && err != repository.ErrNotFound {
		return CallbackResult{}, autherr.Transport(err)
	}

	if initiator != 0 { // connect to an existing, authenticated user
		if haveAccount {
			if account.UserID == initiator {
				return CallbackResult{UserID: initiator, Connected: true}, nil
			}
			return CallbackResult{}, autherr.LinkedAnotherUserOAuth()
		}
		if err := b.Dir.LinkAccount(ctx, providerName, info.ProviderUserID, info.Email, initiator); err != nil {
			if err == repository.ErrDuplicate {
				return CallbackResult{}, autherr.LinkedAnotherUserOAuth()
			}
			return CallbackResult{}, autherr.Transport(err)
		}
		return CallbackResult{UserID: initiator, Connected: true}, nil
	}

	// Plain login.
	if haveAccount {
		return CallbackResult{UserID: account.UserID}, nil
	}
	u, err := b.Dir.FindUserByEmail(ctx, info.Email)
	if err == nil {
		if err := b.Dir.LinkAccount(ctx, providerName, info.ProviderUserID, info.Email, u.ID); err != nil {
			return CallbackResult{}, autherr.Transport(err)
		}
		return CallbackResult{UserID: u.ID}, nil
	}
	if err != repository.ErrNotFound {
		return CallbackResult{}, autherr.Transport(err)
	}

	userID, err := b.Dir.CreateUserWithAccount(ctx, providerName, info.ProviderUserID, info.Email)
	if err != nil {
		return CallbackResult{}, autherr.Transport(err)
	}
	return CallbackResult{UserID: userID, CreatedUser: true}, nil
}
