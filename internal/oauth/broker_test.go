package oauth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/autherr"
	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// fakeProvider answers the code exchange with a fixed identity.
type fakeProvider struct {
	name string
	info UserInfo
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) AuthorizeURL(state string) string {
	return "https://example.test/authorize?state=" + state
}
func (f *fakeProvider) ExchangeCode(_ context.Context, code string) (Token, error) {
	return Token{AccessToken: "at-" + code, TokenType: "bearer"}, nil
}
func (f *fakeProvider) FetchUserInfo(_ context.Context, _ Token) (UserInfo, error) {
	return f.info, nil
}

// fakeStates is an in-memory StateStore with single-use pop semantics.
type fakeStates map[string]uint64

func (f fakeStates) PutState(_ context.Context, state string, userID uint64) error {
	f[state] = userID
	return nil
}

func (f fakeStates) PopState(_ context.Context, state string) (uint64, error) {
	uid, ok := f[state]
	if !ok {
		return 0, repository.ErrMissing
	}
	delete(f, state)
	return uid, nil
}

type fakeDirectory struct {
	accounts map[string]uint64 // provider+"/"+providerUserID -> user id
	users    map[string]uint64 // email -> user id
	nextID   uint64
	linked   []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{accounts: map[string]uint64{}, users: map[string]uint64{}, nextID: 100}
}

func (f *fakeDirectory) FindAccount(_ context.Context, provider, providerUserID string) (model.OAuthAccount, error) {
	uid, ok := f.accounts[provider+"/"+providerUserID]
	if !ok {
		return model.OAuthAccount{}, repository.ErrNotFound
	}
	return model.OAuthAccount{Provider: provider, ProviderUserID: providerUserID, UserID: uid, IsActive: true}, nil
}

func (f *fakeDirectory) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	uid, ok := f.users[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return model.User{ID: uid, Email: email}, nil
}

func (f *fakeDirectory) LinkAccount(_ context.Context, provider, providerUserID, providerEmail string, userID uint64) error {
	key := provider + "/" + providerUserID
	if _, exists := f.accounts[key]; exists {
		return repository.ErrDuplicate
	}
	f.accounts[key] = userID
	f.linked = append(f.linked, key)
	return nil
}

func (f *fakeDirectory) CreateUserWithAccount(_ context.Context, provider, providerUserID, email string) (uint64, error) {
	f.nextID++
	f.users[email] = f.nextID
	f.accounts[provider+"/"+providerUserID] = f.nextID
	return f.nextID, nil
}

func newTestBroker(dir *fakeDirectory, states fakeStates, info UserInfo) *Broker {
	reg := NewRegistry(map[string]config.OAuthProviderConfig{})
	reg.Register(&fakeProvider{name: "fake", info: info})
	return NewBroker(reg, states, dir)
}

func TestAuthorizeURLStoresState(t *testing.T) {
	states := fakeStates{}
	b := newTestBroker(newFakeDirectory(), states, UserInfo{})

	url, err := b.AuthorizeURL(context.Background(), "fake", 42)
	require.NoError(t, err)

	i := strings.Index(url, "state=")
	require.GreaterOrEqual(t, i, 0)
	state := url[i+len("state="):]
	assert.Equal(t, uint64(42), states[state])
}

func TestAuthorizeURLUnknownProvider(t *testing.T) {
	b := newTestBroker(newFakeDirectory(), fakeStates{}, UserInfo{})

	_, err := b.AuthorizeURL(context.Background(), "nope", 0)
	require.Error(t, err)
	assert.Equal(t, "unknown_oauth_provider", autherr.As(err).Code)
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	b := newTestBroker(newFakeDirectory(), fakeStates{}, UserInfo{ProviderUserID: "p1"})

	_, err := b.Callback(context.Background(), "fake", "code", "missing")
	require.Error(t, err)
	assert.Equal(t, "oauth_state_not_found", autherr.As(err).Code)
}

func TestCallbackStateIsSingleUse(t *testing.T) {
	states := fakeStates{"st": 0}
	dir := newFakeDirectory()
	b := newTestBroker(dir, states, UserInfo{ProviderUserID: "p1", Email: "a@example.com"})
	ctx := context.Background()

	_, err := b.Callback(ctx, "fake", "code", "st")
	require.NoError(t, err)

	_, err = b.Callback(ctx, "fake", "code", "st")
	require.Error(t, err)
	assert.Equal(t, "oauth_state_not_found", autherr.As(err).Code)
}

func TestCallbackLoginCreatesUser(t *testing.T) {
	dir := newFakeDirectory()
	b := newTestBroker(dir, fakeStates{"st": 0}, UserInfo{ProviderUserID: "p1", Email: "new@example.com"})

	res, err := b.Callback(context.Background(), "fake", "code", "st")
	require.NoError(t, err)
	assert.True(t, res.CreatedUser)
	assert.False(t, res.Connected)
	assert.Equal(t, res.UserID, dir.users["new@example.com"])
}

func TestCallbackLoginLinksByEmail(t *testing.T) {
	dir := newFakeDirectory()
	dir.users["known@example.com"] = 7
	b := newTestBroker(dir, fakeStates{"st": 0}, UserInfo{ProviderUserID: "p1", Email: "known@example.com"})

	res, err := b.Callback(context.Background(), "fake", "code", "st")
	require.NoError(t, err)
	assert.False(t, res.CreatedUser)
	assert.Equal(t, uint64(7), res.UserID)
	assert.Equal(t, []string{"fake/p1"}, dir.linked)
}

func TestCallbackLoginExistingAccount(t *testing.T) {
	dir := newFakeDirectory()
	dir.accounts["fake/p1"] = 9
	b := newTestBroker(dir, fakeStates{"st": 0}, UserInfo{ProviderUserID: "p1", Email: "whatever@example.com"})

	res, err := b.Callback(context.Background(), "fake", "code", "st")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), res.UserID)
	assert.False(t, res.CreatedUser)
	// No new link was made; the account already existed.
	assert.Empty(t, dir.linked)
}

func TestCallbackConnectLinksToInitiator(t *testing.T) {
	dir := newFakeDirectory()
	b := newTestBroker(dir, fakeStates{"st": 5}, UserInfo{ProviderUserID: "p1", Email: "a@example.com"})

	res, err := b.Callback(context.Background(), "fake", "code", "st")
	require.NoError(t, err)
	assert.True(t, res.Connected)
	assert.Equal(t, uint64(5), res.UserID)
	assert.Equal(t, uint64(5), dir.accounts["fake/p1"])
}

func TestCallbackConnectIdempotentForSameUser(t *testing.T) {
	dir := newFakeDirectory()
	dir.accounts["fake/p1"] = 5
	b := newTestBroker(dir, fakeStates{"st": 5}, UserInfo{ProviderUserID: "p1"})

	res, err := b.Callback(context.Background(), "fake", "code", "st")
	require.NoError(t, err)
	assert.True(t, res.Connected)
	assert.Equal(t, uint64(5), res.UserID)
}

func TestCallbackConnectRejectsForeignAccount(t *testing.T) {
	dir := newFakeDirectory()
	dir.accounts["fake/p1"] = 6 // already linked to somebody else
	b := newTestBroker(dir, fakeStates{"st": 5}, UserInfo{ProviderUserID: "p1"})

	_, err := b.Callback(context.Background(), "fake", "code", "st")
	require.Error(t, err)
	assert.Equal(t, "linked_another_user_oauth", autherr.As(err).Code)
}
