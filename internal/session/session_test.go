package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct {
	resp      *apiclient.LoginResponse
	err       error
	logoutErr error
	logouts   int
}

func (f *fakeAuth) Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.LoginResponse, error) {
	return f.resp, f.err
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.logouts++
	return f.logoutErr
}

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name: "Operator",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestManager_LoginPersistsAcrossOpen(t *testing.T) {
	store, path := openStore(t)
	token := signedToken(t, time.Now().Add(time.Hour))
	auth := &fakeAuth{resp: &apiclient.LoginResponse{Token: token, User: domain.User{ID: 5, Name: "Otieno"}}}
	m := NewManager(store, auth, zap.NewNop())

	user, err := m.Login(context.Background(), Credentials{Email: "otieno@example.test", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
	assert.Equal(t, token, m.Token())
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	m2 := NewManager(reopened, auth, zap.NewNop())

	got, ok := m2.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "Otieno", got.Name)
	assert.Equal(t, token, m2.Token())
}

func TestManager_LoginValidatesInput(t *testing.T) {
	store, _ := openStore(t)
	m := NewManager(store, &fakeAuth{}, zap.NewNop())

	_, err := m.Login(context.Background(), Credentials{Email: " ", Password: "pw"})
	require.Error(t, err)
}

func TestManager_LoginFailureKeepsPreviousState(t *testing.T) {
	store, _ := openStore(t)
	m := NewManager(store, &fakeAuth{err: &apiclient.APIError{StatusCode: 401, Message: "Invalid credentials"}}, zap.NewNop())

	_, err := m.Login(context.Background(), Credentials{Email: "a@b.test", Password: "bad"})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", apiclient.MessageOr(err, "Login failed"))
	_, ok := m.CurrentUser()
	assert.False(t, ok)
}

func TestManager_ExpiredTokenIsTreatedAsLoggedOut(t *testing.T) {
	store, _ := openStore(t)
	require.NoError(t, store.Save(signedToken(t, time.Now().Add(-time.Minute)), domain.User{ID: 1, Name: "Old"}))
	m := NewManager(store, &fakeAuth{}, zap.NewNop())

	assert.Empty(t, m.Token())
	_, ok := m.CurrentUser()
	assert.False(t, ok)

	_, err := Require(m)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestManager_OpaqueTokenIsKept(t *testing.T) {
	store, _ := openStore(t)
	require.NoError(t, store.Save("opaque-session-token", domain.User{ID: 2, Name: "Cookie User"}))
	m := NewManager(store, &fakeAuth{}, zap.NewNop())

	assert.Equal(t, "opaque-session-token", m.Token())
	user, err := Require(m)
	require.NoError(t, err)
	assert.Equal(t, int64(2), user.ID)
}

func TestManager_LogoutClearsEvenWhenServerFails(t *testing.T) {
	store, _ := openStore(t)
	require.NoError(t, store.Save("tok", domain.User{ID: 3}))
	u, _ := url.Parse("https://billing.example.test/api/login")
	store.Jar().SetCookies(u, []*http.Cookie{{Name: "sid", Value: "abc", Path: "/"}})

	auth := &fakeAuth{logoutErr: errors.New("network down")}
	m := NewManager(store, auth, zap.NewNop())

	require.NoError(t, m.Logout(context.Background()))
	assert.Equal(t, 1, auth.logouts)
	assert.Empty(t, m.Token())
	_, ok := m.CurrentUser()
	assert.False(t, ok)
	assert.Empty(t, store.Jar().Cookies(u))
}

func TestStore_CookiesPersistAcrossOpen(t *testing.T) {
	store, path := openStore(t)
	u, _ := url.Parse("https://billing.example.test/api/login")
	store.Jar().SetCookies(u, []*http.Cookie{{Name: "sid", Value: "abc", Path: "/"}})
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	target, _ := url.Parse("https://billing.example.test/api/get-abnormal-reading/42")
	cookies := reopened.Jar().Cookies(target)
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
}

func TestParseClaims(t *testing.T) {
	now := time.Now()
	claims, err := ParseClaims(signedToken(t, now.Add(30*time.Minute)))
	require.NoError(t, err)
	assert.False(t, claims.Expired(now))
	assert.InDelta(t, (30 * time.Minute).Seconds(), claims.ExpiresIn(now).Seconds(), 2)

	_, err = ParseClaims("not-a-jwt")
	assert.Error(t, err)
}
