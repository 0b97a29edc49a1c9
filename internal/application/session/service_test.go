package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sos-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, oldToken, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, oldToken, newToken, newExpiry).Error(0)
}
func (m *mockSessionStore) Disable(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, role, sessionID string) (string, error) {
	args := m.Called(userID, role, sessionID)
	return args.String(0), args.Error(1)
}

// --- helpers ---

func newSvc(us *mockUserStore, ss *mockSessionStore, jwt *mockJWTSigner) Service {
	return NewService(ServiceDeps{
		UserRepo:        us,
		SessionRepo:     ss,
		JWTProvider:     jwt,
		RefreshTokenDur: 24 * time.Hour,
	})
}

func existingUser(t *testing.T) *domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		UserID:       "user-123",
		Email:        "asha@example.com",
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Enable:       1,
	}
}

func loginReq() domain.LoginRequest {
	return domain.LoginRequest{Email: "asha@example.com", Password: "password123"}
}

// --- Login tests ---

func TestLogin_HappyPath(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}
	us.On("GetByEmail", mock.Anything, "asha@example.com").Return(existingUser(t), nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt.On("Sign", "user-123", domain.RoleUser, mock.Anything).Return("bearer", nil)

	result, err := newSvc(us, ss, jwt).Login(context.Background(), loginReq())

	require.NoError(t, err)
	assert.Equal(t, "bearer", result.Bearer)
	assert.Len(t, result.RefreshToken, 64)
	assert.Equal(t, "user-123", result.Session.User.UserID)
	assert.True(t, result.Session.Enable)
	assert.Greater(t, result.Session.RefreshExpiresAt, time.Now().Unix())
}

func TestLogin_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "asha@example.com").Return(nil, domain.ErrNotFound)

	_, err := newSvc(us, &mockSessionStore{}, &mockJWTSigner{}).Login(context.Background(), loginReq())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_WrongPassword(t *testing.T) {
	us, ss := &mockUserStore{}, &mockSessionStore{}
	us.On("GetByEmail", mock.Anything, "asha@example.com").Return(existingUser(t), nil)

	req := loginReq()
	req.Password = "wrong-password"
	_, err := newSvc(us, ss, &mockJWTSigner{}).Login(context.Background(), req)

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	ss.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_DisabledAccount(t *testing.T) {
	u := existingUser(t)
	u.Enable = 0
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "asha@example.com").Return(u, nil)

	_, err := newSvc(us, &mockSessionStore{}, &mockJWTSigner{}).Login(context.Background(), loginReq())

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_InvalidEmail(t *testing.T) {
	_, err := newSvc(&mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}).Login(context.Background(),
		domain.LoginRequest{Email: "not-an-email", Password: "x"})

	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- Refresh tests ---

func TestRefresh_RotatesToken(t *testing.T) {
	us, ss, jwt := &mockUserStore{}, &mockSessionStore{}, &mockJWTSigner{}
	sess := &domain.Session{SessionID: "s1", UserID: "user-123", Enable: true, RefreshExpiresAt: time.Now().Add(time.Hour).Unix()}
	ss.On("GetByRefreshToken", mock.Anything, "old").Return(sess, nil)
	us.On("Get", mock.Anything, "user-123").Return(existingUser(t), nil)
	ss.On("RotateRefreshToken", mock.Anything, "s1", "old", mock.AnythingOfType("string"), mock.AnythingOfType("int64")).Return(nil)
	jwt.On("Sign", "user-123", domain.RoleUser, "s1").Return("bearer-2", nil)

	result, err := newSvc(us, ss, jwt).Refresh(context.Background(), "old")

	require.NoError(t, err)
	assert.Equal(t, "bearer-2", result.Bearer)
	assert.NotEqual(t, "old", result.RefreshToken)
	ss.AssertExpectations(t)
}

func TestRefresh_Expired(t *testing.T) {
	ss := &mockSessionStore{}
	sess := &domain.Session{SessionID: "s1", UserID: "user-123", Enable: true, RefreshExpiresAt: time.Now().Add(-time.Minute).Unix()}
	ss.On("GetByRefreshToken", mock.Anything, "old").Return(sess, nil)

	_, err := newSvc(&mockUserStore{}, ss, &mockJWTSigner{}).Refresh(context.Background(), "old")

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	ss.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_LostRotationRace(t *testing.T) {
	us, ss := &mockUserStore{}, &mockSessionStore{}
	sess := &domain.Session{SessionID: "s1", UserID: "user-123", Enable: true, RefreshExpiresAt: time.Now().Add(time.Hour).Unix()}
	ss.On("GetByRefreshToken", mock.Anything, "old").Return(sess, nil)
	us.On("Get", mock.Anything, "user-123").Return(existingUser(t), nil)
	ss.On("RotateRefreshToken", mock.Anything, "s1", "old", mock.AnythingOfType("string"), mock.AnythingOfType("int64")).
		Return(domain.ErrUnauthorized)

	_, err := newSvc(us, ss, &mockJWTSigner{}).Refresh(context.Background(), "old")

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestRefresh_UnknownToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	_, err := newSvc(&mockUserStore{}, ss, &mockJWTSigner{}).Refresh(context.Background(), "nope")

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

// --- GetCurrent / Logout ---

func TestGetCurrent_DisabledSession(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", Enable: false}, nil)

	_, err := newSvc(&mockUserStore{}, ss, &mockJWTSigner{}).GetCurrent(context.Background(), "s1")

	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestGetCurrent_AttachesUser(t *testing.T) {
	us, ss := &mockUserStore{}, &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "user-123", Enable: true}, nil)
	us.On("Get", mock.Anything, "user-123").Return(existingUser(t), nil)

	sess, err := newSvc(us, ss, &mockJWTSigner{}).GetCurrent(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", sess.User.Email)
}

func TestLogout_DisablesSession(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Disable", mock.Anything, "s1").Return(nil)

	require.NoError(t, newSvc(&mockUserStore{}, ss, &mockJWTSigner{}).Logout(context.Background(), "s1"))
	ss.AssertExpectations(t)
}
