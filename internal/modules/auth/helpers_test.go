package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"workoutauth/internal/database"
	"workoutauth/internal/domain"
	"workoutauth/internal/events"
	jwtsvc "workoutauth/internal/pkg/jwt"
	"workoutauth/internal/pkg/password"
	"workoutauth/internal/repository"
	"workoutauth/internal/seed"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testSecret   = "test-secret-test-secret-test-secret-0123"
	testIssuer   = "workout-api"
	testAudience = "workout-client"
	alicePass    = "Str0ng!Pass"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendPasswordReset(_ context.Context, to, link, firstName string) error {
	return m.Called(to, link, firstName).Error(0)
}

func (m *mockMailer) SendWelcome(_ context.Context, to, firstName string) error {
	return m.Called(to, firstName).Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	db     *gorm.DB
	store  *repository.Store
	tokens *jwtsvc.Service
	mailer *mockMailer
	events *recordingPublisher
	clock  *fakeClock
	svc    *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := repository.NewStore(db).WithClock(clock.Now)
	_, err = seed.Roles(context.Background(), store)
	require.NoError(t, err)

	tokens, err := jwtsvc.New(jwtsvc.Config{
		Secret:    testSecret,
		Issuer:    testIssuer,
		Audience:  testAudience,
		AccessTTL: time.Hour,
	})
	require.NoError(t, err)
	tokens = tokens.WithClock(clock.Now)

	mailer := new(mockMailer)
	mailer.On("SendWelcome", mock.Anything, mock.Anything).Return(nil).Maybe()
	publisher := &recordingPublisher{}

	svc := NewService(store, tokens, password.NewBcrypt(bcrypt.MinCost), mailer, publisher, DefaultOptions()).
		WithClock(clock.Now)

	return &testEnv{
		db:     db,
		store:  store,
		tokens: tokens,
		mailer: mailer,
		events: publisher,
		clock:  clock,
		svc:    svc,
	}
}

func registerRequest(username, email, role string) RegisterRequest {
	return RegisterRequest{
		Username:        username,
		Email:           email,
		Password:        alicePass,
		ConfirmPassword: alicePass,
		FirstName:       "Alice",
		LastName:        "Liddell",
		Role:            role,
	}
}

func (e *testEnv) register(t *testing.T, username, email, role string) *LoginResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), registerRequest(username, email, role), RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	return res
}

func (e *testEnv) login(t *testing.T, username, pass string) (*LoginResult, error) {
	t.Helper()
	return e.svc.Login(context.Background(), LoginRequest{Username: username, Password: pass}, RequestMeta{IP: "10.0.0.1"})
}

func (e *testEnv) user(t *testing.T, id string) *domain.User {
	t.Helper()
	var u domain.User
	require.NoError(t, e.db.Where("id = ?", id).First(&u).Error)
	return &u
}

func (e *testEnv) activeTokens(t *testing.T, userID string) int64 {
	t.Helper()
	n, err := e.store.Tokens().CountActiveForUser(context.Background(), userID)
	require.NoError(t, err)
	return n
}
