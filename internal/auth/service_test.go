package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/ticketbooth-backend/internal/notifications"
	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	pkgAuth "github.com/angelmondragon/ticketbooth-backend/pkg/auth"
	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "ticketbooth", ExpirationMinutes: 10080}

// fastArgon keeps hashing cheap in tests.
var fastArgon = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}

type sent struct {
	kind  string
	to    notifications.Recipient
	token string
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (n *stubNotifier) record(kind string, to notifications.Recipient, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{kind: kind, to: to, token: token})
	return n.err
}

func (n *stubNotifier) SendVerification(_ context.Context, to notifications.Recipient, token string) error {
	return n.record("verify", to, token)
}

func (n *stubNotifier) SendPasswordReset(_ context.Context, to notifications.Recipient, token string) error {
	return n.record("reset", to, token)
}

type stubSessions struct {
	registered map[string]uuid.UUID
	revoked    []string
}

func (s *stubSessions) Register(_ context.Context, accessID string, userID uuid.UUID) error {
	if s.registered == nil {
		s.registered = map[string]uuid.UUID{}
	}
	s.registered[accessID] = userID
	return nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	delete(s.registered, accessID)
	return nil
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	notifier *stubNotifier
	sessions *stubSessions
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t, models.All()...)
	now := time.Now().UTC()
	f := &fixture{conn: conn, notifier: &stubNotifier{}, sessions: &stubSessions{}, clock: &now}

	svc, err := NewService(ServiceParams{
		DB:             conn,
		Tx:             db.NewFromConn(conn),
		Sessions:       f.sessions,
		Notifier:       f.notifier,
		JWTConfig:      testJWT,
		PasswordConfig: fastArgon,
		TokenConfig:    config.TokenConfig{VerificationTTL: 24 * time.Hour, PasswordResetTTL: 15 * time.Minute},
		Now:            func() time.Time { return *f.clock },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

// drain waits for detached work such as reset-token delivery.
func (f *fixture) drain() {
	f.svc.(*service).pending.Wait()
}

func (f *fixture) seedUser(t *testing.T, email, password string, verified bool, role enums.UserRole) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, fastArgon)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user, err := users.NewRepository(f.conn).Create(context.Background(), users.CreateUserDTO{
		Email: email, UserName: "seed", PasswordHash: hash, Role: role, IsVerified: verified,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if !pkgerrors.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestSignupPersistsThenNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, SignupRequest{Email: " New@Example.com ", Password: "password123"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if !res.NotificationSent {
		t.Fatal("expected notification to be sent")
	}
	if res.User.Email != "new@example.com" || res.User.UserName != "new" || res.User.IsVerified {
		t.Fatalf("unexpected user %+v", res.User)
	}
	if res.User.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", res.User.Role)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].kind != "verify" {
		t.Fatalf("expected one verification email, got %+v", f.notifier.sent)
	}

	stored, err := users.NewRepository(f.conn).FindByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("load stored user: %v", err)
	}
	if stored.VerifyKey == nil || *stored.VerifyKey != f.notifier.sent[0].token {
		t.Fatal("stored verify key does not match mailed token")
	}
	if stored.VerifyKeyExpiresAt == nil || stored.VerifyKeyExpiresAt.Sub(*f.clock) < 23*time.Hour {
		t.Fatalf("unexpected verify expiry %v", stored.VerifyKeyExpiresAt)
	}
}

func TestSignupNotificationFailureKeepsAccount(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	res, err := f.svc.Signup(context.Background(), SignupRequest{Email: "keep@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.NotificationSent {
		t.Fatal("expected notificationSent=false")
	}
	if _, err := users.NewRepository(f.conn).FindByEmail(context.Background(), "keep@example.com"); err != nil {
		t.Fatalf("account should remain: %v", err)
	}
}

func TestSignupDuplicateEmailConflict(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "taken@example.com", "password123", true, enums.UserRoleCustomer)

	_, err := f.svc.Signup(context.Background(), SignupRequest{Email: "TAKEN@example.com", Password: "password123"})
	assertCode(t, err, pkgerrors.CodeConflict)
	if len(f.notifier.sent) != 0 {
		t.Fatal("no email expected on conflict")
	}
}

func TestSigninIssuesRegisteredSession(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "ok@example.com", "password123", true, enums.UserRoleAdmin)

	resp, err := f.svc.Signin(context.Background(), SigninRequest{Email: "OK@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	claims, err := pkgAuth.ParseSessionToken(testJWT, resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.UserRoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if f.sessions.registered[claims.ID] != user.ID {
		t.Fatal("session jti not registered")
	}
	if got := resp.ExpiresAt.Sub(*f.clock); got < 7*24*time.Hour-time.Second || got > 7*24*time.Hour+time.Second {
		t.Fatalf("expected 7 day session, got %v", got)
	}
	if resp.User.LastLoginAt == nil {
		t.Fatal("expected last login to be stamped")
	}
}

func TestSigninFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "verified@example.com", "password123", true, enums.UserRoleCustomer)
	f.seedUser(t, "pending@example.com", "password123", false, enums.UserRoleCustomer)

	cases := []SigninRequest{
		{Email: "verified@example.com", Password: "wrong-password"},
		{Email: "pending@example.com", Password: "password123"},
		{Email: "ghost@example.com", Password: "password123"},
	}
	for _, req := range cases {
		_, err := f.svc.Signin(context.Background(), req)
		assertCode(t, err, pkgerrors.CodeUnauthorized)
		if pkgerrors.As(err).Message() != invalidCredentialsMessage {
			t.Fatalf("%s: expected generic message, got %q", req.Email, pkgerrors.As(err).Message())
		}
	}
	if len(f.sessions.registered) != 0 {
		t.Fatal("no session should be registered")
	}
}

func TestSigninUpgradesOutdatedHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := fastArgon
	older.ArgonTime = 2
	hash, err := security.HashPassword("password123", older)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user, err := users.NewRepository(f.conn).Create(ctx, users.CreateUserDTO{
		Email: "legacy@example.com", UserName: "legacy", PasswordHash: hash, Role: enums.UserRoleCustomer, IsVerified: true,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	if _, err := f.svc.Signin(ctx, SigninRequest{Email: "legacy@example.com", Password: "password123"}); err != nil {
		t.Fatalf("signin: %v", err)
	}

	stored, err := users.NewRepository(f.conn).FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.PasswordHash == hash || security.NeedsRehash(stored.PasswordHash, fastArgon) {
		t.Fatal("expected the stored hash to move to the current cost")
	}
	if _, err := f.svc.Signin(ctx, SigninRequest{Email: "legacy@example.com", Password: "password123"}); err != nil {
		t.Fatalf("signin after upgrade: %v", err)
	}
}

func TestVerifyEmailFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Signup(ctx, SignupRequest{Email: "v@example.com", UserName: "vee", Password: "password123"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	token := f.notifier.sent[0].token

	_, err := f.svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "v@example.com", Token: "nope"})
	assertCode(t, err, pkgerrors.CodeValidation)

	resp, err := f.svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "V@example.com", Token: token})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !resp.User.IsVerified || resp.Token == "" {
		t.Fatalf("expected verified user and token, got %+v", resp)
	}

	stored, _ := users.NewRepository(f.conn).FindByEmail(ctx, "v@example.com")
	if stored.VerifyKey != nil || stored.VerifyKeyExpiresAt != nil {
		t.Fatal("verification token should be cleared")
	}

	_, err = f.svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "v@example.com", Token: token})
	assertCode(t, err, pkgerrors.CodeValidation)

	if _, err := f.svc.Signin(ctx, SigninRequest{Email: "v@example.com", Password: "password123"}); err != nil {
		t.Fatalf("signin after verify: %v", err)
	}
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Signup(ctx, SignupRequest{Email: "late@example.com", Password: "password123"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	later := f.clock.Add(25 * time.Hour)
	f.clock = &later

	_, err := f.svc.VerifyEmail(ctx, VerifyEmailRequest{Email: "late@example.com", Token: f.notifier.sent[0].token})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Signup(ctx, SignupRequest{Email: "again@example.com", Password: "password123"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	first := f.notifier.sent[0].token

	msg, err := f.svc.ResendVerification(ctx, EmailRequest{Email: "again@example.com"})
	if err != nil || msg != resendMessage {
		t.Fatalf("resend: %q %v", msg, err)
	}
	if len(f.notifier.sent) != 2 || f.notifier.sent[1].token == first {
		t.Fatal("expected a rotated token to be mailed")
	}

	msg, err = f.svc.ResendVerification(ctx, EmailRequest{Email: "nobody@example.com"})
	if err != nil || msg != resendMessage {
		t.Fatalf("unknown email should get generic reply: %q %v", msg, err)
	}

	f.seedUser(t, "done@example.com", "password123", true, enums.UserRoleCustomer)
	_, err = f.svc.ResendVerification(ctx, EmailRequest{Email: "done@example.com"})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "reset@example.com", "old-password", true, enums.UserRoleCustomer)

	known, err := f.svc.ForgotPassword(ctx, EmailRequest{Email: "reset@example.com"})
	if err != nil {
		t.Fatalf("forgot: %v", err)
	}
	unknown, err := f.svc.ForgotPassword(ctx, EmailRequest{Email: "missing@example.com"})
	if err != nil {
		t.Fatalf("forgot unknown: %v", err)
	}
	if known != unknown {
		t.Fatalf("messages differ: %q vs %q", known, unknown)
	}
	f.drain()
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].kind != "reset" {
		t.Fatalf("expected one reset email, got %+v", f.notifier.sent)
	}
	token := f.notifier.sent[0].token

	if err := f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "new-password"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "another-password"})
	assertCode(t, err, pkgerrors.CodeValidation)

	if _, err := f.svc.Signin(ctx, SigninRequest{Email: "reset@example.com", Password: "new-password"}); err != nil {
		t.Fatalf("signin with new password: %v", err)
	}
	_, err = f.svc.Signin(ctx, SigninRequest{Email: "reset@example.com", Password: "old-password"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestResetPasswordExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "slow@example.com", "old-password", true, enums.UserRoleCustomer)
	if _, err := f.svc.ForgotPassword(ctx, EmailRequest{Email: "slow@example.com"}); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	f.drain()
	later := f.clock.Add(16 * time.Minute)
	f.clock = &later

	err := f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: f.notifier.sent[0].token, NewPassword: "new-password"})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestForgotPasswordHidesDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "quiet@example.com", "old-password", true, enums.UserRoleCustomer)
	f.notifier.err = errors.New("smtp down")

	msg, err := f.svc.ForgotPassword(ctx, EmailRequest{Email: "quiet@example.com"})
	if err != nil || msg != forgotPasswordMessage {
		t.Fatalf("expected generic reply, got %q %v", msg, err)
	}
	f.drain()
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one delivery attempt, got %d", len(f.notifier.sent))
	}
}

func TestForgotPasswordHidesStoreFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "locked@example.com", "old-password", true, enums.UserRoleCustomer)
	err := f.conn.Callback().Update().Before("gorm:update").Register("test:fail_update", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("disk full"))
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	msg, err := f.svc.ForgotPassword(ctx, EmailRequest{Email: "locked@example.com"})
	if err != nil || msg != forgotPasswordMessage {
		t.Fatalf("expected generic reply, got %q %v", msg, err)
	}
	f.drain()
	if len(f.notifier.sent) != 0 {
		t.Fatalf("no email should go out without a stored token, got %+v", f.notifier.sent)
	}
}

// Delivery is detached, so a slow mailer never shows up in the response time.
func TestForgotPasswordDoesNotWaitForDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "known@example.com", "old-password", true, enums.UserRoleCustomer)
	release := make(chan struct{})
	f.svc.(*service).notifier = blockingNotifier{release: release}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := f.svc.ForgotPassword(ctx, EmailRequest{Email: "known@example.com"}); err != nil {
			t.Errorf("forgot: %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("forgot password blocked on delivery")
	}
	close(release)
	f.drain()
}

type blockingNotifier struct {
	release chan struct{}
}

func (n blockingNotifier) SendVerification(context.Context, notifications.Recipient, string) error {
	return nil
}

func (n blockingNotifier) SendPasswordReset(context.Context, notifications.Recipient, string) error {
	<-n.release
	return nil
}

func TestSignoutAndMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "me@example.com", "password123", true, enums.UserRoleCustomer)

	resp, err := f.svc.Signin(ctx, SigninRequest{Email: "me@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	claims, _ := pkgAuth.ParseSessionToken(testJWT, resp.Token)

	me, err := f.svc.Me(ctx, user.ID)
	if err != nil || me.Email != "me@example.com" {
		t.Fatalf("me: %+v %v", me, err)
	}

	if err := f.svc.Signout(ctx, claims.ID); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if _, ok := f.sessions.registered[claims.ID]; ok {
		t.Fatal("session should be revoked")
	}

	_, err = f.svc.Me(ctx, uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}
