package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ticketbooth-backend/internal/auth"
	"github.com/angelmondragon/ticketbooth-backend/internal/theaters"
	"github.com/angelmondragon/ticketbooth-backend/internal/theatersystems"
	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	pkgAuth "github.com/angelmondragon/ticketbooth-backend/pkg/auth"
	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	"github.com/angelmondragon/ticketbooth-backend/pkg/metrics"
	"github.com/angelmondragon/ticketbooth-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Signup(ctx context.Context, req auth.SignupRequest) (*auth.SignupResult, error) {
	return &auth.SignupResult{User: &users.UserDTO{Email: req.Email}, NotificationSent: true}, nil
}

func (stubAuthService) Signin(ctx context.Context, req auth.SigninRequest) (*auth.SessionResponse, error) {
	return &auth.SessionResponse{}, nil
}

func (stubAuthService) VerifyEmail(ctx context.Context, req auth.VerifyEmailRequest) (*auth.SessionResponse, error) {
	return &auth.SessionResponse{}, nil
}

func (stubAuthService) ResendVerification(ctx context.Context, req auth.EmailRequest) (string, error) {
	return "ok", nil
}

func (stubAuthService) ForgotPassword(ctx context.Context, req auth.EmailRequest) (string, error) {
	return "ok", nil
}

func (stubAuthService) ResetPassword(ctx context.Context, req auth.ResetPasswordRequest) error {
	return nil
}

func (stubAuthService) Signout(ctx context.Context, accessID string) error {
	return nil
}

func (stubAuthService) Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

type stubTheaterService struct{}

func (stubTheaterService) CreateTheaterAndManager(ctx context.Context, req theaters.CreateTheaterAndManagerRequest) (*theaters.ProvisionResult, error) {
	return &theaters.ProvisionResult{}, nil
}

func (stubTheaterService) CreateTheater(ctx context.Context, req theaters.CreateTheaterRequest) (*theaters.ProvisionResult, error) {
	return &theaters.ProvisionResult{}, nil
}

func (stubTheaterService) UpdateTheater(ctx context.Context, id string, req theaters.UpdateTheaterRequest) (*theaters.TheaterDTO, error) {
	return &theaters.TheaterDTO{}, nil
}

func (stubTheaterService) DeleteTheater(ctx context.Context, id string) error {
	return nil
}

func (stubTheaterService) List(ctx context.Context, params pagination.Params) (pagination.Page[theaters.TheaterDTO], error) {
	return pagination.Page[theaters.TheaterDTO]{}, nil
}

func (stubTheaterService) GetByID(ctx context.Context, id string) (*theaters.TheaterDTO, error) {
	return &theaters.TheaterDTO{}, nil
}

func (stubTheaterService) GetByManagerID(ctx context.Context, managerID string) (*theaters.TheaterDTO, error) {
	return &theaters.TheaterDTO{}, nil
}

type stubSystemService struct{}

func (stubSystemService) Create(ctx context.Context, req theatersystems.CreateRequest) (*theatersystems.SystemDTO, error) {
	return &theatersystems.SystemDTO{Name: req.Name}, nil
}

func (stubSystemService) Update(ctx context.Context, id string, req theatersystems.UpdateRequest) (*theatersystems.SystemDTO, error) {
	return &theatersystems.SystemDTO{}, nil
}

func (stubSystemService) Delete(ctx context.Context, id string) (*theatersystems.DeleteResult, error) {
	return &theatersystems.DeleteResult{}, nil
}

func (stubSystemService) Get(ctx context.Context, idOrCode string) (*theatersystems.SystemDTO, error) {
	return &theatersystems.SystemDTO{}, nil
}

func (stubSystemService) List(ctx context.Context, params pagination.Params) (pagination.Page[theatersystems.SystemDTO], error) {
	return pagination.Page[theatersystems.SystemDTO]{}, nil
}

func (stubSystemService) AddTheater(ctx context.Context, req theatersystems.AddTheaterRequest) (*theatersystems.AddTheaterResult, error) {
	return &theatersystems.AddTheaterResult{}, nil
}

type stubUserService struct{}

func (stubUserService) GetByID(ctx context.Context, id uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: id}, nil
}

func (stubUserService) ListManagers(ctx context.Context, params pagination.Params) (pagination.Page[users.UserDTO], error) {
	return pagination.Page[users.UserDTO]{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: "*"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "ticketbooth", ExpirationMinutes: 60},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	return NewRouter(
		cfg,
		nil,
		stubPinger{},
		nil,
		stubSessionManager{},
		metrics.NewHTTPMetrics(nil),
		nil,
		stubAuthService{},
		stubTheaterService{},
		stubSystemService{},
		stubUserService{},
	)
}

func bearer(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, _, err := pkgAuth.MintSessionToken(cfg.JWT, time.Now(), pkgAuth.SessionPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func serve(router http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(testConfig())

	if resp := serve(router, http.MethodGet, "/health/live", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/health/ready", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}
}

func TestPublicUserRoutes(t *testing.T) {
	router := newTestRouter(testConfig())

	resp := serve(router, http.MethodPost, "/user/signup", "", `{"email":"a@example.com","password":"supersecret"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201 got %d", resp.Code)
	}
	resp = serve(router, http.MethodGet, "/user/verify-email?email=a%40example.com&token=t", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("verify: expected 200 got %d", resp.Code)
	}
	resp = serve(router, http.MethodGet, "/user/me", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: expected 401 got %d", resp.Code)
	}
}

func TestTheaterRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(testConfig())

	if resp := serve(router, http.MethodGet, "/theater", "", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestTheaterWritesRequireAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"name":"Galaxy","code":"GLX"}`

	customer := bearer(t, cfg, uuid.New(), enums.UserRoleCustomer)
	if resp := serve(router, http.MethodPost, "/theater-system", customer, body); resp.Code != http.StatusForbidden {
		t.Fatalf("customer: expected 403 got %d", resp.Code)
	}

	admin := bearer(t, cfg, uuid.New(), enums.UserRoleAdmin)
	if resp := serve(router, http.MethodPost, "/theater-system", admin, body); resp.Code != http.StatusCreated {
		t.Fatalf("admin: expected 201 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/theater", customer, ""); resp.Code != http.StatusOK {
		t.Fatalf("customer read: expected 200 got %d", resp.Code)
	}
}

func TestManagerRoutes(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	managerID := uuid.New()
	manager := bearer(t, cfg, managerID, enums.UserRoleTheaterManager)

	if resp := serve(router, http.MethodGet, "/theater/manager/"+managerID.String(), manager, ""); resp.Code != http.StatusOK {
		t.Fatalf("own theater: expected 200 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/theater/manager/"+uuid.NewString(), manager, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("other theater: expected 403 got %d", resp.Code)
	}
	if resp := serve(router, http.MethodGet, "/admin/management/users/managers", manager, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("managers list as manager: expected 403 got %d", resp.Code)
	}

	admin := bearer(t, cfg, uuid.New(), enums.UserRoleAdmin)
	if resp := serve(router, http.MethodGet, "/admin/management/users/managers", admin, ""); resp.Code != http.StatusOK {
		t.Fatalf("managers list as admin: expected 200 got %d", resp.Code)
	}
}
