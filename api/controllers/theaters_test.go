package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/ticketbooth-backend/api/middleware"
	"github.com/angelmondragon/ticketbooth-backend/internal/theaters"
	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/pagination"
)

type stubTheaterService struct {
	updateFn  func(ctx context.Context, id string, req theaters.UpdateTheaterRequest) (*theaters.TheaterDTO, error)
	listFn    func(ctx context.Context, params pagination.Params) (pagination.Page[theaters.TheaterDTO], error)
	managerFn func(ctx context.Context, managerID string) (*theaters.TheaterDTO, error)
}

func (s stubTheaterService) CreateTheaterAndManager(ctx context.Context, req theaters.CreateTheaterAndManagerRequest) (*theaters.ProvisionResult, error) {
	return nil, nil
}

func (s stubTheaterService) CreateTheater(ctx context.Context, req theaters.CreateTheaterRequest) (*theaters.ProvisionResult, error) {
	return &theaters.ProvisionResult{Theater: &theaters.TheaterDTO{TheaterName: req.TheaterName}}, nil
}

func (s stubTheaterService) UpdateTheater(ctx context.Context, id string, req theaters.UpdateTheaterRequest) (*theaters.TheaterDTO, error) {
	return s.updateFn(ctx, id, req)
}

func (s stubTheaterService) DeleteTheater(ctx context.Context, id string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "theater not found")
}

func (s stubTheaterService) List(ctx context.Context, params pagination.Params) (pagination.Page[theaters.TheaterDTO], error) {
	return s.listFn(ctx, params)
}

func (s stubTheaterService) GetByID(ctx context.Context, id string) (*theaters.TheaterDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid theater id")
}

func (s stubTheaterService) GetByManagerID(ctx context.Context, managerID string) (*theaters.TheaterDTO, error) {
	return s.managerFn(ctx, managerID)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestTheaterCreateReturns201(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/theater/create", bytes.NewBufferString(`{"theaterName":"Cineplex","location":"HCMC"}`))
	resp := httptest.NewRecorder()
	TheaterCreate(stubTheaterService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestTheaterUpdateKeepsPresenceOfKeys(t *testing.T) {
	id := uuid.NewString()
	svc := stubTheaterService{
		updateFn: func(ctx context.Context, got string, req theaters.UpdateTheaterRequest) (*theaters.TheaterDTO, error) {
			if got != id {
				t.Fatalf("unexpected id %s", got)
			}
			if !req.ManagerEmail.Valid || req.ManagerEmail.Trimmed() != "" {
				t.Fatalf("expected explicit empty managerEmail, got %+v", req.ManagerEmail)
			}
			if req.TheaterName.Valid {
				t.Fatal("theaterName was not sent")
			}
			return &theaters.TheaterDTO{}, nil
		},
	}
	req := httptest.NewRequest(http.MethodPut, "/theater/"+id, bytes.NewBufferString(`{"managerEmail":""}`))
	req = withURLParam(req, "id", id)
	resp := httptest.NewRecorder()
	TheaterUpdate(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestTheaterUpdateValidatesLikeCreate(t *testing.T) {
	cases := map[string]string{
		"bad email":      `{"managerEmail":"not-an-email","managerPassword":"password123"}`,
		"short password": `{"managerEmail":"mgr@example.com","managerPassword":"x"}`,
		"long name":      `{"theaterName":"` + strings.Repeat("n", 151) + `"}`,
	}
	svc := stubTheaterService{
		updateFn: func(ctx context.Context, id string, req theaters.UpdateTheaterRequest) (*theaters.TheaterDTO, error) {
			t.Fatal("service must not be reached with invalid input")
			return nil, nil
		},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			id := uuid.NewString()
			req := withURLParam(httptest.NewRequest(http.MethodPut, "/theater/"+id, bytes.NewBufferString(body)), "id", id)
			resp := httptest.NewRecorder()
			TheaterUpdate(svc, nil).ServeHTTP(resp, req)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
			}
		})
	}
}

func TestTheaterUpdatePasswordIsNotTrimmed(t *testing.T) {
	id := uuid.NewString()
	svc := stubTheaterService{
		updateFn: func(ctx context.Context, got string, req theaters.UpdateTheaterRequest) (*theaters.TheaterDTO, error) {
			if req.ManagerPassword.Raw() != " padded-secret " {
				t.Fatalf("password altered: %q", req.ManagerPassword.Raw())
			}
			return &theaters.TheaterDTO{}, nil
		},
	}
	body := `{"managerEmail":"mgr@example.com","managerPassword":" padded-secret "}`
	req := withURLParam(httptest.NewRequest(http.MethodPut, "/theater/"+id, bytes.NewBufferString(body)), "id", id)
	resp := httptest.NewRecorder()
	TheaterUpdate(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestTheaterDeleteNotFound(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", uuid.NewString())
	resp := httptest.NewRecorder()
	TheaterDelete(stubTheaterService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestTheaterListParsesPaging(t *testing.T) {
	svc := stubTheaterService{
		listFn: func(ctx context.Context, params pagination.Params) (pagination.Page[theaters.TheaterDTO], error) {
			if params.Limit != 5 || params.Cursor != "abc" {
				t.Fatalf("unexpected params %+v", params)
			}
			return pagination.Page[theaters.TheaterDTO]{}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/theater?limit=5&cursor=abc", nil)
	resp := httptest.NewRecorder()
	TheaterList(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/theater?limit=0", nil)
	resp = httptest.NewRecorder()
	TheaterList(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTheaterGetByManagerRestrictsManagers(t *testing.T) {
	self := uuid.NewString()
	other := uuid.NewString()
	svc := stubTheaterService{
		managerFn: func(ctx context.Context, managerID string) (*theaters.TheaterDTO, error) {
			return &theaters.TheaterDTO{}, nil
		},
	}

	cases := []struct {
		name   string
		role   enums.UserRole
		target string
		want   int
	}{
		{"manager reads own", enums.UserRoleTheaterManager, self, http.StatusOK},
		{"manager reads other", enums.UserRoleTheaterManager, other, http.StatusForbidden},
		{"admin reads any", enums.UserRoleAdmin, other, http.StatusOK},
	}
	for _, tc := range cases {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "managerId", tc.target)
		ctx := middleware.WithUserID(req.Context(), self)
		ctx = middleware.WithRole(ctx, string(tc.role))
		resp := httptest.NewRecorder()
		TheaterGetByManager(svc, nil).ServeHTTP(resp, req.WithContext(ctx))
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
	}
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": stubPinger{}}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	deps := map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("down")}}
	HealthReady(cfg, deps, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
