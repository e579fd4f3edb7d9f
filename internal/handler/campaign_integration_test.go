package handler

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
	"github.com/AkashMedishetty/bloodalert/internal/transport"
)

func TestCampaignIntegration_CreateCampaign(t *testing.T) {
	t.Parallel()

	svc := &stubCampaignService{
		createFn: func(ctx context.Context, req domain.Campaign) (domain.Campaign, error) {
			if err := req.Validate(); err != nil {
				return domain.Campaign{}, err
			}
			req.ID = "c-created"
			req.PriorityScore = 155
			req.SearchRadius = 15000
			req.Status = domain.StatusActive
			return req, nil
		},
	}

	app := newCampaignTestApp(t, svc)

	validBody := `{"bloodType":"O-","unitsNeeded":2,"urgency":"critical","facility":{"id":"fac-1","name":"City Hospital","contact":"+15550100","latitude":12.97,"longitude":77.59}}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/campaigns", validBody)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var created map[string]any
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if created["id"] != "c-created" {
		t.Fatalf("id = %v, want c-created", created["id"])
	}
	if created["priorityScore"] != float64(155) {
		t.Fatalf("priorityScore = %v, want 155", created["priorityScore"])
	}
	if created["status"] != domain.StatusActive.String() {
		t.Fatalf("status = %v, want ACTIVE", created["status"])
	}

	invalidUrgencyBody := `{"bloodType":"O-","unitsNeeded":2,"urgency":"whenever","facility":{"name":"City Hospital","contact":"+15550100"}}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns", invalidUrgencyBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid urgency", resp.StatusCode)
	}

	missingFacilityBody := `{"bloodType":"O-","unitsNeeded":2,"urgency":"critical","facility":{"name":"","contact":""}}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns", missingFacilityBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing facility", resp.StatusCode)
	}
}

func TestCampaignIntegration_GetCampaign(t *testing.T) {
	t.Parallel()

	svc := &stubCampaignService{
		getFn: func(id string) (domain.Campaign, error) {
			if id == "c-found" {
				return domain.Campaign{
					ID:          "c-found",
					BloodType:   "AB-",
					UnitsNeeded: 1,
					Urgency:     domain.UrgencyUrgent,
					Status:      domain.StatusActive,
				}, nil
			}
			return domain.Campaign{}, domain.ErrNotFound
		},
	}

	app := newCampaignTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodGet, "/v1/campaigns/c-found", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/campaigns/not-exists", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCampaignIntegration_RecordResponse(t *testing.T) {
	t.Parallel()

	svc := &stubCampaignService{
		respondFn: func(ctx context.Context, campaignID string, resp domain.Response) (domain.Campaign, error) {
			switch campaignID {
			case "c-open":
				return domain.Campaign{
					ID:        "c-open",
					Status:    domain.StatusActive,
					Responses: []domain.Response{resp},
				}, nil
			case "c-repeat":
				return domain.Campaign{}, fmt.Errorf("%w: already responded", domain.ErrConflict)
			case "c-closed":
				return domain.Campaign{}, fmt.Errorf("%w: campaign closed", domain.ErrClosed)
			}
			return domain.Campaign{}, domain.ErrNotFound
		},
	}

	app := newCampaignTestApp(t, svc)

	acceptBody := `{"recipientId":"donor-1","decision":"accept"}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/campaigns/c-open/responses", acceptBody)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns/c-repeat/responses", acceptBody)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409 for repeated decision", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns/c-closed/responses", acceptBody)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409 for closed campaign", resp.StatusCode)
	}

	invalidDecisionBody := `{"recipientId":"donor-1","decision":"maybe"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns/c-open/responses", invalidDecisionBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid decision", resp.StatusCode)
	}
}

func TestCampaignIntegration_CloseCampaign(t *testing.T) {
	t.Parallel()

	svc := &stubCampaignService{
		closeFn: func(ctx context.Context, campaignID string, status domain.Status, reason string) error {
			if !status.IsTerminal() {
				return fmt.Errorf("%w: %q is not a terminal status", domain.ErrValidation, status)
			}
			if campaignID != "c-open" {
				return domain.ErrNotFound
			}
			return nil
		},
	}

	app := newCampaignTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/campaigns/c-open/close", `{"reason":"fulfilled"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["status"] != domain.StatusResolved.String() {
		t.Fatalf("status = %v, want RESOLVED default", parsed["status"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns/c-open/close", `{"status":"active"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for non-terminal close status", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/campaigns/missing/close", `{"status":"expired"}`)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCampaignIntegration_GetAnalytics(t *testing.T) {
	t.Parallel()

	matchedAt := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	svc := &stubCampaignService{
		listFn: func() []domain.Campaign {
			return []domain.Campaign{
				{
					ID:        "c-1",
					Status:    domain.StatusCoordinating,
					MatchedAt: &matchedAt,
					Responses: []domain.Response{
						{RecipientID: "donor-1", Decision: domain.DecisionAccept, Latency: 4 * time.Minute},
					},
				},
				{ID: "c-2", Status: domain.StatusResolved},
			}
		},
	}

	app := newCampaignTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/analytics", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["totalCampaigns"] != float64(2) {
		t.Fatalf("totalCampaigns = %v, want 2", parsed["totalCampaigns"])
	}
	if parsed["successfulMatches"] != float64(1) {
		t.Fatalf("successfulMatches = %v, want 1", parsed["successfulMatches"])
	}
}

func TestHealthIntegration_LivezAndReadyz(t *testing.T) {
	t.Parallel()

	t.Run("livez returns 200", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sql.OpenDB(stubConnector{}), newStubRedisClient(nil))

		resp, body := performRequest(t, app, http.MethodGet, "/livez", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 200 when dependencies healthy", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(nil)
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, rdb)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 200 without audit database", func(t *testing.T) {
		t.Parallel()

		rdb := newStubRedisClient(nil)
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, nil, rdb)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 503 when dependencies down", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{pingErr: errors.New("postgres down")})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(errors.New("redis down"))
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, rdb)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body=%s", resp.StatusCode, string(body))
		}
	})
}

type stubCampaignService struct {
	createFn  func(ctx context.Context, req domain.Campaign) (domain.Campaign, error)
	getFn     func(id string) (domain.Campaign, error)
	listFn    func() []domain.Campaign
	respondFn func(ctx context.Context, campaignID string, resp domain.Response) (domain.Campaign, error)
	closeFn   func(ctx context.Context, campaignID string, status domain.Status, reason string) error
}

func (s *stubCampaignService) CreateCampaign(ctx context.Context, req domain.Campaign) (domain.Campaign, error) {
	if s.createFn != nil {
		return s.createFn(ctx, req)
	}
	return domain.Campaign{}, errors.New("not implemented")
}

func (s *stubCampaignService) GetCampaign(id string) (domain.Campaign, error) {
	if s.getFn != nil {
		return s.getFn(id)
	}
	return domain.Campaign{}, domain.ErrNotFound
}

func (s *stubCampaignService) ListCampaigns() []domain.Campaign {
	if s.listFn != nil {
		return s.listFn()
	}
	return nil
}

func (s *stubCampaignService) RecordResponse(ctx context.Context, campaignID string, resp domain.Response) (domain.Campaign, error) {
	if s.respondFn != nil {
		return s.respondFn(ctx, campaignID, resp)
	}
	return domain.Campaign{}, errors.New("not implemented")
}

func (s *stubCampaignService) CloseCampaign(ctx context.Context, campaignID string, status domain.Status, reason string) error {
	if s.closeFn != nil {
		return s.closeFn(ctx, campaignID, status, reason)
	}
	return errors.New("not implemented")
}

func newCampaignTestApp(t *testing.T, svc CampaignService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterCampaignRoutes(app, svc); err != nil {
		t.Fatalf("RegisterCampaignRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

type stubRedisHook struct {
	pingErr error
}

func (h stubRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h stubRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "ping") {
			if h.pingErr != nil {
				cmd.SetErr(h.pingErr)
				return h.pingErr
			}
			cmd.SetErr(nil)
			return nil
		}
		cmd.SetErr(nil)
		return nil
	}
}

func (h stubRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			cmd.SetErr(nil)
		}
		return nil
	}
}

func newStubRedisClient(pingErr error) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:6379",
		DialTimeout:  time.Millisecond,
		ReadTimeout:  time.Millisecond,
		WriteTimeout: time.Millisecond,
	})
	rdb.AddHook(stubRedisHook{pingErr: pingErr})
	return rdb
}
