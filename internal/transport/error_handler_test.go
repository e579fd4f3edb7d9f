package transport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

func TestErrorHandler_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation maps to 400", err: fmt.Errorf("%w: invalid blood type", domain.ErrValidation), want: fiber.StatusBadRequest},
		{name: "not found maps to 404", err: fmt.Errorf("%w: campaign \"x\"", domain.ErrNotFound), want: fiber.StatusNotFound},
		{name: "conflict maps to 409", err: fmt.Errorf("%w: already responded", domain.ErrConflict), want: fiber.StatusConflict},
		{name: "closed maps to 409", err: fmt.Errorf("%w: campaign closed", domain.ErrClosed), want: fiber.StatusConflict},
		{name: "fiber error keeps its code", err: fiber.NewError(fiber.StatusBadRequest, "invalid request body"), want: fiber.StatusBadRequest},
		{name: "unknown error maps to 500", err: fmt.Errorf("broker unavailable"), want: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
			app.Get("/fail", func(*fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
