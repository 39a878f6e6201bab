package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		roles   []string
		allowed bool
	}{
		{"matching role", []string{"lab_tech"}, true},
		{"admin bypass", []string{"admin"}, true},
		{"one of several", []string{"billing", "nurse"}, true},
		{"wrong role", []string{"billing"}, false},
		{"no roles", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, tt.roles))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := RequireRole("physician", "nurse", "lab_tech")(okHandler)(c)
			if tt.allowed {
				if err != nil {
					t.Errorf("expected access, got %v", err)
				}
				return
			}
			expectStatus(t, err, http.StatusForbidden)
		})
	}
}
