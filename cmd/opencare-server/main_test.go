package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/opencare/opencare/internal/config"
	"github.com/opencare/opencare/internal/domain/labresults"
	"github.com/opencare/opencare/internal/platform/auth"
)

const testSigningKey = "test-signing-key"

func runExtract(t *testing.T, stdin string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"extract"}, args...))
	return &out, root.Execute()
}

func TestExtractCmd_Stdin(t *testing.T) {
	out, err := runExtract(t, "Résultats: NA 139 K 4.1 GLUCOSE: 5,6", "--labels", "NA,K,GLUCOSE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp labresults.ExtractResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if resp.Count != 3 {
		t.Fatalf("expected 3 values, got %+v", resp)
	}
	if resp.ExtractedValues[2].TestName != "GLUCOSE" || resp.ExtractedValues[2].Value != "5.6" {
		t.Errorf("unexpected glucose value: %+v", resp.ExtractedValues[2])
	}
}

func TestExtractCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("Hemoglobin: 13,2 g/dL"), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	out, err := runExtract(t, "", "--labels", "Hemoglobin", "--file", path, "--fhir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var bundle map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &bundle); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	entries, _ := bundle["entry"].([]interface{})
	if bundle["resourceType"] != "Bundle" || len(entries) != 1 {
		t.Errorf("unexpected bundle: %s", out.String())
	}
	if _, ok := bundle["total"]; ok {
		t.Error("collection bundles must not carry total")
	}
}

func TestExtractCmd_RequiresLabels(t *testing.T) {
	if _, err := runExtract(t, "Sodium 142"); err == nil {
		t.Fatal("expected error without --labels")
	}
}

func TestTrimLabels(t *testing.T) {
	got := trimLabels([]string{" NA", "", "K ", "  "})
	if len(got) != 2 || got[0] != "NA" || got[1] != "K" {
		t.Errorf("unexpected labels: %q", got)
	}
}

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:            env,
		AuthSigningKey: testSigningKey,
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 200,
		BodyLimit:      "1M",
		RequestTimeout: 5 * time.Second,
		MaxTextBytes:   1024,
		LogLevel:       "info",
	}
}

func signToken(t *testing.T, roles ...string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doExtract(t *testing.T, cfg *config.Config, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := newServer(cfg, zerolog.Nop(), deps{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lab-results/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_DevModeExtract(t *testing.T) {
	rec := doExtract(t, testConfig("development"), "", `{"text":"NA 139 K 4.1","labels":["NA","K"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}

	var resp labresults.ExtractResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected 2 values, got %+v", resp)
	}
}

func TestServer_ProductionAuth(t *testing.T) {
	cfg := testConfig("production")
	body := `{"text":"NA 139","labels":["NA"]}`

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"physician", signToken(t, "physician"), http.StatusOK},
		{"lab tech", signToken(t, "lab_tech"), http.StatusOK},
		{"billing only", signToken(t, "billing"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doExtract(t, cfg, tt.token, body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestServer_BadRequestAndTooLarge(t *testing.T) {
	cfg := testConfig("development")

	rec := doExtract(t, cfg, "", `{"text":"NA 139"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing labels: expected 400, got %d", rec.Code)
	}

	big := strings.Repeat("x", 2048)
	rec = doExtract(t, cfg, "", `{"text":"`+big+`","labels":["NA"]}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized text: expected 413, got %d", rec.Code)
	}
}

func TestServer_HealthIsPublic(t *testing.T) {
	e := newServer(testConfig("production"), zerolog.Nop(), deps{})

	for _, path := range []string{"/health", "/health/db"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200 without auth, got %d", path, rec.Code)
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig("production")
	cfg.LogLevel = "warn"

	logger := newLogger(cfg, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected log output: %s", buf.String())
	}
}

func TestServer_PanicBecomes500(t *testing.T) {
	cfg := testConfig("development")
	e := newServer(cfg, zerolog.Nop(), deps{})
	e.GET("/api/v1/boom", func(c echo.Context) error {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}

	// The server keeps serving after a recovered panic.
	rec = doExtract(t, cfg, "", `{"text":"K .5","labels":["K"]}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `".5"`) {
		t.Errorf("expected 200 with .5, got %d: %s", rec.Code, rec.Body.String())
	}
}
