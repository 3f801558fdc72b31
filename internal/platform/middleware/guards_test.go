package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func codeOf(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 0
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients/1", nil), rec)

	if err := SecurityHeaders(true)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s: got %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS when enabled")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected handler to run, got %d", rec.Code)
	}
}

func TestSecurityHeaders_NoHSTSInDevelopment(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)

	if err := SecurityHeaders(false)(okHandler)(c); err != nil {
		t.Fatal(err)
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("expected no HSTS, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options: got %q", got)
	}
}

func TestRequestTimeout(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if err := RequestTimeout(time.Second)(okHandler)(c); err != nil {
		t.Errorf("fast handler: unexpected error %v", err)
	}

	slow := func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	}
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if got := codeOf(RequestTimeout(20 * time.Millisecond)(slow)(c)); got != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", got)
	}
}

func TestRequestTimeout_SetsDeadline(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	var deadline time.Time
	var ok bool
	h := func(c echo.Context) error {
		deadline, ok = c.Request().Context().Deadline()
		return nil
	}
	if err := RequestTimeout(time.Minute)(h)(c); err != nil {
		t.Fatal(err)
	}
	if !ok || time.Until(deadline) > time.Minute {
		t.Errorf("expected deadline within a minute, got %v %v", deadline, ok)
	}
}

func TestBodyLimit(t *testing.T) {
	e := echo.New()
	readAll := func(c echo.Context) error {
		_, err := io.ReadAll(c.Request().Body)
		return err
	}

	small := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	if err := BodyLimit("1K")(readAll)(e.NewContext(small, httptest.NewRecorder())); err != nil {
		t.Errorf("small body: unexpected error %v", err)
	}

	big := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, 2048)))
	if got := codeOf(BodyLimit("1K")(readAll)(e.NewContext(big, httptest.NewRecorder()))); got != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 from Content-Length, got %d", got)
	}

	chunked := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(bytes.NewReader(make([]byte, 2048))))
	chunked.ContentLength = -1
	if got := codeOf(BodyLimit("1K")(readAll)(e.NewContext(chunked, httptest.NewRecorder()))); got != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 while reading, got %d", got)
	}
}

func TestParseLimit(t *testing.T) {
	for in, want := range map[string]int64{
		"512":  512,
		"64K":  64 << 10,
		"1M":   1 << 20,
		"2MB":  2 << 20,
		"1G":   1 << 30,
		"junk": 1 << 20,
		"":     1 << 20,
	} {
		if got := parseLimit(in); got != want {
			t.Errorf("parseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestSanitize(t *testing.T) {
	e := echo.New()
	mw := Sanitize(zerolog.Nop())

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"clean", "/api/v1/doctors?q=iyer", "", 0},
		{"traversal", "/api/v1/../etc/passwd", "", http.StatusBadRequest},
		{"encoded traversal", "/api/v1/%2e%2e/secret", "", http.StatusBadRequest},
		{"null byte", "/api/v1/doctors?q=a%00b", "", http.StatusBadRequest},
		{"script", "/api/v1/doctors?q=%3Cscript%3E", "", http.StatusBadRequest},
		{"sql is only logged", "/api/v1/doctors?q=1'+OR+1=1", "", 0},
		{"header injection", "/", "a\r\nb", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.URL.Path, req.URL.RawQuery = splitTarget(tt.target)
			req.URL.RawPath = ""
			if strings.Contains(tt.target, "%2e") {
				req.URL.RawPath = strings.SplitN(tt.target, "?", 2)[0]
			}
			if tt.header != "" {
				req.Header["X-Test"] = []string{tt.header}
			}
			req = req.WithContext(context.Background())
			if got := codeOf(mw(okHandler)(e.NewContext(req, httptest.NewRecorder()))); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func splitTarget(target string) (string, string) {
	parts := strings.SplitN(target, "?", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
