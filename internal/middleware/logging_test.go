package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusConflict, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		req := httptest.NewRequest("POST", "/api/lists/3/complete", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		if !strings.Contains(out, tt.level) {
			t.Errorf("status %d: expected %s in %q", tt.status, tt.level, out)
		}
		if !strings.Contains(out, "path=/api/lists/3/complete") {
			t.Errorf("status %d: path missing from %q", tt.status, out)
		}
	}
}
