package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

func TestLoggingWritesOneAccessLine(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok", http.StatusCreated, "info"},
		{"client error", http.StatusConflict, "warn"},
		{"server error", http.StatusBadGateway, "warn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logg := logger.New(logger.Options{ServiceName: "test", Level: "debug", Output: buf})
			handler := Logging(logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("hello"))
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))

			var entry map[string]any
			require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
			require.Equal(t, tt.wantLevel, entry["level"])
			require.Equal(t, "request served", entry["message"])
			require.Equal(t, float64(tt.status), entry["status"])
			require.Equal(t, float64(5), entry["bytes"])
			require.Equal(t, "/api/v1/checkout", entry["path"])
		})
	}
}
