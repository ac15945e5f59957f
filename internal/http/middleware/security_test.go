package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ridgeline-exteriors/booking-api/internal/config"
	"github.com/ridgeline-exteriors/booking-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SecurityConfig
		want    map[string]string
		missing []string
	}{
		{
			name: "all headers",
			cfg: config.SecurityConfig{
				EnableHSTS:            true,
				HSTSMaxAge:            31536000,
				HSTSIncludeSubdomains: true,
				ContentSecurityPolicy: "default-src 'none'",
				FrameOptions:          "DENY",
				ContentTypeNosniff:    true,
				ReferrerPolicy:        "no-referrer",
			},
			want: map[string]string{
				"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
				"Content-Security-Policy":   "default-src 'none'",
				"X-Frame-Options":           "DENY",
				"X-Content-Type-Options":    "nosniff",
				"Referrer-Policy":           "no-referrer",
				"Cache-Control":             "no-store",
			},
		},
		{
			name: "hsts without subdomains",
			cfg:  config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: 600},
			want: map[string]string{
				"Strict-Transport-Security": "max-age=600",
			},
			missing: []string{"X-Frame-Options", "X-Content-Type-Options", "Content-Security-Policy"},
		},
		{
			name:    "everything off",
			cfg:     config.SecurityConfig{},
			want:    map[string]string{"Cache-Control": "no-store"},
			missing: []string{"Strict-Transport-Security", "Referrer-Policy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.SecurityHeaders(&tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

			assert.Equal(t, http.StatusNoContent, w.Code)
			for k, v := range tt.want {
				assert.Equal(t, v, w.Header().Get(k), k)
			}
			for _, k := range tt.missing {
				assert.Empty(t, w.Header().Get(k), k)
			}
		})
	}
}
