package turnstile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Verify(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		expectSuccess bool
		expectCodes   []string
		expectError   bool
	}{
		{
			name:          "token accepted",
			status:        http.StatusOK,
			body:          `{"success":true,"hostname":"example.com"}`,
			expectSuccess: true,
		},
		{
			name:        "token rejected",
			status:      http.StatusOK,
			body:        `{"success":false,"error-codes":["invalid-input-response"]}`,
			expectCodes: []string{"invalid-input-response"},
		},
		{
			name:        "verifier unavailable",
			status:      http.StatusBadGateway,
			body:        `oops`,
			expectError: true,
		},
		{
			name:        "garbage body",
			status:      http.StatusOK,
			body:        `not json`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var form map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				form = map[string]string{
					"secret":   r.PostForm.Get("secret"),
					"response": r.PostForm.Get("response"),
					"remoteip": r.PostForm.Get("remoteip"),
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("s3cret").WithEndpoint(srv.URL)
			resp, err := client.Verify(context.Background(), "tok", "203.0.113.7")

			assert.Equal(t, "s3cret", form["secret"])
			assert.Equal(t, "tok", form["response"])
			assert.Equal(t, "203.0.113.7", form["remoteip"])

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectSuccess, resp.Success)
			assert.Equal(t, tt.expectCodes, resp.ErrorCodes)
		})
	}
}
