package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuthMiddleware("test-secret-key", zap.NewNop())
	other := NewAuthMiddleware("another-secret", zap.NewNop())

	type want struct {
		statusCode int
		userID     string
		newCookie  bool
	}

	tests := []struct {
		name   string
		cookie *http.Cookie
		want   want
	}{
		{
			name:   "positive: no cookie issues a new identity",
			cookie: nil,
			want: want{
				statusCode: http.StatusOK,
				newCookie:  true,
			},
		},
		{
			name:   "positive: signed cookie is accepted",
			cookie: &http.Cookie{Name: CookieName, Value: auth.SignUserID("user-42")},
			want: want{
				statusCode: http.StatusOK,
				userID:     "user-42",
			},
		},
		{
			name:   "positive: user id containing dots",
			cookie: &http.Cookie{Name: CookieName, Value: auth.SignUserID("a.b.c")},
			want: want{
				statusCode: http.StatusOK,
				userID:     "a.b.c",
			},
		},
		{
			name:   "negative: signed with another key",
			cookie: &http.Cookie{Name: CookieName, Value: other.SignUserID("user-42")},
			want:   want{statusCode: http.StatusUnauthorized},
		},
		{
			name:   "negative: tampered user id",
			cookie: &http.Cookie{Name: CookieName, Value: strings.Replace(auth.SignUserID("user-42"), "user-42", "user-43", 1)},
			want:   want{statusCode: http.StatusUnauthorized},
		},
		{
			name:   "negative: no signature",
			cookie: &http.Cookie{Name: CookieName, Value: "user-42"},
			want:   want{statusCode: http.StatusUnauthorized},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				userID, ok := GetUserIDFromContext(r.Context())
				require.True(t, ok)
				seen = userID
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			w := httptest.NewRecorder()
			auth.Handler(next).ServeHTTP(w, req)

			result := w.Result()
			defer result.Body.Close()

			assert.Equal(t, tt.want.statusCode, result.StatusCode)
			if tt.want.statusCode != http.StatusOK {
				assert.Empty(t, seen)
				return
			}

			if tt.want.userID != "" {
				assert.Equal(t, tt.want.userID, seen)
			}

			cookies := result.Cookies()
			if !tt.want.newCookie {
				assert.Empty(t, cookies)
				return
			}

			require.Len(t, cookies, 1)
			assert.Equal(t, CookieName, cookies[0].Name)
			assert.True(t, cookies[0].HttpOnly)
			assert.Equal(t, auth.SignUserID(seen), cookies[0].Value)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
		})
	}
}

func TestGetUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := GetUserIDFromContext(req.Context())
	assert.False(t, ok)
}
