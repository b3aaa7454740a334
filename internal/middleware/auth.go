package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

const (
	CookieName    = "user_id"
	cookieExpires = 365 * 24 * time.Hour
)

var errInvalidSignature = errors.New("invalid cookie signature")

// Auth is the identity provider for the API: a user id signed into a cookie.
// A request without the cookie gets a fresh id; a tampered cookie is refused.
type Auth struct {
	secret []byte
	logger *zap.Logger
}

func NewAuthMiddleware(secret string, logger *zap.Logger) *Auth {
	return &Auth{
		secret: []byte(secret),
		logger: logger,
	}
}

func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, issued, err := a.userID(r)
		if err != nil {
			a.logger.Warn("Rejected identity cookie", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if issued {
			a.setUserCookie(w, userID)
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) userID(r *http.Request) (string, bool, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return uuid.New().String(), true, nil
	}

	userID, ok := a.parseCookie(cookie.Value)
	if !ok {
		return "", false, errInvalidSignature
	}

	return userID, false, nil
}

func (a *Auth) setUserCookie(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    a.SignUserID(userID),
		Path:     "/",
		Expires:  time.Now().Add(cookieExpires),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SignUserID returns the cookie value for userID.
func (a *Auth) SignUserID(userID string) string {
	return userID + "." + a.signature(userID)
}

func (a *Auth) signature(userID string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *Auth) parseCookie(value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", false
	}

	userID, signature := value[:i], value[i+1:]
	if !hmac.Equal([]byte(signature), []byte(a.signature(userID))) {
		return "", false
	}

	return userID, true
}

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
