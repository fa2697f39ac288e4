package middleware_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/auth"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signingKey = []byte("checkout-test-signing-key-000001")

// tokenSpec describes the JWT a test request carries. Zero values give a
// valid HS256 token for a fresh customer.
type tokenSpec struct {
	userID    uuid.UUID
	role      models.Role
	ttl       time.Duration
	noExpiry  bool
	key       []byte
	algorithm jwt.SigningMethod
}

func (s tokenSpec) sign(t *testing.T) string {
	t.Helper()

	if s.userID == uuid.Nil {
		s.userID = uuid.New()
	}

	if s.ttl == 0 {
		s.ttl = time.Hour
	}

	if s.key == nil {
		s.key = signingKey
	}

	if s.algorithm == nil {
		s.algorithm = jwt.SigningMethodHS256
	}

	claims := &models.Claims{
		UserID: s.userID,
		Email:  "shopper@example.com",
		Role:   s.role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	if !s.noExpiry {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(s.ttl))
	}

	signed, err := jwt.NewWithClaims(s.algorithm, claims).SignedString(s.key)
	require.NoError(t, err)

	return signed
}

func newRequest(method, target, authorization string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return req.WithContext(context.WithValue(req.Context(), middleware.LoggerKey, logger))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) *response.ErrorResponse {
	t.Helper()

	var body response.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.NotNil(t, body.Error)

	return body.Error
}

func TestAuthenticate_Claims(t *testing.T) {
	mw := middleware.NewAuthMiddleware(signingKey, auth.NewStaticAuthorizer())
	userID := uuid.New()

	tests := []struct {
		name     string
		role     models.Role
		wantRole models.Role
	}{
		{name: "Customer role kept", role: models.RoleCustomer, wantRole: models.RoleCustomer},
		{name: "Admin role kept", role: models.RoleAdmin, wantRole: models.RoleAdmin},
		{name: "Support role kept", role: models.RoleSupport, wantRole: models.RoleSupport},
		{name: "Token without role acts as customer", role: "", wantRole: models.RoleCustomer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen *models.Claims

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				claims, ok := middleware.ClaimsFromContext(r.Context())
				require.True(t, ok)

				seen = claims
				w.WriteHeader(http.StatusNoContent)
			})

			token := tokenSpec{userID: userID, role: tc.role}.sign(t)
			rr := httptest.NewRecorder()

			mw.Authenticate(next).ServeHTTP(rr, newRequest(http.MethodGet, "/api/v1/orders", "Bearer "+token))

			require.Equal(t, http.StatusNoContent, rr.Code)
			require.NotNil(t, seen)
			assert.Equal(t, userID, seen.UserID)
			assert.Equal(t, tc.wantRole, seen.Role)
			assert.Equal(t, models.Actor{UserID: userID, Role: tc.wantRole}, seen.Actor())
		})
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	mw := middleware.NewAuthMiddleware(signingKey, auth.NewStaticAuthorizer())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the handler")
	})

	tests := []struct {
		name          string
		authorization func(t *testing.T) string
		wantMessage   string
	}{
		{
			name:          "No header",
			authorization: func(*testing.T) string { return "" },
			wantMessage:   "Authorization header is required",
		},
		{
			name:          "Basic scheme",
			authorization: func(*testing.T) string { return "Basic dXNlcjpwYXNz" },
			wantMessage:   "Invalid authorization format",
		},
		{
			name:          "Token with trailing segment",
			authorization: func(t *testing.T) string { return "Bearer " + tokenSpec{}.sign(t) + " extra" },
			wantMessage:   "Invalid authorization format",
		},
		{
			name:          "Token missing expiry",
			authorization: func(t *testing.T) string { return "Bearer " + tokenSpec{noExpiry: true}.sign(t) },
			wantMessage:   "Invalid or expired token",
		},
		{
			name:          "Expired admin token",
			authorization: func(t *testing.T) string { return "Bearer " + tokenSpec{role: models.RoleAdmin, ttl: -time.Minute}.sign(t) },
			wantMessage:   "Invalid or expired token",
		},
		{
			name:          "Admin claim signed by another key",
			authorization: func(t *testing.T) string { return "Bearer " + tokenSpec{role: models.RoleAdmin, key: []byte("forged")}.sign(t) },
			wantMessage:   "Invalid or expired token",
		},
		{
			name:          "Algorithm other than HS256",
			authorization: func(t *testing.T) string { return "Bearer " + tokenSpec{algorithm: jwt.SigningMethodHS384}.sign(t) },
			wantMessage:   "Invalid or expired token",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			mw.Authenticate(next).ServeHTTP(rr, newRequest(http.MethodGet, "/api/v1/cart", tc.authorization(t)))

			assert.Equal(t, http.StatusUnauthorized, rr.Code)

			apiErr := decodeError(t, rr)
			assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
			assert.Equal(t, tc.wantMessage, apiErr.Message)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	mw := middleware.NewAuthMiddleware(signingKey, auth.NewStaticAuthorizer())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		action  auth.Action
		role    models.Role
		allowed bool
	}{
		{auth.ActionRefundOrder, models.RoleAdmin, true},
		{auth.ActionRefundOrder, models.RoleSupport, false},
		{auth.ActionRefundOrder, models.RoleCustomer, false},
		{auth.ActionFulfillOrder, models.RoleAdmin, true},
		{auth.ActionFulfillOrder, models.RoleSupport, false},
		{auth.ActionSendEmail, models.RoleSupport, true},
		{auth.ActionSendEmail, models.RoleCustomer, false},
		{auth.ActionSendEmail, "", false},
	}

	for _, tc := range tests {
		t.Run(string(tc.action)+"/"+string(tc.role), func(t *testing.T) {
			token := tokenSpec{role: tc.role}.sign(t)
			rr := httptest.NewRecorder()

			mw.RequirePermission(tc.action, next).ServeHTTP(rr, newRequest(http.MethodPost, "/api/v1/admin/orders/1/refund", "Bearer "+token))

			if tc.allowed {
				assert.Equal(t, http.StatusNoContent, rr.Code)

				return
			}

			assert.Equal(t, http.StatusForbidden, rr.Code)
			assert.Equal(t, "FORBIDDEN", decodeError(t, rr).Code)
		})
	}

	t.Run("Unauthenticated caller never reaches the check", func(t *testing.T) {
		rr := httptest.NewRecorder()

		mw.RequirePermission(auth.ActionRefundOrder, next).ServeHTTP(rr, newRequest(http.MethodPost, "/api/v1/admin/orders/1/refund", ""))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Missing authorizer denies", func(t *testing.T) {
		noAuthz := middleware.NewAuthMiddleware(signingKey, nil)
		token := tokenSpec{role: models.RoleAdmin}.sign(t)
		rr := httptest.NewRecorder()

		noAuthz.RequirePermission(auth.ActionRefundOrder, next).ServeHTTP(rr, newRequest(http.MethodPost, "/api/v1/admin/orders/1/refund", "Bearer "+token))

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
