package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
)

// requireActor writes a 401 and returns false when the request carries no claims.
func requireActor(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (models.Actor, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		logger.Warn("Unauthorized request: missing user claims", slog.String("path", r.URL.Path))
		response.Error(w, errors.UnauthorizedError("Authentication required"))

		return models.Actor{}, false
	}

	return claims.Actor(), true
}
