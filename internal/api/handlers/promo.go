package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/errors"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	service "github.com/aaravmahajanofficial/storefront-checkout/internal/services"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type PromoHandler struct {
	promoService service.PromoService
	cartService  service.CartService
	currency     string
	validator    *validator.Validate
}

func NewPromoHandler(promoService service.PromoService, cartService service.CartService, currency string) *PromoHandler {
	return &PromoHandler{promoService: promoService, cartService: cartService, currency: currency, validator: validator.New()}
}

// ValidatePromo godoc
//	@Summary		Check a promo code against the cart
//	@Description	Evaluates the code against the authenticated user's current cart without redeeming it.
//	@Tags			Promos
//	@Accept			json
//	@Produce		json
//	@Param			promo	body		models.ValidatePromoRequest	true	"Promo code"
//	@Success		200		{object}	models.PromoEvaluation		"Discount that would apply"
//	@Failure		400		{object}	response.ErrorResponse		"Empty cart or validation error"
//	@Failure		401		{object}	response.ErrorResponse		"Authentication required"
//	@Failure		404		{object}	response.ErrorResponse		"Unknown promo code"
//	@Failure		400		{object}	response.ErrorResponse		"Promo code does not apply"
//	@Security		BearerAuth
//	@Router			/promos/validate [post]
func (h *PromoHandler) ValidatePromo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		actor, ok := requireActor(w, r, logger)
		if !ok {
			return
		}

		var req models.ValidatePromoRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		cart, err := h.cartService.GetCart(r.Context(), actor.UserID)
		if err != nil {
			response.Error(w, err)
			return
		}

		if cart.IsEmpty() {
			response.Error(w, errors.BadRequestError("Cart is empty"))
			return
		}

		lines := make([]models.PromoLine, 0, len(cart.Items))
		for _, item := range cart.Items {
			lines = append(lines, models.PromoLine{ProductID: item.ProductID, Category: item.Category, LineTotal: item.TotalPrice})
		}

		currency := req.Currency
		if currency == "" {
			currency = h.currency
		}

		evaluation, err := h.promoService.Evaluate(r.Context(), req.Code, actor.UserID, lines, currency)
		if err != nil {
			logger.Info("Promo code rejected", slog.String("code", req.Code), slog.Any("error", err))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, evaluation)
	}
}
