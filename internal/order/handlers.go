package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/common"
	"github.com/noah-isme/checkout-core/internal/lock"
	"github.com/noah-isme/checkout-core/internal/store"
)

// Handlers exposes order placement over HTTP.
type Handlers struct {
	Service  *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
	Pricing  cart.Context
}

// Routes mounts the order endpoint.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/carts/{token}/order", h.placeOrder)
}

type placeOrderRequest struct {
	Hash string `json:"hash" validate:"required"`
}

func (h *Handlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
			return
		}
	}
	placed, err := h.Service.Place(r.Context(), chi.URLParam(r, "token"), req.Hash, h.Pricing)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, placed)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, store.ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrHashMismatch):
		common.JSONError(w, http.StatusConflict, "CART_CHANGED", "cart changed since last calculation, refresh and retry", nil)
	case errors.Is(err, ErrCartBlocked):
		common.JSONError(w, http.StatusConflict, "CART_BLOCKED", "cart has blocking errors", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "CART_EMPTY", "cart has no line items", nil)
	case errors.Is(err, lock.ErrLockTimeout):
		common.JSONError(w, http.StatusLocked, "CART_LOCKED", "cart is locked, retry later", nil)
	default:
		h.Logger.Error().Err(err).Msg("order placement failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order placement failed", nil)
	}
}
