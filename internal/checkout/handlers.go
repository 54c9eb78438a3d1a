package checkout

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
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/promotion"
	"github.com/noah-isme/checkout-core/internal/store"
	"github.com/noah-isme/checkout-core/internal/tax"
)

// Handlers exposes the cart mutation operations over HTTP.
type Handlers struct {
	Service  *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
	Pricing  cart.Context
}

// Routes mounts the cart endpoints.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/carts/{token}", h.getCart)
	r.Delete("/carts/{token}", h.deleteCart)
	r.Post("/carts/{token}/items", h.addItem)
	r.Patch("/carts/{token}/items/{itemID}", h.updateQuantity)
	r.Delete("/carts/{token}/items/{itemID}", h.removeItem)
	r.Post("/carts/{token}/promotions", h.applyPromotion)
	r.Delete("/carts/{token}/promotions/{promotionID}", h.removePromotion)
	r.Put("/carts/{token}/shipping", h.setShipping)
}

type addItemRequest struct {
	ID           string  `json:"id"`
	Type         string  `json:"type" validate:"omitempty,oneof=product custom"`
	ReferencedID string  `json:"referencedId"`
	Label        string  `json:"label"`
	Quantity     int     `json:"quantity" validate:"required,min=1"`
	UnitPrice    float64 `json:"unitPrice" validate:"required,gt=0"`
	TaxRate      float64 `json:"taxRate" validate:"min=0"`
}

func (h *Handlers) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	itemType := cart.LineItemType(req.Type)
	if itemType == "" {
		itemType = cart.LineItemTypeProduct
	}
	item := &cart.LineItem{
		ID:           req.ID,
		Type:         itemType,
		ReferencedID: req.ReferencedID,
		Label:        req.Label,
		Quantity:     req.Quantity,
		Good:         true,
		PriceDefinition: price.QuantityDefinition{
			Price:    req.UnitPrice,
			Quantity: req.Quantity,
			TaxRules: tax.NewRuleCollection(req.TaxRate),
		},
	}
	c, err := h.Service.AddItem(r.Context(), chi.URLParam(r, "token"), item, h.Pricing)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func (h *Handlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.Service.UpdateQuantity(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "itemID"), req.Quantity, h.Pricing)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

func (h *Handlers) removeItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.RemoveItem(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "itemID"), h.Pricing)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

type applyPromotionRequest struct {
	PromotionID string   `json:"promotionId" validate:"required"`
	Label       string   `json:"label"`
	Scope       string   `json:"scope" validate:"required,oneof=cart delivery"`
	Type        string   `json:"type" validate:"required,oneof=absolute percentage"`
	Value       float64  `json:"value" validate:"required,gt=0"`
	Priority    int      `json:"priority"`
	Exclusions  []string `json:"exclusions"`
	Packager    string   `json:"packager" validate:"omitempty,oneof=cart set setgroup"`
	SetSize     int      `json:"setSize" validate:"min=0"`
	Picker      string   `json:"picker" validate:"omitempty,oneof=all cheapest costliest"`
	PickCount   int      `json:"pickCount" validate:"min=0"`
}

func (h *Handlers) applyPromotion(w http.ResponseWriter, r *http.Request) {
	var req applyPromotionRequest
	if !h.decode(w, r, &req) {
		return
	}
	meta := cart.DiscountMetadata{
		PromotionID: req.PromotionID,
		Label:       req.Label,
		Scope:       cart.DiscountScope(req.Scope),
		Type:        cart.DiscountType(req.Type),
		Value:       req.Value,
		Priority:    req.Priority,
		Exclusions:  req.Exclusions,
		Packager:    cart.PackagerKind(req.Packager),
		SetSize:     req.SetSize,
		Picker:      cart.PickerKind(req.Picker),
		PickCount:   req.PickCount,
	}
	c, err := h.Service.ApplyPromotion(r.Context(), chi.URLParam(r, "token"), meta, h.Pricing)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

func (h *Handlers) removePromotion(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.RemovePromotion(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "promotionID"), h.Pricing)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

type setShippingRequest struct {
	Price   float64 `json:"price" validate:"min=0"`
	TaxRate float64 `json:"taxRate" validate:"min=0"`
}

func (h *Handlers) setShipping(w http.ResponseWriter, r *http.Request) {
	var req setShippingRequest
	if !h.decode(w, r, &req) {
		return
	}
	def := price.QuantityDefinition{
		Price:    req.Price,
		Quantity: 1,
		TaxRules: tax.NewRuleCollection(req.TaxRate),
	}
	c, err := h.Service.SetShippingCosts(r.Context(), chi.URLParam(r, "token"), def, h.Pricing)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

func (h *Handlers) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.Get(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, c)
}

func (h *Handlers) deleteCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(v); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
			return false
		}
	}
	return true
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
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "line item not found", nil)
	case errors.Is(err, lock.ErrLockTimeout):
		common.JSONError(w, http.StatusLocked, "CART_LOCKED", "cart is locked, retry later", nil)
	case errors.Is(err, cart.ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "INVALID_QUANTITY", "quantity must be at least 1", nil)
	case errors.Is(err, promotion.ErrInvalidScope):
		common.JSONError(w, http.StatusBadRequest, "INVALID_SCOPE", "discount scope is not recognised", nil)
	default:
		h.Logger.Error().Err(err).Msg("cart operation failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart operation failed", nil)
	}
}
