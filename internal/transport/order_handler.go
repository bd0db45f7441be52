package transport

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wadieregaieg/waadiefr/internal/domain"
	"github.com/wadieregaieg/waadiefr/internal/middleware"
	"github.com/wadieregaieg/waadiefr/internal/repository"
	"github.com/wadieregaieg/waadiefr/internal/service"
)

// CheckoutRequest turns the cart into an order.
type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash_on_delivery bank_transfer card"`
	Address       string `json:"address" validate:"required"`
	Notes         string `json:"notes"`
}

// StatusUpdateRequest moves an order along the lifecycle.
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// ReactivateRequest names the status a cancelled order resumes in.
type ReactivateRequest struct {
	Status string `json:"status" validate:"required,oneof=processing out_for_delivery delivered"`
}

// TransactionStatusRequest records a payment outcome.
type TransactionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed failed"`
}

// OrderHandler handles HTTP requests for orders and payments.
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// RegisterRoutes registers order routes. Users see their own orders;
// status transitions, reactivation and deletion are admin operations,
// except that a user may cancel their own order.
func (h *OrderHandler) RegisterRoutes(r chi.Router, auth, admin func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(auth)
		r.Post("/checkout", h.Checkout)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Post("/{id}/cancel", h.CancelOrder)
		r.Get("/{id}/transactions", h.ListTransactions)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Put("/{id}/status", h.UpdateStatus)
			r.Post("/{id}/reactivate", h.Reactivate)
			r.Delete("/{id}", h.DeletePending)
			r.Put("/transactions/{transactionID}", h.UpdateTransactionStatus)
		})
	})
}

// Checkout converts the user's cart into a pending order.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CheckoutRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	order, err := h.orders.Checkout(r.Context(), userID, service.CheckoutInput{
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Address:       req.Address,
		Notes:         req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			middleware.RespondWithError(w, http.StatusBadRequest, "cart is empty")
		case errors.Is(err, repository.ErrInsufficientStock),
			errors.Is(err, service.ErrProductUnavailable):
			middleware.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("checkout failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to place order")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// GetOrder returns one order. Non-admins only see their own.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	userID, role, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var order *domain.Order
	var err error
	if role == domain.RoleAdmin {
		order, err = h.orders.GetOrder(r.Context(), orderID)
	} else {
		order, err = h.orders.GetUserOrder(r.Context(), userID, orderID)
	}
	if err != nil {
		h.respondOrderError(w, err, "failed to load order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// ListOrders returns a page of orders. Admins may filter by user and
// status; everyone else gets their own orders only.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	page, pageSize := pagination(r)
	q := r.URL.Query()

	var filter repository.OrderFilter
	if role == domain.RoleAdmin {
		if raw := q.Get("user_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				middleware.RespondWithError(w, http.StatusBadRequest, "invalid user_id")
				return
			}
			filter.UserID = &id
		}
	} else {
		filter.UserID = &userID
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.OrderStatus(raw)
		if !status.Valid() {
			middleware.RespondWithError(w, http.StatusBadRequest, "unknown order status")
			return
		}
		filter.Status = &status
	}

	orders, total, err := h.orders.ListOrders(r.Context(), filter, page, pageSize)
	if err != nil {
		h.logger.Error("order listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, PagedResponse{
		Items:    orders,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// UpdateStatus moves an order to a new lifecycle status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	status := domain.OrderStatus(req.Status)
	if !status.Valid() {
		middleware.RespondWithError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, status)
	if err != nil {
		h.respondOrderError(w, err, "failed to update order status")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// CancelOrder cancels the caller's own order.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	order, err := h.orders.CancelOrder(r.Context(), userID, orderID)
	if err != nil {
		h.respondOrderError(w, err, "failed to cancel order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Reactivate resumes a cancelled order in the requested status.
func (h *OrderHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req ReactivateRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	order, err := h.orders.Reactivate(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		h.respondOrderError(w, err, "failed to reactivate order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// DeletePending removes a pending order and restores its stock.
func (h *OrderHandler) DeletePending(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.orders.DeletePending(r.Context(), orderID); err != nil {
		h.respondOrderError(w, err, "failed to delete order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

// ListTransactions returns the payment audit trail for an order.
func (h *OrderHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	userID, role, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if role != domain.RoleAdmin {
		if _, err := h.orders.GetUserOrder(r.Context(), userID, orderID); err != nil {
			h.respondOrderError(w, err, "failed to load order")
			return
		}
	}

	transactions, err := h.orders.ListTransactions(r.Context(), orderID)
	if err != nil {
		h.respondOrderError(w, err, "failed to list transactions")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, transactions)
}

// UpdateTransactionStatus records a payment outcome.
func (h *OrderHandler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionID")

	var req TransactionStatusRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	err := h.orders.UpdateTransactionStatus(r.Context(), transactionID, domain.TransactionStatus(req.Status))
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.logger.Error("transaction update failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update transaction")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "transaction updated"})
}

// requireIdentity extracts the user ID and role, replying 401 when
// either is missing.
func requireIdentity(w http.ResponseWriter, r *http.Request) (uuid.UUID, domain.Role, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, "", false
	}
	role, ok := middleware.GetUserRole(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, "", false
	}
	return userID, role, true
}

func (h *OrderHandler) respondOrderError(w http.ResponseWriter, err error, fallback string) {
	var transitionErr *domain.TransitionError

	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, service.ErrNotOrderOwner):
		middleware.RespondWithError(w, http.StatusForbidden, "order belongs to another user")
	case errors.As(err, &transitionErr):
		middleware.RespondWithError(w, http.StatusConflict, transitionErr.Error())
	case errors.Is(err, service.ErrOrderNotPending),
		errors.Is(err, service.ErrOrderNotCancelled),
		errors.Is(err, repository.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrBadReactivateTarget):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
