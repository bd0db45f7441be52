package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wadieregaieg/waadiefr/internal/domain"
	"github.com/wadieregaieg/waadiefr/internal/repository"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrOrderNotPending     = errors.New("only pending orders can be deleted")
	ErrOrderNotCancelled   = errors.New("only cancelled orders can be reactivated")
	ErrBadReactivateTarget = errors.New("reactivation target must be processing, out_for_delivery or delivered")
	ErrProductUnavailable  = errors.New("product is not available")
	ErrNotOrderOwner       = errors.New("order belongs to another user")
	ErrUnknownPaymentState = errors.New("unknown transaction status")
)

// Inventory ledger reasons written by order operations.
const (
	reasonOrderPlaced      = "order placed"
	reasonOrderCancelled   = "order cancelled"
	reasonOrderDeleted     = "pending order deleted"
	reasonOrderReactivated = "order reactivated"
)

// CheckoutInput carries the order-level fields for checkout.
type CheckoutInput struct {
	PaymentMethod domain.PaymentMethod
	Address       string
	Notes         string
}

// OrderService turns carts into orders and drives the order lifecycle.
// Every operation that touches both orders and stock runs inside a
// single database transaction.
type OrderService interface {
	Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetUserOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter, page, pageSize int) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (*domain.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error)
	Reactivate(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus) (*domain.Order, error)
	DeletePending(ctx context.Context, orderID uuid.UUID) error
	ListTransactions(ctx context.Context, orderID uuid.UUID) ([]*domain.PaymentTransaction, error)
	UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error
}

type orderService struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderService creates a new instance of OrderService. It takes the
// raw database handle because its operations span repositories inside
// transactions.
func NewOrderService(db *sql.DB, logger *zap.Logger) OrderService {
	return &orderService{db: db, logger: logger}
}

// Checkout converts the user's cart into a pending order. Stock is
// deducted here, exactly once per order line, atomically per product;
// any shortage aborts the whole transaction so no partial order exists.
// The cart is emptied on success.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*domain.Order, error) {
	if !input.PaymentMethod.Valid() {
		return nil, fmt.Errorf("unknown payment method %q", input.PaymentMethod)
	}

	var order *domain.Order
	err := repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		cartRepo := repository.NewCartRepository(tx)
		productRepo := repository.NewProductRepository(tx)
		orderRepo := repository.NewOrderRepository(tx)
		inventoryRepo := repository.NewInventoryRepository(tx)

		cart, err := cartRepo.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		if err := cartRepo.LoadItems(ctx, cart); err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		now := time.Now()
		order = &domain.Order{
			ID:            uuid.New(),
			UserID:        userID,
			Status:        domain.OrderPending,
			PaymentMethod: input.PaymentMethod,
			Address:       input.Address,
			Notes:         input.Notes,
			OrderDate:     now,
			UpdatedAt:     now,
		}

		for _, ci := range cart.Items {
			product, err := productRepo.FindByID(ctx, ci.ProductID)
			if err != nil {
				return err
			}
			if !product.IsActive {
				return fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
			}

			if err := productRepo.DeductStock(ctx, product.ID, ci.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return fmt.Errorf("%w: %s", repository.ErrInsufficientStock, product.Name)
				}
				return err
			}

			order.Items = append(order.Items, &domain.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: product.ID,
				Quantity:  ci.Quantity,
				Price:     product.Price,
				Unit:      product.Unit,
			})

			if err := inventoryRepo.Append(ctx, &domain.InventoryLog{
				ID:        uuid.New(),
				ProductID: product.ID,
				Change:    ci.Quantity.Neg(),
				Reason:    reasonOrderPlaced,
				Timestamp: now,
			}); err != nil {
				return err
			}
		}

		order.TotalAmount = order.ItemsTotal()

		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := orderRepo.CreateItem(ctx, item); err != nil {
				return err
			}
		}

		txn := &domain.PaymentTransaction{
			ID:            uuid.New(),
			OrderID:       order.ID,
			TransactionID: domain.NewTransactionID(),
			PaymentMethod: input.PaymentMethod,
			Amount:        order.TotalAmount,
			Currency:      "TND",
			Status:        domain.TransactionPending,
			Timestamp:     now,
		}
		if err := orderRepo.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		return cartRepo.Clear(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total", order.TotalAmount.StringFixed(3)))
	return order, nil
}

// GetOrder returns an order with its items.
func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return repository.NewOrderRepository(s.db).FindByID(ctx, id)
}

// GetUserOrder returns an order only when it belongs to the user.
func (s *orderService) GetUserOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotOrderOwner
	}
	return order, nil
}

// ListOrders returns a page of orders matching the filter.
func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter, page, pageSize int) ([]*domain.Order, int, error) {
	return repository.NewOrderRepository(s.db).List(ctx, filter, page, pageSize)
}

// UpdateStatus moves an order along the lifecycle. Transitions into
// cancelled restore the deducted stock; every other legal transition,
// including completion, leaves inventory untouched.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("unknown order status %q", to)
	}

	var order *domain.Order
	err := repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		orderRepo := repository.NewOrderRepository(tx)

		var err error
		order, err = orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		if err := domain.ValidateTransition(order.Status, to); err != nil {
			return err
		}

		if to == domain.OrderCancelled {
			if err := s.restoreOrderStock(ctx, tx, order, reasonOrderCancelled); err != nil {
				return err
			}
		}

		if err := orderRepo.UpdateStatus(ctx, orderID, to); err != nil {
			return err
		}
		order.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", string(order.Status)))
	return order, nil
}

// CancelOrder cancels the user's own order, with the same inventory
// restore as an admin cancellation.
func (s *orderService) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	if _, err := s.GetUserOrder(ctx, userID, orderID); err != nil {
		return nil, err
	}
	return s.UpdateStatus(ctx, orderID, domain.OrderCancelled)
}

// Reactivate moves a cancelled order into an active status. This is an
// admin escape hatch outside the normal lifecycle edges: availability
// is re-checked and stock deducted again, so a shortage in the meantime
// rejects the reactivation. Item quantities are converted into the
// product's current unit before deduction.
func (s *orderService) Reactivate(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus) (*domain.Order, error) {
	switch target {
	case domain.OrderProcessing, domain.OrderOutForDelivery, domain.OrderDelivered:
	default:
		return nil, ErrBadReactivateTarget
	}

	var order *domain.Order
	err := repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		orderRepo := repository.NewOrderRepository(tx)
		productRepo := repository.NewProductRepository(tx)
		inventoryRepo := repository.NewInventoryRepository(tx)

		var err error
		order, err = orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderCancelled {
			return ErrOrderNotCancelled
		}

		now := time.Now()
		for _, item := range order.Items {
			product, err := productRepo.FindByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			qty := domain.ConvertQuantity(item.Quantity, item.Unit, product.Unit)

			if err := productRepo.DeductStock(ctx, item.ProductID, qty); err != nil {
				return err
			}
			if err := inventoryRepo.Append(ctx, &domain.InventoryLog{
				ID:        uuid.New(),
				ProductID: item.ProductID,
				Change:    qty.Neg(),
				Reason:    reasonOrderReactivated,
				Timestamp: now,
			}); err != nil {
				return err
			}
		}

		if err := orderRepo.UpdateStatus(ctx, orderID, target); err != nil {
			return err
		}
		order.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order reactivated", zap.String("order_id", orderID.String()))
	return order, nil
}

// DeletePending removes a pending order and restores its stock. Orders
// past pending are immutable history and cannot be deleted.
func (s *orderService) DeletePending(ctx context.Context, orderID uuid.UUID) error {
	err := repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		orderRepo := repository.NewOrderRepository(tx)

		order, err := orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderPending {
			return ErrOrderNotPending
		}

		if err := s.restoreOrderStock(ctx, tx, order, reasonOrderDeleted); err != nil {
			return err
		}
		return orderRepo.Delete(ctx, orderID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("pending order deleted", zap.String("order_id", orderID.String()))
	return nil
}

// ListTransactions returns the payment audit trail for an order.
func (s *orderService) ListTransactions(ctx context.Context, orderID uuid.UUID) ([]*domain.PaymentTransaction, error) {
	return repository.NewOrderRepository(s.db).ListTransactions(ctx, orderID)
}

// UpdateTransactionStatus records the outcome of a payment attempt.
func (s *orderService) UpdateTransactionStatus(ctx context.Context, transactionID string, status domain.TransactionStatus) error {
	switch status {
	case domain.TransactionPending, domain.TransactionCompleted, domain.TransactionFailed:
	default:
		return ErrUnknownPaymentState
	}
	return repository.NewOrderRepository(s.db).UpdateTransactionStatus(ctx, transactionID, status)
}

// restoreOrderStock puts every item's quantity back and writes one
// ledger row per item, all within the caller's transaction. The item
// quantity is converted from the unit snapshotted at checkout into the
// product's current unit, so a unit change on the product between
// checkout and restore does not scale the stock level.
func (s *orderService) restoreOrderStock(ctx context.Context, tx *sql.Tx, order *domain.Order, reason string) error {
	productRepo := repository.NewProductRepository(tx)
	inventoryRepo := repository.NewInventoryRepository(tx)

	now := time.Now()
	for _, item := range order.Items {
		product, err := productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			return err
		}
		qty := domain.ConvertQuantity(item.Quantity, item.Unit, product.Unit)

		if err := productRepo.RestoreStock(ctx, item.ProductID, qty); err != nil {
			return err
		}
		if err := inventoryRepo.Append(ctx, &domain.InventoryLog{
			ID:        uuid.New(),
			ProductID: item.ProductID,
			Change:    qty,
			Reason:    reason,
			Timestamp: now,
		}); err != nil {
			return err
		}
	}
	return nil
}
