package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wadieregaieg/waadiefr/internal/domain"
	"github.com/wadieregaieg/waadiefr/internal/repository"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// CartService manages the per-user cart. Quantities are validated
// against current stock on every write, but stock is only reserved at
// checkout.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity decimal.Decimal) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity decimal.Decimal) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService.
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{cartRepo: cartRepo, productRepo: productRepo}
}

// GetCart returns the user's cart with items and live prices, creating
// an empty cart on first access.
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.LoadItems(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem puts quantity of a product into the cart, adding to any
// existing line for the same product.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity decimal.Decimal) (*domain.Cart, error) {
	if quantity.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Validate the combined line quantity against current stock.
	existing, err := s.cartRepo.FindItem(ctx, cart.ID, productID)
	if err != nil && !errors.Is(err, repository.ErrCartItemNotFound) {
		return nil, err
	}
	combined := quantity
	if existing != nil {
		combined = combined.Add(existing.Quantity)
	}
	if combined.Cmp(product.StockQuantity) > 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrInsufficientStock, product.Name)
	}

	if err := s.cartRepo.UpsertItem(ctx, &domain.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
	}); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// UpdateItem sets the line quantity outright. A zero or negative
// quantity is rejected; use RemoveItem to drop a line.
func (s *cartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity decimal.Decimal) (*domain.Cart, error) {
	if quantity.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity.Cmp(product.StockQuantity) > 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrInsufficientStock, product.Name)
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.SetItemQuantity(ctx, cart.ID, productID, quantity); err != nil {
		return nil, err
	}

	return s.GetCart(ctx, userID)
}

// RemoveItem drops a product line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.RemoveItem(ctx, cart.ID, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// ClearCart empties the cart.
func (s *cartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	return s.cartRepo.Clear(ctx, cart.ID)
}
