package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wadieregaieg/waadiefr/internal/domain"
	"github.com/wadieregaieg/waadiefr/internal/repository"
)

var (
	ErrInvalidSKU   = errors.New("sku may only contain letters, digits, hyphens and underscores")
	ErrInvalidUnit  = errors.New("unit must be kg or ton")
	ErrInvalidPrice = errors.New("price must be positive")
)

var skuPattern = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)

// ProductInput carries the writable product fields.
type ProductInput struct {
	Name         string
	Description  string
	SKU          string
	Price        decimal.Decimal
	Unit         domain.Unit
	MinimumStock decimal.Decimal
	IsActive     bool
	ImageURL     string
	CategoryID   uuid.UUID
	SupplierID   *uuid.UUID
}

// CatalogService manages products, categories and administrative stock
// adjustments.
type CatalogService interface {
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
	ListLowStock(ctx context.Context) ([]*domain.Product, error)

	// AdjustStock applies a signed administrative delta, clamped at
	// zero, and appends the matching ledger row in one transaction.
	AdjustStock(ctx context.Context, productID uuid.UUID, delta decimal.Decimal, reason string) (*domain.Product, error)
	StockHistory(ctx context.Context, productID uuid.UUID, limit int) ([]*domain.InventoryLog, error)

	CreateCategory(ctx context.Context, name, description string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
}

type catalogService struct {
	db           *sql.DB
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	logger       *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(
	db *sql.DB,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		db:           db,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		logger:       logger,
	}
}

func validateProductInput(input ProductInput) error {
	if !skuPattern.MatchString(input.SKU) {
		return ErrInvalidSKU
	}
	if !input.Unit.Valid() {
		return ErrInvalidUnit
	}
	if input.Price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// CreateProduct adds a product to the catalog with zero initial stock;
// stock arrives through AdjustStock so the ledger stays complete.
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          input.Name,
		Description:   input.Description,
		SKU:           input.SKU,
		Price:         input.Price,
		Unit:          input.Unit,
		StockQuantity: decimal.Zero,
		MinimumStock:  input.MinimumStock,
		IsActive:      input.IsActive,
		ImageURL:      input.ImageURL,
		CategoryID:    input.CategoryID,
		SupplierID:    input.SupplierID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name))
	return product, nil
}

// UpdateProduct rewrites the product's descriptive fields. Stock is
// deliberately out of scope here; it only moves through AdjustStock
// and the order lifecycle.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Description = input.Description
	product.SKU = input.SKU
	product.Price = input.Price
	product.Unit = input.Unit
	product.MinimumStock = input.MinimumStock
	product.IsActive = input.IsActive
	product.ImageURL = input.ImageURL
	product.CategoryID = input.CategoryID
	product.SupplierID = input.SupplierID

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product. Products referenced by order items
// are protected at the database level.
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.productRepo.Delete(ctx, id)
}

// GetProduct returns a product by ID.
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// ListProducts returns a page of products matching the filter.
func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return s.productRepo.List(ctx, filter, page, pageSize, sortBy, sortOrder)
}

// SearchProducts matches active products by name, description or SKU.
func (s *catalogService) SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	return s.productRepo.Search(ctx, query, page, pageSize)
}

// ListLowStock returns active products at or below their minimum stock.
func (s *catalogService) ListLowStock(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.ListLowStock(ctx)
}

// AdjustStock applies an administrative stock delta. The resulting
// quantity is clamped at zero, and the ledger row records the delta
// that actually landed, so the ledger sum always matches the counter.
func (s *catalogService) AdjustStock(ctx context.Context, productID uuid.UUID, delta decimal.Decimal, reason string) (*domain.Product, error) {
	if delta.IsZero() {
		return nil, fmt.Errorf("stock adjustment delta must be non-zero")
	}

	var product *domain.Product
	err := repository.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		productRepo := repository.NewProductRepository(tx)
		inventoryRepo := repository.NewInventoryRepository(tx)

		newQty, oldQty, err := productRepo.AdjustStock(ctx, productID, delta)
		if err != nil {
			return err
		}

		effective := newQty.Sub(oldQty)
		if !effective.IsZero() {
			if err := inventoryRepo.Append(ctx, &domain.InventoryLog{
				ID:        uuid.New(),
				ProductID: productID,
				Change:    effective,
				Reason:    reason,
				Timestamp: time.Now(),
			}); err != nil {
				return err
			}
		}

		product, err = productRepo.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		product.StockQuantity = newQty
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", productID.String()),
		zap.String("delta", delta.StringFixed(3)),
		zap.String("reason", reason))
	return product, nil
}

// StockHistory returns the newest ledger rows for a product.
func (s *catalogService) StockHistory(ctx context.Context, productID uuid.UUID, limit int) ([]*domain.InventoryLog, error) {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	return repository.NewInventoryRepository(s.db).ListByProduct(ctx, productID, limit)
}

// CreateCategory adds a product category.
func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory renames a category.
func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*domain.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.Description = description
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category and, via the schema, its products.
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categoryRepo.Delete(ctx, id)
}

// ListCategories returns all categories.
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categoryRepo.List(ctx)
}

// GetCategory returns a category by ID.
func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categoryRepo.FindByID(ctx, id)
}
