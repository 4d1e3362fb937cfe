package repository

import (
	"context"
	"errors"

	"github.com/ridloal/agri-traceability/internal/product/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrQRCodeTaken     = errors.New("qr code already in use")
	ErrDuplicateVote   = errors.New("validator has already voted on this product")
	ErrVersionConflict = errors.New("product was modified concurrently")
	// ErrNoChange boleh dikembalikan oleh ChangeFunc: tidak ada yang ditulis,
	// dan state saat ini dikembalikan tanpa error.
	ErrNoChange = errors.New("no change")
)

// ChangeFunc receives the locked, current state of a product and mutates it in
// place. A non-nil vote is stored in the same transaction; a duplicate
// (product, validator) pair aborts the whole change with ErrDuplicateVote.
type ChangeFunc func(p *domain.Product) (*domain.Vote, error)

type ProductRepository interface {
	// CreateProduct returns ErrQRCodeTaken when the qr code is not unique.
	CreateProduct(ctx context.Context, p *domain.Product) error
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductByQRCode(ctx context.Context, code string) (*domain.Product, error)
	// ListProducts returns newest first.
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListVotes(ctx context.Context, productID string) ([]domain.Vote, error)

	// UpdateProductLocked serialises all changes to one product: the row is
	// locked, change is applied, and the result is written only if the stored
	// version still matches. Version and UpdatedAt are set by the repository.
	UpdateProductLocked(ctx context.Context, id string, change ChangeFunc) (*domain.Product, error)

	// CountApprovals returns the number of approve votes per product id.
	CountApprovals(ctx context.Context) (map[string]int, error)
}
