package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ridloal/agri-traceability/internal/product/domain"
)

// memoryProductRepository keeps everything in process. Dipakai untuk
// pengembangan lokal (STORE_DRIVER=memory) dan test.
type memoryProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	byQR     map[string]string
	votes    map[string][]domain.Vote
	voted    map[string]map[string]struct{}

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemoryProductRepository() ProductRepository {
	return &memoryProductRepository{
		products: map[string]domain.Product{},
		byQR:     map[string]string{},
		votes:    map[string][]domain.Vote{},
		voted:    map[string]map[string]struct{}{},
		locks:    map[string]*sync.Mutex{},
	}
}

func (r *memoryProductRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byQR[p.QRCode]; taken {
		return ErrQRCodeTaken
	}
	if _, exists := r.products[p.ID]; exists {
		return errors.New("product id already exists")
	}
	r.products[p.ID] = p.Clone()
	r.byQR[p.QRCode] = p.ID
	return nil
}

func (r *memoryProductRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	c := p.Clone()
	return &c, nil
}

func (r *memoryProductRepository) GetProductByQRCode(ctx context.Context, code string) (*domain.Product, error) {
	r.mu.RLock()
	id, ok := r.byQR[code]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrProductNotFound
	}
	return r.GetProductByID(ctx, id)
}

func (r *memoryProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	products := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		products = append(products, p.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID > products[j].ID
		}
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

func (r *memoryProductRepository) ListVotes(ctx context.Context, productID string) ([]domain.Vote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	votes := make([]domain.Vote, len(r.votes[productID]))
	copy(votes, r.votes[productID])
	return votes, nil
}

// lockFor returns the per-product mutex. Lock hanya dibuat untuk produk yang
// ada; produk tidak pernah dihapus, jadi map ini sebesar jumlah produk.
func (r *memoryProductRepository) lockFor(id string) (*sync.Mutex, error) {
	r.mu.RLock()
	_, exists := r.products[id]
	r.mu.RUnlock()
	if !exists {
		return nil, ErrProductNotFound
	}

	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l, nil
}

func (r *memoryProductRepository) UpdateProductLocked(ctx context.Context, id string, change ChangeFunc) (*domain.Product, error) {
	lock, err := r.lockFor(id)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	current, err := r.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	vote, err := change(&next)
	if errors.Is(err, ErrNoChange) {
		return current, nil
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.products[id].Version != current.Version {
		return nil, ErrVersionConflict
	}
	if vote != nil {
		if _, dup := r.voted[id][vote.ValidatorID]; dup {
			return nil, ErrDuplicateVote
		}
		if r.voted[id] == nil {
			r.voted[id] = map[string]struct{}{}
		}
		r.voted[id][vote.ValidatorID] = struct{}{}
		r.votes[id] = append(r.votes[id], *vote)
	}

	next.ID = current.ID
	next.QRCode = current.QRCode
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()
	r.products[id] = next.Clone()
	return &next, nil
}

func (r *memoryProductRepository) CountApprovals(ctx context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[string]int{}
	for id, votes := range r.votes {
		for _, v := range votes {
			if v.Decision == domain.DecisionApprove {
				counts[id]++
			}
		}
	}
	return counts, nil
}
