package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ridloal/agri-traceability/internal/identity"
	"github.com/ridloal/agri-traceability/internal/platform/database"
	"github.com/ridloal/agri-traceability/internal/platform/metrics"
	"github.com/ridloal/agri-traceability/internal/product/domain"
	"github.com/ridloal/agri-traceability/internal/product/repository"
	repoMocks "github.com/ridloal/agri-traceability/internal/product/repository/mocks"
	"github.com/ridloal/agri-traceability/internal/product/service/mocks"
)

var (
	producer    = identity.Principal{SubjectID: "farmer-1", Role: identity.RoleProducer}
	distributor = identity.Principal{SubjectID: "dist-1", Role: identity.RoleDistributor}
	retailer    = identity.Principal{SubjectID: "shop-1", Role: identity.RoleRetailer}
	consumer    = identity.Principal{SubjectID: "buyer-1", Role: identity.RoleConsumer}
)

func validator(n int) identity.Principal {
	return identity.Principal{SubjectID: fmt.Sprintf("validator-%d", n), Role: identity.RoleValidator}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func tomatoRequest() domain.CreateProductRequest {
	return domain.CreateProductRequest{
		Name:        "Tomato",
		Description: "Roma, greenhouse",
		Quantity:    dec("100"),
		PricePerKg:  dec("50"),
		HarvestDate: strPtr("2026-10-01"),
	}
}

func newTestService(t *testing.T, repo repository.ProductRepository, policy Policy, opts ...Option) ProductService {
	t.Helper()
	if repo == nil {
		repo = repository.NewMemoryProductRepository()
	}
	s, err := NewProductService(repo, nil, policy, opts...)
	require.NoError(t, err)
	return s
}

func approve() domain.CastVoteRequest {
	return domain.CastVoteRequest{Decision: domain.DecisionApprove}
}

func TestProductService_CreateAndGetRoundTrip(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	s := newTestService(t, nil, DefaultPolicy(), WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	created, err := s.CreateProduct(ctx, producer, tomatoRequest())
	require.NoError(t, err)

	got, err := s.GetProduct(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Tomato", got.Name)
	assert.Equal(t, "Roma, greenhouse", got.Description)
	assert.True(t, decimal.RequireFromString("100").Equal(got.Quantity))
	assert.True(t, decimal.RequireFromString("50").Equal(got.PricePerKg))
	assert.Equal(t, "2026-10-01", got.HarvestDate)
	assert.Equal(t, "farmer-1", got.OwnerID)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, 0, got.ValidatorsApproved)
	assert.Equal(t, 5, got.TotalValidators)
	assert.Nil(t, got.RejectionReason)
	assert.Equal(t, created.QRCode, got.QRCode)
	assert.Regexp(t, regexp.MustCompile(`^QR-[0-9A-Z]+-[0-9A-Z]{10}$`), got.QRCode)
	assert.Equal(t, fixed, got.CreatedAt)
}

func TestProductService_CreateDefaultsHarvestDateToToday(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC)
	s := newTestService(t, nil, DefaultPolicy(), WithClock(func() time.Time { return fixed }))

	req := tomatoRequest()
	req.HarvestDate = nil
	p, err := s.CreateProduct(context.Background(), producer, req)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", p.HarvestDate)
}

func TestProductService_CreateValidation(t *testing.T) {
	s := newTestService(t, nil, DefaultPolicy())

	tests := []struct {
		name    string
		mutate  func(r *domain.CreateProductRequest)
		message string
	}{
		{"blank name", func(r *domain.CreateProductRequest) { r.Name = "   " }, "name is required"},
		{"missing quantity", func(r *domain.CreateProductRequest) { r.Quantity = nil }, "quantity is required"},
		{"zero quantity", func(r *domain.CreateProductRequest) { r.Quantity = dec("0") }, "quantity must be a positive number"},
		{"negative price", func(r *domain.CreateProductRequest) { r.PricePerKg = dec("-1") }, "price_per_kg must be a positive number"},
		{"missing price", func(r *domain.CreateProductRequest) { r.PricePerKg = nil }, "price_per_kg is required"},
		{"bad harvest date", func(r *domain.CreateProductRequest) { r.HarvestDate = strPtr("01/10/2026") }, "harvest_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tomatoRequest()
			tt.mutate(&req)
			_, err := s.CreateProduct(context.Background(), producer, req)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestProductService_RoleGating(t *testing.T) {
	s := newTestService(t, nil, DefaultPolicy())
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, validator(1), tomatoRequest())
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := s.CreateProduct(ctx, producer, tomatoRequest())
	require.NoError(t, err)

	_, err = s.CastVote(ctx, producer, p.ID, approve())
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.AcceptForDistribution(ctx, retailer, p.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.AcceptForRetail(ctx, consumer, p.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestProductService_CastVoteValidation(t *testing.T) {
	s := newTestService(t, nil, DefaultPolicy())
	ctx := context.Background()
	p, err := s.CreateProduct(ctx, producer, tomatoRequest())
	require.NoError(t, err)

	_, err = s.CastVote(ctx, validator(1), p.ID, domain.CastVoteRequest{Decision: "maybe"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CastVote(ctx, validator(1), p.ID, domain.CastVoteRequest{Decision: domain.DecisionReject, Reason: strPtr("  ")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CastVote(ctx, validator(1), "missing", approve())
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

// Scenario: five distinct approvals resolve to approved.
func TestProductService_UnanimousApproval(t *testing.T) {
	reg := metrics.NewRegistry()
	s := newTestService(t, nil, DefaultPolicy(), WithMetrics(reg))
	ctx := context.Background()
	p, err := s.CreateProduct(ctx, producer, tomatoRequest())
	require.NoError(t, err)

	var last *domain.Product
	for i := 1; i <= 5; i++ {
		last, err = s.CastVote(ctx, validator(i), p.ID, approve())
		require.NoError(t, err)
		if i < 5 {
			assert.Equal(t, domain.StatusPending, last.Status)
		}
	}
	assert.Equal(t, domain.StatusApproved, last.Status)
	assert.Equal(t, 5, last.ValidatorsApproved)
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.TransitionsTotal.WithLabelValues("approved")))
	assert.Equal(t, float64(4), testutil.ToFloat64(reg.VotesTotal.WithLabelValues("approve", "counted")))

	votes, err := s.ListVotes(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, votes, 5)
}

// Scenario: one reject vote is decisive.
func TestProductService_SingleRejectIsDecisive(t *testing.T) {
	s := newTestService(t, nil, DefaultPolicy())
	ctx := context.Background()
	p, err := s.CreateProduct(ctx, producer, tomatoRequest())
	require.NoError(t, err)

	_, err = s.CastVote(ctx, validator(1), p.ID, approve())
	require.NoError(t, err)
	_, err = s.CastVote(ctx, validator(2), p.ID, approve())
	require.NoError(t, err)

	rejected, err := s.CastVote(ctx, validator(3), p.ID, domain.CastVoteRequest{Decision: domain.DecisionReject, Reason: strPtr("mold detected")})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "mold detected", *rejected.RejectionReason)
	assert.Equal(t, 2, rejected.ValidatorsApproved)

	_, err = s.CastVote(ctx, validator(4), p.ID, approve())
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NotErrorIs(t, err, ErrAlreadyVoted)

	_, err = s.AcceptForDistribution(ctx, distributor, p.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

// Scenario: a second vote from the same validator has no effect.
func TestProductService_DuplicateVote(t *testing.T) {
	reg := metrics.NewRegistry()
	s := newTestService(t, nil, DefaultPolicy(), WithMetrics(reg))
	ctx := context.Background()
	p, err := s.CreateProduct(ctx, producer, tomatoRequest())
	require.NoError(t, err)

	_, err = s.CastVote(ctx, validator(1), p.ID, approve())
	require.NoError(t, err)

	_, err = s.CastVote(ctx, validator(1), p.ID, approve())
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.ErrorIs(t, err, ErrInvalidState)

	// Reject setelah approve juga ditolak dan tidak mengubah status.
	_, err = s.CastVote(ctx, validator(1), p.ID, domain.CastVoteRequest{Decision: domain.DecisionReject, Reason: strPtr("changed my mind")})
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ValidatorsApproved)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.RejectionReason)
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.VotesTotal.WithLabelValues("approve", "duplicate")))
}

// Scenario: approved -> in-distribution -> retail, retail re-accept is a no-op.
func TestProductService_SupplyChainHappyPath(t *testing.T) {
	policy := DefaultPolicy()
	policy.TotalValidators = 2
	s := newTestService(t, nil, policy)
	ctx := context.Background()
	p, err := s.CreateProduct(ctx, producer, tomatoRequest())
	require.NoError(t, err)
	for i := 1; i <= 2; i++ {
		_, err = s.CastVote(ctx, validator(i), p.ID, approve())
		require.NoError(t, err)
	}

	inDist, err := s.AcceptForDistribution(ctx, distributor, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInDistribution, inDist.Status)
	require.NotNil(t, inDist.DistributorID)
	assert.Equal(t, "dist-1", *inDist.DistributorID)

	_, err = s.AcceptForDistribution(ctx, distributor, p.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	retail, err := s.AcceptForRetail(ctx, retailer, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRetail, retail.Status)
	require.NotNil(t, retail.RetailerID)
	assert.Equal(t, "shop-1", *retail.RetailerID)

	other := identity.Principal{SubjectID: "shop-2", Role: identity.RoleRetailer}
	again, err := s.AcceptForRetail(ctx, other, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRetail, again.Status)
	assert.Equal(t, "shop-1", *again.RetailerID)
	assert.Equal(t, retail.Version, again.Version)
}

// Scenario: retail cannot skip distribution.
func TestProductService_RetailRequiresDistribution(t *testing.T) {
	s := newTestService(t, nil, DefaultPolicy())
	ctx := context.Background()
	p, err := s.CreateProduct(ctx, producer, tomatoRequest())
	require.NoError(t, err)

	_, err = s.AcceptForRetail(ctx, retailer, p.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestProductService_PendingDistributionPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed by default", func(t *testing.T) {
		s := newTestService(t, nil, DefaultPolicy())
		p, err := s.CreateProduct(ctx, producer, tomatoRequest())
		require.NoError(t, err)

		got, err := s.AcceptForDistribution(ctx, distributor, p.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInDistribution, got.Status)

		_, err = s.CastVote(ctx, validator(1), p.ID, approve())
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("strict deployments require approval", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.AllowPendingDistribution = false
		s := newTestService(t, nil, policy)
		p, err := s.CreateProduct(ctx, producer, tomatoRequest())
		require.NoError(t, err)

		_, err = s.AcceptForDistribution(ctx, distributor, p.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

// Scenario: simultaneous approvals are all counted and resolve exactly once.
func TestProductService_ConcurrentApprovals(t *testing.T) {
	gdb, err := database.OpenSQLite("file::memory:")
	require.NoError(t, err)
	sqliteRepo, err := repository.NewSQLiteProductRepository(gdb)
	require.NoError(t, err)

	stores := map[string]repository.ProductRepository{
		"memory": repository.NewMemoryProductRepository(),
		"sqlite": sqliteRepo,
	}
	for name, repo := range stores {
		repo := repo
		t.Run(name, func(t *testing.T) {
			reg := metrics.NewRegistry()
			s := newTestService(t, repo, DefaultPolicy(), WithMetrics(reg))
			ctx := context.Background()
			p, err := s.CreateProduct(ctx, producer, tomatoRequest())
			require.NoError(t, err)

			start := make(chan struct{})
			var wg sync.WaitGroup
			errs := make([]error, 5)
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					_, errs[i] = s.CastVote(ctx, validator(i+1), p.ID, approve())
				}(i)
			}
			close(start)
			wg.Wait()

			for _, err := range errs {
				assert.NoError(t, err)
			}
			got, err := s.GetProduct(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.StatusApproved, got.Status)
			assert.Equal(t, 5, got.ValidatorsApproved)
			assert.Equal(t, float64(1), testutil.ToFloat64(reg.TransitionsTotal.WithLabelValues("approved")))
		})
	}
}

func TestProductService_QRCodeCollisionRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retries until the store accepts", func(t *testing.T) {
		repo := new(repoMocks.MockProductRepository)
		reg := metrics.NewRegistry()
		codes := []string{"QR-A", "QR-B"}
		n := 0
		gen := func() (string, error) { c := codes[n]; n++; return c, nil }

		repo.On("CreateProduct", ctx, mock.MatchedBy(func(p *domain.Product) bool { return p.QRCode == "QR-A" })).Return(repository.ErrQRCodeTaken).Once()
		repo.On("CreateProduct", ctx, mock.MatchedBy(func(p *domain.Product) bool { return p.QRCode == "QR-B" })).Return(nil).Once()

		s := newTestService(t, repo, DefaultPolicy(), WithQRCodeGenerator(gen), WithMetrics(reg))
		p, err := s.CreateProduct(ctx, producer, tomatoRequest())
		require.NoError(t, err)
		assert.Equal(t, "QR-B", p.QRCode)
		assert.Equal(t, float64(1), testutil.ToFloat64(reg.QRCollisions))
		repo.AssertExpectations(t)
	})

	t.Run("gives up after the configured attempts", func(t *testing.T) {
		repo := new(repoMocks.MockProductRepository)
		repo.On("CreateProduct", ctx, mock.Anything).Return(repository.ErrQRCodeTaken).Times(3)

		policy := DefaultPolicy()
		policy.QRCodeMaxAttempts = 3
		s := newTestService(t, repo, policy, WithQRCodeGenerator(func() (string, error) { return "QR-SAME", nil }))

		_, err := s.CreateProduct(ctx, producer, tomatoRequest())
		assert.ErrorIs(t, err, ErrQRCodeConflict)
		repo.AssertExpectations(t)
	})

	t.Run("other store errors are not retried", func(t *testing.T) {
		repo := new(repoMocks.MockProductRepository)
		dbErr := errors.New("connection refused")
		repo.On("CreateProduct", ctx, mock.Anything).Return(dbErr).Once()

		s := newTestService(t, repo, DefaultPolicy())
		_, err := s.CreateProduct(ctx, producer, tomatoRequest())
		assert.ErrorIs(t, err, dbErr)
		repo.AssertExpectations(t)
	})
}

func TestProductService_VersionConflictSurfacesAsError(t *testing.T) {
	ctx := context.Background()
	repo := new(repoMocks.MockProductRepository)
	repo.On("UpdateProductLocked", ctx, "p1").Return(nil, repository.ErrVersionConflict).Once()

	s := newTestService(t, repo, DefaultPolicy())
	_, err := s.CastVote(ctx, validator(1), "p1", approve())
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.NotErrorIs(t, err, ErrInvalidState)
}

func TestProductService_GetProductByQRCode(t *testing.T) {
	ctx := context.Background()

	t.Run("joins the producer name", func(t *testing.T) {
		repo := repository.NewMemoryProductRepository()
		dir := new(mocks.MockProducerDirectory)
		dir.On("DisplayName", mock.Anything, "farmer-1").Return("Pak Tani", nil).Once()

		s, err := NewProductService(repo, dir, DefaultPolicy())
		require.NoError(t, err)
		p, err := s.CreateProduct(ctx, producer, tomatoRequest())
		require.NoError(t, err)

		got, err := s.GetProductByQRCode(ctx, p.QRCode)
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
		assert.Equal(t, "Pak Tani", got.ProducerName)
		dir.AssertExpectations(t)
	})

	t.Run("directory failure leaves the name empty", func(t *testing.T) {
		repo := repository.NewMemoryProductRepository()
		dir := new(mocks.MockProducerDirectory)
		dir.On("DisplayName", mock.Anything, "farmer-1").Return("", errors.New("user service down")).Once()

		s, err := NewProductService(repo, dir, DefaultPolicy())
		require.NoError(t, err)
		p, err := s.CreateProduct(ctx, producer, tomatoRequest())
		require.NoError(t, err)

		got, err := s.GetProductByQRCode(ctx, p.QRCode)
		require.NoError(t, err)
		assert.Empty(t, got.ProducerName)
	})

	t.Run("unknown code", func(t *testing.T) {
		s := newTestService(t, nil, DefaultPolicy())
		_, err := s.GetProductByQRCode(ctx, "QR-NOPE")
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
	})
}

func TestProductService_QRLookupCache(t *testing.T) {
	ctx := context.Background()

	t.Run("hit skips the store", func(t *testing.T) {
		repo := new(repoMocks.MockProductRepository)
		c := new(mocks.MockLookupCache)
		cached := &domain.Product{ID: "p1", QRCode: "QR-1", ProducerName: "Pak Tani"}
		c.On("Get", ctx, "QR-1").Return(cached, nil).Once()

		s := newTestService(t, repo, DefaultPolicy(), WithCache(c))
		got, err := s.GetProductByQRCode(ctx, "QR-1")
		require.NoError(t, err)
		assert.Equal(t, "Pak Tani", got.ProducerName)
		repo.AssertNotCalled(t, "GetProductByQRCode", mock.Anything, mock.Anything)
	})

	t.Run("miss fills the cache", func(t *testing.T) {
		repo := new(repoMocks.MockProductRepository)
		c := new(mocks.MockLookupCache)
		stored := &domain.Product{ID: "p1", QRCode: "QR-1", OwnerID: "farmer-1"}
		c.On("Get", ctx, "QR-1").Return(nil, nil).Once()
		// baca awal + cek versi setelah Set
		repo.On("GetProductByQRCode", ctx, "QR-1").Return(stored, nil).Twice()
		c.On("Set", ctx, "QR-1", mock.AnythingOfType("*domain.Product")).Return(nil).Once()

		s := newTestService(t, repo, DefaultPolicy(), WithCache(c))
		got, err := s.GetProductByQRCode(ctx, "QR-1")
		require.NoError(t, err)
		assert.Equal(t, "p1", got.ID)
		c.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("mutations invalidate", func(t *testing.T) {
		c := new(mocks.MockLookupCache)
		s := newTestService(t, nil, DefaultPolicy(), WithCache(c))
		p, err := s.CreateProduct(ctx, producer, tomatoRequest())
		require.NoError(t, err)

		c.On("Delete", ctx, p.QRCode).Return(nil).Twice()
		_, err = s.CastVote(ctx, validator(1), p.ID, approve())
		require.NoError(t, err)
		_, err = s.AcceptForDistribution(ctx, distributor, p.ID)
		require.NoError(t, err)
		c.AssertExpectations(t)
	})
}

// mapCache is an in-process LookupCache.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.Product
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]domain.Product{}} }

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[key]
	if ok {
		*(dest.(*domain.Product)) = p.Clone()
	}
	return ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value.(*domain.Product).Clone()
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// interleavingRepo runs afterRead once, right after the first QR read
// returns, so a mutation can commit between the read and the cache fill.
type interleavingRepo struct {
	repository.ProductRepository
	once      sync.Once
	afterRead func()
}

func (r *interleavingRepo) GetProductByQRCode(ctx context.Context, code string) (*domain.Product, error) {
	p, err := r.ProductRepository.GetProductByQRCode(ctx, code)
	if err == nil {
		r.once.Do(r.afterRead)
	}
	return p, err
}

func TestProductService_QRCacheNotPoisonedByConcurrentVote(t *testing.T) {
	ctx := context.Background()
	repo := &interleavingRepo{ProductRepository: repository.NewMemoryProductRepository()}
	c := newMapCache()
	s := newTestService(t, repo, DefaultPolicy(), WithCache(c))

	p, err := s.CreateProduct(ctx, producer, tomatoRequest())
	require.NoError(t, err)
	repo.afterRead = func() {
		_, err := s.CastVote(ctx, validator(1), p.ID, domain.CastVoteRequest{Decision: domain.DecisionReject, Reason: strPtr("busuk")})
		require.NoError(t, err)
	}

	// Scan pertama boleh melihat status lama; yang penting cache tidak menyimpannya.
	_, err = s.GetProductByQRCode(ctx, p.QRCode)
	require.NoError(t, err)

	got, err := s.GetProductByQRCode(ctx, p.QRCode)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
}

func TestProductService_ListVotesUnknownProduct(t *testing.T) {
	s := newTestService(t, nil, DefaultPolicy())
	_, err := s.ListVotes(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestNewProductService_RejectsBadPolicy(t *testing.T) {
	policy := DefaultPolicy()
	policy.TotalValidators = 0
	_, err := NewProductService(repository.NewMemoryProductRepository(), nil, policy)
	assert.Error(t, err)
}

func TestNewQRCodeGenerator(t *testing.T) {
	fixed := time.UnixMilli(1760000000000)
	gen, err := NewQRCodeGenerator(func() time.Time { return fixed })
	require.NoError(t, err)

	a, err := gen()
	require.NoError(t, err)
	b, err := gen()
	require.NoError(t, err)

	assert.Regexp(t, `^QR-[0-9A-Z]+-[0-9A-Z]{10}$`, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a[:len(a)-10], b[:len(b)-10])
}
