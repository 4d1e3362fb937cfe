package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/platform/metrics"
	"github.com/ridloal/agri-traceability/internal/product/domain"
	"github.com/ridloal/agri-traceability/internal/product/repository"
)

// ConsensusAuditor periodically recounts approve votes and reports products
// whose stored counter disagrees with their vote rows. It only reports; it
// never rewrites product state.
type ConsensusAuditor struct {
	repo      repository.ProductRepository
	metrics   *metrics.Registry
	scheduler *cron.Cron
	spec      string
}

func NewConsensusAuditor(repo repository.ProductRepository, m *metrics.Registry, spec string) (*ConsensusAuditor, error) {
	a := &ConsensusAuditor{
		repo:      repo,
		metrics:   m,
		scheduler: cron.New(cron.WithSeconds()),
		spec:      spec,
	}
	_, err := a.scheduler.AddFunc(spec, func() {
		// Job latar belakang, jadi context.Background()
		if _, err := a.Run(context.Background()); err != nil {
			logger.Error("ConsensusAuditor: run failed", err, nil)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid audit cron spec %q: %w", spec, err)
	}
	return a, nil
}

func (a *ConsensusAuditor) Start() {
	a.scheduler.Start()
	logger.Info(fmt.Sprintf("Consensus audit scheduler started with spec '%s'", a.spec))
}

// Stop halts the schedule; the returned context is done when a running job
// has finished.
func (a *ConsensusAuditor) Stop() context.Context {
	return a.scheduler.Stop()
}

// Run performs one audit pass and returns the number of inconsistent products.
func (a *ConsensusAuditor) Run(ctx context.Context) (int, error) {
	products, err := a.repo.ListProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list products: %w", err)
	}
	approvals, err := a.repo.CountApprovals(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count approvals: %w", err)
	}

	inconsistent := 0
	for _, p := range products {
		votes := approvals[p.ID]
		outOfBounds := p.ValidatorsApproved < 0 || p.ValidatorsApproved > p.TotalValidators
		if votes == p.ValidatorsApproved && !outOfBounds {
			continue
		}
		if a.mutatedSince(ctx, p) {
			// Vote masuk di antara dua pembacaan; dicek lagi pada run berikutnya.
			continue
		}
		inconsistent++
		logger.Warn("consensus audit mismatch", logger.Fields{
			"product_id":          p.ID,
			"validators_approved": p.ValidatorsApproved,
			"approve_votes":       votes,
			"total_validators":    p.TotalValidators,
		})
	}

	if a.metrics != nil {
		a.metrics.AuditDrift.Set(float64(inconsistent))
	}
	logger.Info(fmt.Sprintf("Consensus audit checked %d products, %d inconsistent", len(products), inconsistent))
	return inconsistent, nil
}

// mutatedSince reports whether p changed after it was listed. Every vote
// bumps the version in the same commit as its row, so an unchanged version
// means the approval count read in between belongs to this snapshot.
func (a *ConsensusAuditor) mutatedSince(ctx context.Context, p domain.Product) bool {
	fresh, err := a.repo.GetProductByID(ctx, p.ID)
	if err != nil {
		logger.Warn("consensus audit recheck failed", logger.Fields{"product_id": p.ID, "error": err})
		return false
	}
	return fresh.Version != p.Version
}
