package service

import (
	"context"

	"github.com/ridloal/agri-traceability/internal/identity"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/product/domain"
	"github.com/ridloal/agri-traceability/internal/product/repository"
)

func (s *productServiceImpl) AcceptForDistribution(ctx context.Context, caller identity.Principal, productID string) (*domain.Product, error) {
	if !caller.Is(identity.RoleDistributor) {
		return nil, forbidden(caller, "accept products for distribution")
	}

	updated, err := s.mutate(ctx, productID, func(p *domain.Product) (*domain.Vote, error) {
		allowed := p.Status == domain.StatusApproved ||
			(p.Status == domain.StatusPending && s.policy.AllowPendingDistribution)
		if !allowed || !p.Status.CanMoveTo(domain.StatusInDistribution) {
			return nil, invalidState(p, "accept for distribution")
		}
		p.Status = domain.StatusInDistribution
		distributor := caller.SubjectID
		p.DistributorID = &distributor
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.countTransition(domain.StatusInDistribution)
	logger.Info("product accepted for distribution", logger.Fields{"product_id": updated.ID, "distributor_id": caller.SubjectID})
	return updated, nil
}

// AcceptForRetail is idempotent: a product already in retail is returned
// unchanged and keeps its original retailer.
func (s *productServiceImpl) AcceptForRetail(ctx context.Context, caller identity.Principal, productID string) (*domain.Product, error) {
	if !caller.Is(identity.RoleRetailer) {
		return nil, forbidden(caller, "accept products for retail")
	}

	changed := false
	updated, err := s.mutate(ctx, productID, func(p *domain.Product) (*domain.Vote, error) {
		switch p.Status {
		case domain.StatusRetail:
			return nil, repository.ErrNoChange
		case domain.StatusInDistribution:
			p.Status = domain.StatusRetail
			retailer := caller.SubjectID
			p.RetailerID = &retailer
			changed = true
			return nil, nil
		}
		return nil, invalidState(p, "accept for retail")
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.countTransition(domain.StatusRetail)
		logger.Info("product accepted for retail", logger.Fields{"product_id": updated.ID, "retailer_id": caller.SubjectID})
	}
	return updated, nil
}
