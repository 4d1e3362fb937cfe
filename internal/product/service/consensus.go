package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ridloal/agri-traceability/internal/identity"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/product/domain"
)

// CastVote records one validator decision. Approval needs every one of
// TotalValidators to approve; a single reject ends validation.
func (s *productServiceImpl) CastVote(ctx context.Context, caller identity.Principal, productID string, req domain.CastVoteRequest) (*domain.Product, error) {
	if !caller.Is(identity.RoleValidator) {
		return nil, forbidden(caller, "vote")
	}
	if !req.Decision.Valid() {
		return nil, fmt.Errorf("%w: decision must be approve or reject", ErrValidation)
	}
	var reason *string
	if req.Reason != nil {
		if r := strings.TrimSpace(*req.Reason); r != "" {
			reason = &r
		}
	}
	if req.Decision == domain.DecisionReject && reason == nil {
		return nil, fmt.Errorf("%w: reason is required when rejecting", ErrValidation)
	}

	updated, err := s.mutate(ctx, productID, func(p *domain.Product) (*domain.Vote, error) {
		if p.Status != domain.StatusPending {
			return nil, invalidState(p, "vote on")
		}

		switch req.Decision {
		case domain.DecisionApprove:
			if p.ValidatorsApproved < p.TotalValidators {
				p.ValidatorsApproved++
			}
			if p.ValidatorsApproved >= p.TotalValidators {
				p.Status = domain.StatusApproved
			}
		case domain.DecisionReject:
			p.Status = domain.StatusRejected
			p.RejectionReason = reason
		}

		return &domain.Vote{
			ID:          uuid.NewString(),
			ProductID:   p.ID,
			ValidatorID: caller.SubjectID,
			Decision:    req.Decision,
			Reason:      reason,
			CreatedAt:   s.now(),
		}, nil
	})
	s.countVote(req.Decision, updated, err)
	if err != nil {
		return nil, err
	}

	if updated.Status != domain.StatusPending {
		s.countTransition(updated.Status)
		logger.Info("validation resolved", logger.Fields{"product_id": updated.ID, "status": updated.Status})
	}
	return updated, nil
}

func (s *productServiceImpl) countVote(decision domain.Decision, p *domain.Product, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "counted"
	switch {
	case errors.Is(err, ErrAlreadyVoted):
		outcome = "duplicate"
	case errors.Is(err, ErrInvalidState):
		outcome = "invalid_state"
	case err != nil:
		outcome = "error"
	case p.Status != domain.StatusPending:
		outcome = "resolved"
	}
	s.metrics.VotesTotal.WithLabelValues(string(decision), outcome).Inc()
}

func (s *productServiceImpl) ListVotes(ctx context.Context, productID string) ([]domain.Vote, error) {
	if _, err := s.repo.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListVotes(ctx, productID)
}
