package service

import (
	"context"

	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/product/domain"
)

// GetProductByQRCode is the consumer scan path. The producer's display name
// is joined in at read time; a directory failure leaves it empty.
func (s *productServiceImpl) GetProductByQRCode(ctx context.Context, code string) (*domain.Product, error) {
	if s.cache != nil {
		var cached domain.Product
		found, err := s.cache.Get(ctx, code, &cached)
		if err != nil {
			logger.Warn("qr cache read failed", logger.Fields{"qr_code": code, "error": err})
		}
		if found {
			s.countLookup("hit")
			return &cached, nil
		}
		s.countLookup("miss")
	}

	// Scan bersamaan untuk kode yang sama hanya memicu satu query.
	v, err, _ := s.lookups.Do(code, func() (interface{}, error) {
		p, err := s.repo.GetProductByQRCode(ctx, code)
		if err != nil {
			return nil, err
		}
		p.ProducerName = s.producerName(ctx, p.OwnerID)

		if s.cache != nil {
			s.fillCache(ctx, code, p)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	p := v.(*domain.Product).Clone()
	return &p, nil
}

// fillCache writes p under code, then re-reads the row. A mutation that
// committed after p was read has already run its Delete, so the entry just
// written would be stale until the TTL; in that case it is dropped again.
func (s *productServiceImpl) fillCache(ctx context.Context, code string, p *domain.Product) {
	if err := s.cache.Set(ctx, code, p); err != nil {
		logger.Warn("qr cache write failed", logger.Fields{"qr_code": code, "error": err})
		return
	}
	fresh, err := s.repo.GetProductByQRCode(ctx, code)
	if err == nil && fresh.Version == p.Version {
		return
	}
	if err := s.cache.Delete(ctx, code); err != nil {
		logger.Warn("qr cache invalidation failed", logger.Fields{"qr_code": code, "error": err})
	}
}

func (s *productServiceImpl) producerName(ctx context.Context, ownerID string) string {
	if s.directory == nil {
		return ""
	}
	name, err := s.directory.DisplayName(ctx, ownerID)
	if err != nil {
		logger.Warn("producer name unavailable", logger.Fields{"owner_id": ownerID, "error": err})
		return ""
	}
	return name
}

func (s *productServiceImpl) countLookup(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
