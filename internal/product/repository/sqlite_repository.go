package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/product/domain"
)

// productRecord is the gorm mapping of a product row.
type productRecord struct {
	ID                 string          `gorm:"primaryKey;size:36"`
	OwnerID            string          `gorm:"not null;index"`
	Name               string          `gorm:"not null"`
	Description        string          `gorm:"not null;default:''"`
	Quantity           decimal.Decimal `gorm:"type:text;not null"`
	PricePerKg         decimal.Decimal `gorm:"type:text;not null"`
	HarvestDate        string          `gorm:"size:10;not null"`
	QRCode             string          `gorm:"column:qr_code;not null;uniqueIndex:idx_products_qr_code"`
	Status             string          `gorm:"not null"`
	ValidatorsApproved int             `gorm:"not null;default:0"`
	TotalValidators    int             `gorm:"not null"`
	RejectionReason    *string
	DistributorID      *string
	RetailerID         *string
	Version            int64     `gorm:"not null;default:1"`
	CreatedAt          time.Time `gorm:"index"`
	UpdatedAt          time.Time
}

func (productRecord) TableName() string { return "products" }

type voteRecord struct {
	ID          string    `gorm:"primaryKey;size:36"`
	ProductID   string    `gorm:"not null;uniqueIndex:idx_votes_product_validator"`
	ValidatorID string    `gorm:"not null;uniqueIndex:idx_votes_product_validator"`
	Decision    string    `gorm:"not null"`
	Reason      *string
	CreatedAt   time.Time
}

func (voteRecord) TableName() string { return "votes" }

func toRecord(p *domain.Product) productRecord {
	c := p.Clone()
	return productRecord{
		ID: c.ID, OwnerID: c.OwnerID, Name: c.Name, Description: c.Description,
		Quantity: c.Quantity, PricePerKg: c.PricePerKg, HarvestDate: c.HarvestDate, QRCode: c.QRCode,
		Status: string(c.Status), ValidatorsApproved: c.ValidatorsApproved, TotalValidators: c.TotalValidators,
		RejectionReason: c.RejectionReason, DistributorID: c.DistributorID, RetailerID: c.RetailerID,
		Version: c.Version, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

func (rec productRecord) toDomain() domain.Product {
	return domain.Product{
		ID: rec.ID, OwnerID: rec.OwnerID, Name: rec.Name, Description: rec.Description,
		Quantity: rec.Quantity, PricePerKg: rec.PricePerKg, HarvestDate: rec.HarvestDate, QRCode: rec.QRCode,
		Status: domain.Status(rec.Status), ValidatorsApproved: rec.ValidatorsApproved, TotalValidators: rec.TotalValidators,
		RejectionReason: rec.RejectionReason, DistributorID: rec.DistributorID, RetailerID: rec.RetailerID,
		Version: rec.Version, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt,
	}
}

type sqliteProductRepository struct {
	db *gorm.DB
}

// NewSQLiteProductRepository migrates the schema and returns a repository on
// top of a gorm SQLite handle. The handle must be limited to one open
// connection (see database.OpenSQLite): that single connection is what
// serialises UpdateProductLocked.
func NewSQLiteProductRepository(db *gorm.DB) (ProductRepository, error) {
	if err := db.AutoMigrate(&productRecord{}, &voteRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return &sqliteProductRepository{db: db}, nil
}

func isSQLiteUnique(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *sqliteProductRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	rec := toRecord(p)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		// id berupa UUID baru; konflik unik praktis selalu pada qr_code.
		if isSQLiteUnique(err) {
			return ErrQRCodeTaken
		}
		logger.Error("CreateProduct: failed to insert product", err, nil)
		return err
	}
	return nil
}

func (r *sqliteProductRepository) getBy(tx *gorm.DB, field, value string) (*domain.Product, error) {
	var rec productRecord
	if err := tx.Where(field+" = ?", value).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		logger.Error("GetProductBy"+field+": query failed", err, nil)
		return nil, err
	}
	p := rec.toDomain()
	return &p, nil
}

func (r *sqliteProductRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.getBy(r.db.WithContext(ctx), "id", id)
}

func (r *sqliteProductRepository) GetProductByQRCode(ctx context.Context, code string) (*domain.Product, error) {
	return r.getBy(r.db.WithContext(ctx), "qr_code", code)
}

func (r *sqliteProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var recs []productRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&recs).Error; err != nil {
		logger.Error("ListProducts: query failed", err, nil)
		return nil, err
	}
	products := make([]domain.Product, 0, len(recs))
	for _, rec := range recs {
		products = append(products, rec.toDomain())
	}
	return products, nil
}

func (r *sqliteProductRepository) ListVotes(ctx context.Context, productID string) ([]domain.Vote, error) {
	var recs []voteRecord
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at ASC").Order("id ASC").Find(&recs).Error; err != nil {
		logger.Error("ListVotes: query failed", err, nil)
		return nil, err
	}
	votes := make([]domain.Vote, 0, len(recs))
	for _, rec := range recs {
		votes = append(votes, domain.Vote{
			ID: rec.ID, ProductID: rec.ProductID, ValidatorID: rec.ValidatorID,
			Decision: domain.Decision(rec.Decision), Reason: rec.Reason, CreatedAt: rec.CreatedAt,
		})
	}
	return votes, nil
}

func (r *sqliteProductRepository) UpdateProductLocked(ctx context.Context, id string, change ChangeFunc) (*domain.Product, error) {
	var result *domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := r.getBy(tx, "id", id)
		if err != nil {
			return err
		}

		next := current.Clone()
		vote, err := change(&next)
		if errors.Is(err, ErrNoChange) {
			result = current
			return nil
		}
		if err != nil {
			return err
		}

		if vote != nil {
			rec := voteRecord{
				ID: vote.ID, ProductID: vote.ProductID, ValidatorID: vote.ValidatorID,
				Decision: string(vote.Decision), Reason: vote.Reason, CreatedAt: vote.CreatedAt,
			}
			if err := tx.Create(&rec).Error; err != nil {
				if isSQLiteUnique(err) {
					return ErrDuplicateVote
				}
				logger.Error("UpdateProductLocked: failed to insert vote", err, logger.Fields{"product_id": id})
				return err
			}
		}

		next.ID = current.ID
		next.Version = current.Version + 1
		next.UpdatedAt = time.Now().UTC()

		res := tx.Model(&productRecord{}).
			Where("id = ? AND version = ?", current.ID, current.Version).
			Updates(map[string]interface{}{
				"status":              string(next.Status),
				"validators_approved": next.ValidatorsApproved,
				"rejection_reason":    next.RejectionReason,
				"distributor_id":      next.DistributorID,
				"retailer_id":         next.RetailerID,
				"version":             next.Version,
				"updated_at":          next.UpdatedAt,
			})
		if res.Error != nil {
			logger.Error("UpdateProductLocked: update failed", res.Error, logger.Fields{"product_id": id})
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *sqliteProductRepository) CountApprovals(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		ProductID string
		N         int
	}
	err := r.db.WithContext(ctx).Model(&voteRecord{}).
		Select("product_id, COUNT(*) AS n").
		Where("decision = ?", string(domain.DecisionApprove)).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		logger.Error("CountApprovals: query failed", err, nil)
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ProductID] = row.N
	}
	return counts, nil
}
