package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ridloal/agri-traceability/internal/platform/database"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/product/domain"
)

// Schema is applied at start-up by the product service.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
        id                  UUID PRIMARY KEY,
        owner_id            TEXT NOT NULL,
        name                TEXT NOT NULL,
        description         TEXT NOT NULL DEFAULT '',
        quantity            NUMERIC NOT NULL CHECK (quantity > 0),
        price_per_kg        NUMERIC NOT NULL CHECK (price_per_kg > 0),
        harvest_date        DATE NOT NULL,
        qr_code             TEXT NOT NULL,
        status              TEXT NOT NULL,
        validators_approved INT NOT NULL DEFAULT 0,
        total_validators    INT NOT NULL,
        rejection_reason    TEXT,
        distributor_id      TEXT,
        retailer_id         TEXT,
        version             BIGINT NOT NULL DEFAULT 1,
        created_at          TIMESTAMPTZ NOT NULL,
        updated_at          TIMESTAMPTZ NOT NULL,
        CONSTRAINT products_qr_code_key UNIQUE (qr_code),
        CONSTRAINT products_approvals_bounds CHECK (validators_approved >= 0 AND validators_approved <= total_validators)
    )`,
	// NUMERIC tanpa precision/scale: nilai disimpan persis seperti input.
	`ALTER TABLE products ALTER COLUMN quantity TYPE NUMERIC, ALTER COLUMN price_per_kg TYPE NUMERIC`,
	`CREATE INDEX IF NOT EXISTS products_created_at_idx ON products (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS votes (
        id           UUID PRIMARY KEY,
        product_id   UUID NOT NULL REFERENCES products(id),
        validator_id TEXT NOT NULL,
        decision     TEXT NOT NULL CHECK (decision IN ('approve', 'reject')),
        reason       TEXT,
        created_at   TIMESTAMPTZ NOT NULL,
        CONSTRAINT votes_product_validator_key UNIQUE (product_id, validator_id)
    )`,
}

const productColumns = `id, owner_id, name, description, quantity, price_per_kg, harvest_date, qr_code, status,
        validators_approved, total_validators, rejection_reason, distributor_id, retailer_id, version, created_at, updated_at`

// DBTX adalah interface yang bisa berupa *sql.DB atau *sql.Tx
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type postgresProductRepository struct {
	db *sql.DB
}

func NewPostgresProductRepository(db *sql.DB) ProductRepository {
	return &postgresProductRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var harvest time.Time
	var rejection, distributor, retailer sql.NullString
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Quantity, &p.PricePerKg, &harvest, &p.QRCode, &p.Status,
		&p.ValidatorsApproved, &p.TotalValidators, &rejection, &distributor, &retailer, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.HarvestDate = harvest.Format(domain.HarvestDateLayout)
	p.RejectionReason = nullToPtr(rejection)
	p.DistributorID = nullToPtr(distributor)
	p.RetailerID = nullToPtr(retailer)
	return &p, nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func ptrToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *postgresProductRepository) CreateProduct(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (` + productColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Name, p.Description, p.Quantity, p.PricePerKg, p.HarvestDate, p.QRCode, p.Status,
		p.ValidatorsApproved, p.TotalValidators, ptrToNull(p.RejectionReason), ptrToNull(p.DistributorID), ptrToNull(p.RetailerID),
		p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) && database.UniqueConstraint(err) != "products_pkey" {
			return ErrQRCodeTaken
		}
		logger.Error("CreateProduct: failed to insert product", err, nil)
		return err
	}
	return nil
}

func (r *postgresProductRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	// Kolom id bertipe UUID; string lain pasti tidak ada.
	if uuid.Validate(id) != nil {
		return nil, ErrProductNotFound
	}
	return r.getProductBy(ctx, r.db, "id", id, false)
}

func (r *postgresProductRepository) GetProductByQRCode(ctx context.Context, code string) (*domain.Product, error) {
	return r.getProductBy(ctx, r.db, "qr_code", code, false)
}

func (r *postgresProductRepository) getProductBy(ctx context.Context, q DBTX, field, value string, forUpdate bool) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE ` + field + ` = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanProduct(q.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		logger.Error("GetProductBy"+field+": query failed", err, nil)
		return nil, err
	}
	return p, nil
}

func (r *postgresProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("ListProducts: query failed", err, nil)
		return nil, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			logger.Error("ListProducts: scan failed", err, nil)
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		logger.Error("ListProducts: rows iteration error", err, nil)
		return nil, err
	}
	return products, nil
}

func (r *postgresProductRepository) ListVotes(ctx context.Context, productID string) ([]domain.Vote, error) {
	if uuid.Validate(productID) != nil {
		return []domain.Vote{}, nil
	}
	query := `SELECT id, product_id, validator_id, decision, reason, created_at
              FROM votes WHERE product_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		logger.Error("ListVotes: query failed", err, nil)
		return nil, err
	}
	defer rows.Close()

	votes := []domain.Vote{}
	for rows.Next() {
		var v domain.Vote
		var reason sql.NullString
		if err := rows.Scan(&v.ID, &v.ProductID, &v.ValidatorID, &v.Decision, &reason, &v.CreatedAt); err != nil {
			logger.Error("ListVotes: scan failed", err, nil)
			return nil, err
		}
		v.Reason = nullToPtr(reason)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// UpdateProductLocked mengunci baris produk (SELECT ... FOR UPDATE) selama
// transaksi sehingga vote dan transisi status pada produk yang sama berjalan
// berurutan. Produk lain tidak ikut terkunci.
func (r *postgresProductRepository) UpdateProductLocked(ctx context.Context, id string, change ChangeFunc) (*domain.Product, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrProductNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("UpdateProductLocked: begin tx failed", err, nil)
		return nil, err
	}
	defer tx.Rollback() // Rollback jika tidak di-commit

	current, err := r.getProductBy(ctx, tx, "id", id, true)
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

	if vote != nil {
		if err := r.insertVote(ctx, tx, vote); err != nil {
			return nil, err
		}
	}

	next.ID = current.ID
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()

	query := `UPDATE products SET status = $1, validators_approved = $2, rejection_reason = $3,
                  distributor_id = $4, retailer_id = $5, version = $6, updated_at = $7
              WHERE id = $8 AND version = $9`
	res, err := tx.ExecContext(ctx, query,
		next.Status, next.ValidatorsApproved, ptrToNull(next.RejectionReason),
		ptrToNull(next.DistributorID), ptrToNull(next.RetailerID), next.Version, next.UpdatedAt,
		current.ID, current.Version,
	)
	if err != nil {
		if database.IsCheckViolation(err) {
			// products_approvals_bounds: hitungan approve di luar 0..total_validators
			logger.Error("UpdateProductLocked: approval bounds violated", err, logger.Fields{"product_id": id, "validators_approved": next.ValidatorsApproved})
			return nil, err
		}
		logger.Error("UpdateProductLocked: update failed", err, logger.Fields{"product_id": id})
		return nil, err
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return nil, ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		logger.Error("UpdateProductLocked: commit failed", err, logger.Fields{"product_id": id})
		return nil, err
	}
	return &next, nil
}

func (r *postgresProductRepository) insertVote(ctx context.Context, tx DBTX, v *domain.Vote) error {
	query := `INSERT INTO votes (id, product_id, validator_id, decision, reason, created_at)
              VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.ExecContext(ctx, query, v.ID, v.ProductID, v.ValidatorID, v.Decision, ptrToNull(v.Reason), v.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateVote
		}
		if database.IsForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		logger.Error("insertVote: failed to insert vote", err, logger.Fields{"product_id": v.ProductID})
		return err
	}
	return nil
}

func (r *postgresProductRepository) CountApprovals(ctx context.Context) (map[string]int, error) {
	query := `SELECT product_id, COUNT(*) FROM votes WHERE decision = 'approve' GROUP BY product_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("CountApprovals: query failed", err, nil)
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
