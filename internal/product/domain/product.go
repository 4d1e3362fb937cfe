package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusApproved       Status = "approved"
	StatusRejected       Status = "rejected"
	StatusInDistribution Status = "in-distribution"
	StatusRetail         Status = "retail"
)

// transitions is the lifecycle graph. pending -> in-distribution is the
// permissive shortcut; whether it is used is a service policy.
var transitions = map[Status][]Status{
	StatusPending:        {StatusApproved, StatusRejected, StatusInDistribution},
	StatusApproved:       {StatusInDistribution},
	StatusRejected:       nil,
	StatusInDistribution: {StatusRetail},
	StatusRetail:         {StatusRetail},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanMoveTo reports whether the lifecycle graph has an edge from s to next.
func (s Status) CanMoveTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// HarvestDateLayout is the calendar-date format for Product.HarvestDate.
const HarvestDateLayout = "2006-01-02"

type Product struct {
	ID                 string          `json:"id"`
	OwnerID            string          `json:"owner_id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Quantity           decimal.Decimal `json:"quantity"`     // kilogram
	PricePerKg         decimal.Decimal `json:"price_per_kg"` // currency-agnostic
	HarvestDate        string          `json:"harvest_date"`
	QRCode             string          `json:"qr_code"`
	Status             Status          `json:"status"`
	ValidatorsApproved int             `json:"validators_approved"`
	TotalValidators    int             `json:"total_validators"`
	RejectionReason    *string         `json:"rejection_reason,omitempty"`
	DistributorID      *string         `json:"distributor_id,omitempty"`
	RetailerID         *string         `json:"retailer_id,omitempty"`
	ProducerName       string          `json:"producer_name,omitempty"` // Hanya diisi saat lookup QR
	Version            int64           `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Clone returns a deep copy; pointer fields are not shared.
func (p Product) Clone() Product {
	c := p
	c.RejectionReason = cloneString(p.RejectionReason)
	c.DistributorID = cloneString(p.DistributorID)
	c.RetailerID = cloneString(p.RetailerID)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

type Vote struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	ValidatorID string    `json:"validator_id"`
	Decision    Decision  `json:"decision"`
	Reason      *string   `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Untuk pembuatan produk oleh producer. Validasi angka dilakukan di service
// supaya "tidak ada" dan "tidak valid" bisa dibedakan.
type CreateProductRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity"`
	PricePerKg  *decimal.Decimal `json:"price_per_kg"`
	HarvestDate *string          `json:"harvest_date,omitempty"`
}

type CastVoteRequest struct {
	Decision Decision `json:"decision"`
	Reason   *string  `json:"reason,omitempty"`
}
