package credits

import (
	"time"
)

// Status is the lifecycle state of a credit batch
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusVerified            Status = "verified"
	StatusIssued              Status = "issued"
	StatusAvailable           Status = "available"
	StatusReserved            Status = "reserved"
	StatusTransferred         Status = "transferred"
	StatusRetired             Status = "retired"
	StatusCancelled           Status = "cancelled"
)

// Statuses lists every valid credit status
var Statuses = []Status{
	StatusPendingVerification,
	StatusVerified,
	StatusIssued,
	StatusAvailable,
	StatusReserved,
	StatusTransferred,
	StatusRetired,
	StatusCancelled,
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// CreditRecord is one issued batch of carbon credits
type CreditRecord struct {
	ID                string     `json:"id"`
	BatchID           string     `json:"batch_id"`
	ProjectID         string     `json:"project_id"`
	ProjectName       string     `json:"project_name"`
	Quantity          float64    `json:"quantity"`
	PricePerUnit      float64    `json:"price_per_unit"`
	TotalValue        float64    `json:"total_value"`
	Status            Status     `json:"status"`
	VintageYear       int        `json:"vintage_year,omitempty"`
	IssueDate         time.Time  `json:"issue_date"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	VerificationDate  *time.Time `json:"verification_date,omitempty"`
	RetirementDate    *time.Time `json:"retirement_date,omitempty"`
	Methodology       string     `json:"methodology"`
	Standard          string     `json:"standard"`
	Registry          string     `json:"registry"`
	SerialNumberStart string     `json:"serial_number_start"`
	SerialNumberEnd   string     `json:"serial_number_end"`
	TransactionHash   string     `json:"transaction_hash,omitempty"`
	VerificationHash  string     `json:"verification_hash,omitempty"`
	BlockchainStatus  string     `json:"blockchain_status,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (r CreditRecord) RecordID() string { return r.ID }

func (r CreditRecord) Touched(at time.Time) CreditRecord {
	r.UpdatedAt = at
	return r
}

// PortfolioStats summarizes the credit collection
type PortfolioStats struct {
	TotalCredits     float64   `json:"total_credits"`
	AvailableCredits float64   `json:"available_credits"`
	RetiredCredits   float64   `json:"retired_credits"`
	TotalValue       float64   `json:"total_value"`
	RecordCount      int       `json:"record_count"`
	ComputedAt       time.Time `json:"computed_at"`
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	ProjectID string
	Status    Status
	// Query matches project name, batch id or serial numbers, case-insensitively.
	Query string
}

// CreateCreditRequest is the body of POST /credits
type CreateCreditRequest struct {
	ID                string     `json:"id"`
	BatchID           string     `json:"batch_id"`
	ProjectID         string     `json:"project_id" binding:"required"`
	ProjectName       string     `json:"project_name" binding:"required"`
	Quantity          float64    `json:"quantity" binding:"gte=0"`
	PricePerUnit      float64    `json:"price_per_unit" binding:"gte=0"`
	Status            Status     `json:"status"`
	VintageYear       int        `json:"vintage_year" binding:"omitempty,gte=1990,lte=2100"`
	IssueDate         *time.Time `json:"issue_date"`
	ExpiryDate        *time.Time `json:"expiry_date"`
	Methodology       string     `json:"methodology"`
	Standard          string     `json:"standard"`
	Registry          string     `json:"registry"`
	SerialNumberStart string     `json:"serial_number_start"`
	SerialNumberEnd   string     `json:"serial_number_end"`
}

// Record converts the request into a record. Defaults are applied by the
// service.
func (req CreateCreditRequest) Record() CreditRecord {
	rec := CreditRecord{
		ID:                req.ID,
		BatchID:           req.BatchID,
		ProjectID:         req.ProjectID,
		ProjectName:       req.ProjectName,
		Quantity:          req.Quantity,
		PricePerUnit:      req.PricePerUnit,
		Status:            req.Status,
		VintageYear:       req.VintageYear,
		ExpiryDate:        req.ExpiryDate,
		Methodology:       req.Methodology,
		Standard:          req.Standard,
		Registry:          req.Registry,
		SerialNumberStart: req.SerialNumberStart,
		SerialNumberEnd:   req.SerialNumberEnd,
	}
	if req.IssueDate != nil {
		rec.IssueDate = *req.IssueDate
	}
	return rec
}

// UpdateStatusRequest is the body of PATCH /credits/:id/status
type UpdateStatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

// UpdateBlockchainRequest is the body of PATCH /credits/:id/blockchain
type UpdateBlockchainRequest struct {
	TransactionHash  string `json:"transaction_hash" binding:"required"`
	BlockchainStatus string `json:"blockchain_status" binding:"required"`
}
