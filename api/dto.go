/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

RATES:
  Rates cross the API as percentages (2.5 means 2.5%) because that is
  how admins enter and read them. The engine stores fractional rates;
  conversion happens at this boundary and nowhere else.

MONEY:
  Amounts are decimal values serialized as JSON numbers. The decimal
  type unmarshals both numbers and numeric strings, so clients may send
  either.

SEE ALSO:
  - handlers.go: Uses these types
  - commission/types.go: Domain model
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/commission-engine/commission"
)

func init() {
	// Amounts and rates cross the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// =============================================================================
// UPLOAD TYPES
// =============================================================================

// InvoiceRowDTO is one invoice row of an upload. A negative amount marks
// a correction against the deal's previously recorded invoice.
type InvoiceRowDTO struct {
	DealID         string          `json:"deal_id"`
	DealName       string          `json:"deal_name"`
	DealLink       string          `json:"deal_link,omitempty"`
	PayeeEmail     string          `json:"payee_email"`
	PayeeName      string          `json:"payee_name"`
	AmountInvoiced decimal.Decimal `json:"amount_invoiced"`
	Month          string          `json:"month"`
	DealOwner      bool            `json:"deal_owner,omitempty"`
}

// CollectionRowDTO is one cash-collection row of an upload.
type CollectionRowDTO struct {
	DealID     string          `json:"deal_id"`
	PayeeEmail string          `json:"payee_email"`
	PayeeName  string          `json:"payee_name"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Month      string          `json:"month"`
}

// UploadRequest is one monthly batch for the class in the URL.
type UploadRequest struct {
	Invoices    []InvoiceRowDTO    `json:"invoices"`
	Collections []CollectionRowDTO `json:"collections"`
}

// UploadResponseDTO is the single success/failure outcome per upload.
type UploadResponseDTO struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// =============================================================================
// PAYEE TYPES
// =============================================================================

// TierDTO is one step of a tier ladder, rate as a percentage.
type TierDTO struct {
	RatePercent decimal.Decimal `json:"rate_percent"`
	Threshold   decimal.Decimal `json:"threshold"`
}

// PayeeDTO represents a payee config in API responses.
type PayeeDTO struct {
	Email                 string          `json:"email"`
	Name                  string          `json:"name"`
	Class                 string          `json:"class"`
	BaseRatePercent       decimal.Decimal `json:"base_rate_percent"`
	Tiers                 []TierDTO       `json:"tiers"`
	TiersEnabled          bool            `json:"tiers_enabled"`
	Domestic              bool            `json:"domestic"`
	DomesticRatePercent   decimal.Decimal `json:"domestic_rate_percent"`
	OwnerBonusRatePercent decimal.Decimal `json:"owner_bonus_rate_percent"`
}

// SavePayeeRequest creates or updates a payee config. Rates arrive as
// percentages.
type SavePayeeRequest struct {
	Email                 string          `json:"email"`
	Name                  string          `json:"name"`
	Class                 string          `json:"class"`
	BaseRatePercent       decimal.Decimal `json:"base_rate_percent"`
	Tiers                 []TierDTO       `json:"tiers"`
	TiersEnabled          bool            `json:"tiers_enabled"`
	Domestic              bool            `json:"domestic"`
	DomesticRatePercent   decimal.Decimal `json:"domestic_rate_percent"`
	OwnerBonusRatePercent decimal.Decimal `json:"owner_bonus_rate_percent"`
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// YearRowDTO is one month of a payee's year series.
type YearRowDTO struct {
	Month            string          `json:"month"`
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalCollections decimal.Decimal `json:"total_collections"`
	TotalPayout      decimal.Decimal `json:"total_payout"`
}

// InvoiceDTO is an invoice row in month-detail responses.
type InvoiceDTO struct {
	DealID         string          `json:"deal_id"`
	DealName       string          `json:"deal_name"`
	DealLink       string          `json:"deal_link,omitempty"`
	AmountInvoiced decimal.Decimal `json:"amount_invoiced"`
	DealOwner      bool            `json:"deal_owner,omitempty"`
}

// CollectionDTO is a collection row enriched with deal metadata.
type CollectionDTO struct {
	DealID     string          `json:"deal_id"`
	DealName   string          `json:"deal_name,omitempty"`
	DealLink   string          `json:"deal_link,omitempty"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

// PayoutDTO is a payout enriched with its probable funding collection.
type PayoutDTO struct {
	SourceMonth      string           `json:"source_month"`
	PayoutMonth      string           `json:"payout_month"`
	Kind             string           `json:"kind"`
	RatePercent      decimal.Decimal  `json:"rate_percent"`
	Amount           decimal.Decimal  `json:"amount"`
	Description      string           `json:"description,omitempty"`
	DealName         string           `json:"deal_name,omitempty"`
	DealLink         string           `json:"deal_link,omitempty"`
	CollectionAmount *decimal.Decimal `json:"collection_amount,omitempty"`
	ExactMatch       bool             `json:"exact_match"`
}

// MonthDetailsDTO is the drill-down for one (payee, month).
type MonthDetailsDTO struct {
	Month            string          `json:"month"`
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalCollections decimal.Decimal `json:"total_collections"`
	TotalPayout      decimal.Decimal `json:"total_payout"`
	Invoices         []InvoiceDTO    `json:"invoices"`
	Collections      []CollectionDTO `json:"collections"`
	Payouts          []PayoutDTO     `json:"payouts"`
}

// AdminPayoutDTO is one row of the cross-payee disbursement listing.
type AdminPayoutDTO struct {
	PayeeEmail string `json:"payee_email"`
	PayeeName  string `json:"payee_name,omitempty"`
	PayoutDTO
}

// =============================================================================
// ADMIN TYPES
// =============================================================================

// PurgeRequest deletes all data from the given month onward.
type PurgeRequest struct {
	From string `json:"from"`
}

// RecalculateRequest re-runs the pipeline for a class from a month.
type RecalculateRequest struct {
	Month string `json:"month"`
	Class string `json:"class"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageDTO acknowledges an admin action.
type MessageDTO struct {
	Message string `json:"message"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

var hundred = decimal.NewFromInt(100)

func toPercent(rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(hundred)
}

func fromPercent(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred)
}

func toPayeeDTO(cfg commission.PayeeConfig) PayeeDTO {
	tiers := make([]TierDTO, len(cfg.Tiers))
	for i, t := range cfg.Tiers {
		tiers[i] = TierDTO{RatePercent: toPercent(t.Rate), Threshold: t.Threshold}
	}
	return PayeeDTO{
		Email:                 cfg.Email,
		Name:                  cfg.Name,
		Class:                 string(cfg.Class),
		BaseRatePercent:       toPercent(cfg.BaseRate),
		Tiers:                 tiers,
		TiersEnabled:          cfg.TiersEnabled,
		Domestic:              cfg.Domestic,
		DomesticRatePercent:   toPercent(cfg.DomesticRate),
		OwnerBonusRatePercent: toPercent(cfg.OwnerBonusRate),
	}
}

func (req SavePayeeRequest) toConfig() commission.PayeeConfig {
	tiers := make([]commission.RateTier, len(req.Tiers))
	for i, t := range req.Tiers {
		tiers[i] = commission.RateTier{Rate: fromPercent(t.RatePercent), Threshold: t.Threshold}
	}
	return commission.PayeeConfig{
		Email:          req.Email,
		Name:           req.Name,
		Class:          commission.PayeeClass(req.Class),
		BaseRate:       fromPercent(req.BaseRatePercent),
		Tiers:          tiers,
		TiersEnabled:   req.TiersEnabled,
		Domestic:       req.Domestic,
		DomesticRate:   fromPercent(req.DomesticRatePercent),
		OwnerBonusRate: fromPercent(req.OwnerBonusRatePercent),
	}
}

func toPayoutDTO(d commission.PayoutDetail) PayoutDTO {
	dto := PayoutDTO{
		SourceMonth: d.Payout.SourceMonth.String(),
		PayoutMonth: d.Payout.PayoutMonth.String(),
		Kind:        string(d.Payout.Kind),
		RatePercent: toPercent(d.Payout.CommissionRate),
		Amount:      d.Payout.Amount,
		Description: d.Payout.Description,
		DealName:    d.DealName,
		DealLink:    d.DealLink,
		ExactMatch:  d.Exact,
	}
	if d.Collection != nil {
		amount := d.Collection.AmountPaid
		dto.CollectionAmount = &amount
	}
	return dto
}
