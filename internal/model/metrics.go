package model

import "time"

// ExtractionMethod records how a metrics record was produced.
type ExtractionMethod string

const (
	ExtractionLLM    ExtractionMethod = "llm"
	ExtractionOCR    ExtractionMethod = "ocr"
	ExtractionManual ExtractionMethod = "manual"
)

// TriState is a three-valued fact: yes, no, or unknown.
// Unknown means "could not be determined from the report" and must be
// treated as not evaluable, never as no.
type TriState string

const (
	TriYes     TriState = "yes"
	TriNo      TriState = "no"
	TriUnknown TriState = "unknown"
)

// Known reports whether the fact was actually determined.
func (t TriState) Known() bool {
	return t == TriYes || t == TriNo
}

// MetricsRecord holds the raw financial facts extracted from one BRF
// annual report. All monetary fields are SEK. Every financial field is
// nullable: nil means the report did not state the value, which is
// distinct from a stated zero.
type MetricsRecord struct {
	BRFID      string `json:"brf_id"`
	ReportYear *int   `json:"report_year,omitempty"`

	// Income statement.
	AnnualResult    *float64 `json:"annual_result,omitempty"`
	OperatingResult *float64 `json:"operating_result,omitempty"`
	TotalIncome     *float64 `json:"total_income,omitempty"`
	TotalExpenses   *float64 `json:"total_expenses,omitempty"`

	// Cost breakdown. Interest costs are conventionally negative.
	InterestCosts       *float64 `json:"interest_costs,omitempty"`
	MaintenanceCosts    *float64 `json:"maintenance_costs,omitempty"`
	OperationCosts      *float64 `json:"operation_costs,omitempty"`
	AdministrationCosts *float64 `json:"administration_costs,omitempty"`

	// Cash flow.
	CashFlow           *float64 `json:"cash_flow,omitempty"`
	CashFlowOperations *float64 `json:"cash_flow_operations,omitempty"`
	CashFlowInvesting  *float64 `json:"cash_flow_investing,omitempty"`
	CashFlowFinancing  *float64 `json:"cash_flow_financing,omitempty"`

	// Balance sheet.
	LiquidAssets       *float64 `json:"liquid_assets,omitempty"`
	CurrentAssets      *float64 `json:"current_assets,omitempty"`
	FixedAssets        *float64 `json:"fixed_assets,omitempty"`
	TotalAssets        *float64 `json:"total_assets,omitempty"`
	CurrentLiabilities *float64 `json:"current_liabilities,omitempty"`
	LongTermDebt       *float64 `json:"long_term_debt,omitempty"`
	TotalDebt          *float64 `json:"total_debt,omitempty"`
	Equity             *float64 `json:"equity,omitempty"`
	EquityStartOfYear  *float64 `json:"equity_start_of_year,omitempty"`

	// Ratios, only when explicitly stated in the report (percent).
	SolvencyRatio *float64 `json:"solvency_ratio,omitempty"`

	// Per-unit metrics.
	MonthlyFeePerSqm    *float64 `json:"monthly_fee_per_sqm,omitempty"`
	AnnualFeePerAptSEK  *float64 `json:"annual_fee_per_apartment,omitempty"`

	// Reserves.
	MaintenanceReserves *float64 `json:"maintenance_reserves,omitempty"`
	RenovationFund      *float64 `json:"renovation_fund,omitempty"`

	// Prior-year comparison points.
	AnnualResultPrevYear *float64 `json:"annual_result_previous_year,omitempty"`
	EquityPrevYear       *float64 `json:"equity_previous_year,omitempty"`

	// Building context.
	NumApartments *int     `json:"num_apartments,omitempty"`
	BuildingYear  *int     `json:"building_year,omitempty"`
	TotalArea     *float64 `json:"total_area,omitempty"`

	// Provenance.
	ExtractionMethod ExtractionMethod `json:"extraction_method,omitempty"`
	DataQuality      *float64         `json:"data_quality,omitempty"`
	ExtractedAt      *time.Time       `json:"extracted_at,omitempty"`
}

// TextualFacts holds report facts that are not computed from numbers.
// One record per BRF, with a lifecycle independent of MetricsRecord.
type TextualFacts struct {
	BRFID string `json:"brf_id"`

	AuditorRemarks   TriState `json:"has_auditor_remarks,omitempty"`
	OngoingDisputes  TriState `json:"has_ongoing_disputes,omitempty"`
	PriorAssessments TriState `json:"has_previous_assessments,omitempty"`

	RenovationsPlanned   string `json:"major_renovations_planned,omitempty"`
	RenovationsCompleted string `json:"major_renovations_completed,omitempty"`
	AuditorReport        string `json:"auditor_report,omitempty"`
}

// Float64 returns a pointer to v. Convenience for building records.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
