package model

import "time"

// Severity ranks how serious a red flag is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: higher is more severe. Unknown severities
// rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Category classifies what aspect of the association a flag concerns.
type Category string

const (
	CategoryFinancialStability Category = "financial-stability"
	CategoryDebtRisk           Category = "debt-risk"
	CategoryLiquidity          Category = "liquidity"
	CategoryMaintenance        Category = "maintenance"
	CategoryGovernance         Category = "governance"
	CategoryLegal              Category = "legal"
	CategoryOperational        Category = "operational"
)

// RedFlag is a single categorized warning derived from the metrics or
// textual facts of one report.
type RedFlag struct {
	Category       Category `json:"category"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Impact         string   `json:"impact"`
	Recommendation string   `json:"recommendation"`

	// Evidence: either a metric name + value, or a textual excerpt.
	Metric      string   `json:"metric,omitempty"`
	MetricValue *float64 `json:"metric_value,omitempty"`
	Excerpt     string   `json:"excerpt,omitempty"`
}

// RiskLevel is the overall risk classification of an analysis.
type RiskLevel string

const (
	RiskInsufficientData RiskLevel = "INSUFFICIENT_DATA"
	RiskMinimal          RiskLevel = "MINIMAL"
	RiskLow              RiskLevel = "LOW"
	RiskModerate         RiskLevel = "MODERATE"
	RiskHigh             RiskLevel = "HIGH"
	RiskCritical         RiskLevel = "CRITICAL"
)

// Rank orders risk levels: higher is worse. INSUFFICIENT_DATA ranks
// lowest so that flag escalation can still raise it.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 5
	case RiskHigh:
		return 4
	case RiskModerate:
		return 3
	case RiskLow:
		return 2
	case RiskMinimal:
		return 1
	default:
		return 0
	}
}

// MaxRisk returns the more severe of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// HealthScore holds the six sub-scores and the overall score. Each
// score is an integer in [0,100]; nil means the inputs needed for the
// score were entirely absent ("insufficient data", not zero).
type HealthScore struct {
	FinancialStability   *int `json:"financial_stability,omitempty"`
	CostEfficiency       *int `json:"cost_efficiency,omitempty"`
	Liquidity            *int `json:"liquidity,omitempty"`
	DebtManagement       *int `json:"debt_management,omitempty"`
	MaintenanceReadiness *int `json:"maintenance_readiness,omitempty"`
	FeeDevelopment       *int `json:"fee_development,omitempty"`

	Overall *int `json:"overall,omitempty"`
}

// PresentCount returns how many sub-scores are present.
func (h HealthScore) PresentCount() int {
	n := 0
	for _, s := range []*int{
		h.FinancialStability, h.CostEfficiency, h.Liquidity,
		h.DebtManagement, h.MaintenanceReadiness, h.FeeDevelopment,
	} {
		if s != nil {
			n++
		}
	}
	return n
}

// FlagCounts tallies flags per severity.
type FlagCounts struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// AnalysisResult is the cacheable output of one analysis run. It is
// always derivable from (MetricsRecord, TextualFacts, history) and is
// never the source of truth.
type AnalysisResult struct {
	BRFID string `json:"brf_id"`

	Scores    HealthScore `json:"scores"`
	RiskLevel RiskLevel   `json:"risk_level"`
	Flags     []RedFlag   `json:"flags"`
	Counts    FlagCounts  `json:"counts"`

	// Cache provenance.
	LogicVersion string    `json:"logic_version"`
	Fingerprint  string    `json:"fingerprint"`
	ComputedAt   time.Time `json:"computed_at"`
}
