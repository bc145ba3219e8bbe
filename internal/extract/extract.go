package extract

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brfinsikt/brf-helper/internal/model"
)

// Querier answers one question against the indexed annual report of
// one association.
type Querier interface {
	Ask(ctx context.Context, brfID, question string) (string, error)
}

// metricQuery binds one Swedish question to the record field its
// answer fills. The questions insist on "ENDAST siffran" and an
// explicit OKÄNT escape hatch: a model that guesses is worse than a
// model that abstains.
type metricQuery struct {
	name     string
	question string
	assign   func(m *model.MetricsRecord, v *float64)
}

var metricQueries = []metricQuery{
	{
		name:     "annual_result",
		question: "Vad är årets resultat enligt resultaträkningen? Ange ENDAST siffran i kronor från den senaste räkenskapsperioden. Om du inte hittar det exakta värdet, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.AnnualResult = v },
	},
	{
		name:     "operating_result",
		question: "Vad är rörelseresultatet enligt resultaträkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.OperatingResult = v },
	},
	{
		name:     "total_income",
		question: "Vad är de totala intäkterna enligt resultaträkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.TotalIncome = v },
	},
	{
		name:     "total_expenses",
		question: "Vad är de totala kostnaderna enligt resultaträkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.TotalExpenses = v },
	},
	{
		name:     "interest_costs",
		question: "Hur mycket betalar föreningen i räntekostnader per år enligt resultaträkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.InterestCosts = v },
	},
	{
		name:     "maintenance_costs",
		question: "Vad är underhållskostnaderna enligt resultaträkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.MaintenanceCosts = v },
	},
	{
		name:     "operation_costs",
		question: "Vad är driftskostnaderna enligt resultaträkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.OperationCosts = v },
	},
	{
		name:     "cash_flow",
		question: "Vad är föreningens kassaflöde för året enligt kassaflödesanalysen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.CashFlow = v },
	},
	{
		name:     "liquid_assets",
		question: "Hur mycket likvida medel (kassa och bank) har föreningen enligt balansräkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.LiquidAssets = v },
	},
	{
		name:     "total_assets",
		question: "Vad är föreningens totala tillgångar enligt balansräkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.TotalAssets = v },
	},
	{
		name:     "current_liabilities",
		question: "Vad är de kortfristiga skulderna enligt balansräkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.CurrentLiabilities = v },
	},
	{
		name:     "total_debt",
		question: "Vad är föreningens totala skulder enligt balansräkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.TotalDebt = v },
	},
	{
		name:     "long_term_debt",
		question: "Vad är de långfristiga skulderna enligt balansräkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.LongTermDebt = v },
	},
	{
		name:     "equity",
		question: "Vad är föreningens egna kapital enligt balansräkningen? Ange ENDAST beloppet i kronor. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.Equity = v },
	},
	{
		name:     "maintenance_reserves",
		question: "Hur mycket har föreningen avsatt för underhåll och renoveringar (underhållsfond eller renoveringsfond)? Ange ENDAST beloppet i kronor om det finns en specifik fond. Om du inte hittar det, svara 'OKÄNT'.",
		assign:   func(m *model.MetricsRecord, v *float64) { m.MaintenanceReserves = v },
	},
}

const (
	solvencyQuestion   = "Vad är föreningens soliditet i procent? Ange ENDAST siffran om den uttryckligen anges i rapporten. Beräkna INTE och gissa INTE. Om du inte hittar det, svara 'OKÄNT'."
	monthlyFeeQuestion = "Vad är den genomsnittliga månadsavgiften per kvadratmeter i kronor? Leta efter 'avgift per kvm' eller liknande. Ange ENDAST siffran om den uttryckligen anges. Beräkna INTE och gissa INTE. Om du inte hittar det, svara 'OKÄNT'."
	buildingQuestion   = "Vilket år byggdes/färdigställdes fastigheten ursprungligen (INTE rapportåret, utan när byggnaden konstruerades)? Hur många lägenheter/bostadsrätter finns det? Vad är den totala bostadsarean i kvadratmeter? Om någon information saknas, skriv 'OKÄNT' för den delen."

	auditorQuestion     = "Finns det några anmärkningar från revisorn i revisionsberättelsen? Svara endast JA eller NEJ."
	disputesQuestion    = "Finns det några pågående tvister, rättsliga processer eller försäkringsärenden? Svara endast JA eller NEJ."
	assessmentsQuestion = "Har föreningen tidigare behövt ta ut extra avgifter eller uttaxering från medlemmarna? Svara endast JA eller NEJ."
	renovationsQuestion = "Vilka större renoveringar är planerade de kommande åren? Sammanfatta kort, eller svara 'OKÄNT'."
)

// Extractor pulls a full metrics record and textual facts out of an
// indexed annual report via per-metric questions.
type Extractor struct {
	q   Querier
	now func() time.Time
}

func NewExtractor(q Querier) *Extractor {
	return &Extractor{q: q, now: time.Now}
}

func warnQueryFailed(brfID, name string, err error) {
	zap.L().Warn("query failed",
		zap.String("brf_id", brfID),
		zap.String("question", name),
		zap.Error(err))
}

// Extract asks every metric and fact question for one association. A
// failed or unknown answer leaves its field nil and lowers the data
// quality; only a failing querier as a whole aborts.
func (e *Extractor) Extract(ctx context.Context, brfID string, reportYear int) (*model.MetricsRecord, *model.TextualFacts, error) {
	m := &model.MetricsRecord{
		BRFID:            brfID,
		ReportYear:       model.Int(reportYear),
		ExtractionMethod: model.ExtractionLLM,
	}

	answered, asked := 0, 0

	for _, q := range metricQueries {
		asked++
		answer, err := e.q.Ask(ctx, brfID, q.question)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, err
			}
			warnQueryFailed(brfID, q.name, err)
			continue
		}
		v := ParseAmount(answer)
		q.assign(m, v)
		if v != nil {
			answered++
		}
	}

	asked++
	if answer, err := e.q.Ask(ctx, brfID, solvencyQuestion); err == nil {
		if v := ParsePercent(answer); v != nil {
			m.SolvencyRatio = v
			answered++
		}
	} else {
		if ctx.Err() != nil {
			return nil, nil, err
		}
		warnQueryFailed(brfID, "solvency_ratio", err)
	}

	asked++
	if answer, err := e.q.Ask(ctx, brfID, monthlyFeeQuestion); err == nil {
		if v := ParsePercent(answer); v != nil {
			m.MonthlyFeePerSqm = v
			answered++
		}
	} else {
		if ctx.Err() != nil {
			return nil, nil, err
		}
		warnQueryFailed(brfID, "monthly_fee_per_sqm", err)
	}

	asked++
	if answer, err := e.q.Ask(ctx, brfID, buildingQuestion); err == nil {
		info := ParseBuildingInfo(answer)
		m.BuildingYear = info.BuildingYear
		m.NumApartments = info.NumApartments
		m.TotalArea = info.TotalArea
		if info.BuildingYear != nil || info.NumApartments != nil || info.TotalArea != nil {
			answered++
		}
	} else {
		if ctx.Err() != nil {
			return nil, nil, err
		}
		warnQueryFailed(brfID, "building_info", err)
	}

	quality := float64(answered) / float64(asked)
	m.DataQuality = &quality
	extractedAt := e.now().UTC()
	m.ExtractedAt = &extractedAt

	facts := &model.TextualFacts{BRFID: brfID}
	if answer, err := e.q.Ask(ctx, brfID, auditorQuestion); err == nil {
		facts.AuditorRemarks = ParseTriState(answer)
		if facts.AuditorRemarks == model.TriYes {
			facts.AuditorReport = answer
		}
	} else {
		facts.AuditorRemarks = model.TriUnknown
		if ctx.Err() != nil {
			return nil, nil, err
		}
		warnQueryFailed(brfID, "auditor_remarks", err)
	}
	if answer, err := e.q.Ask(ctx, brfID, disputesQuestion); err == nil {
		facts.OngoingDisputes = ParseTriState(answer)
	} else {
		facts.OngoingDisputes = model.TriUnknown
		if ctx.Err() != nil {
			return nil, nil, err
		}
		warnQueryFailed(brfID, "ongoing_disputes", err)
	}
	if answer, err := e.q.Ask(ctx, brfID, assessmentsQuestion); err == nil {
		facts.PriorAssessments = ParseTriState(answer)
	} else {
		facts.PriorAssessments = model.TriUnknown
		if ctx.Err() != nil {
			return nil, nil, err
		}
		warnQueryFailed(brfID, "prior_assessments", err)
	}
	if answer, err := e.q.Ask(ctx, brfID, renovationsQuestion); err == nil {
		trimmed := strings.TrimSpace(answer)
		if trimmed != "" && !unknownAnswers[strings.ToLower(trimmed)] {
			facts.RenovationsPlanned = trimmed
		}
	} else {
		if ctx.Err() != nil {
			return nil, nil, err
		}
		warnQueryFailed(brfID, "renovations_planned", err)
	}

	zap.L().Info("extraction complete",
		zap.String("brf_id", brfID),
		zap.Int("report_year", reportYear),
		zap.Float64("data_quality", quality))

	return m, facts, nil
}
