package analysis

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/brfinsikt/brf-helper/internal/config"
	"github.com/brfinsikt/brf-helper/internal/model"
)

// Flag text is Swedish: the reports are Swedish, the buyers reading the
// output are Swedish. Numbers in evidence strings use Swedish digit
// grouping.
var sv = message.NewPrinter(language.Swedish)

func sek(v float64) string {
	return sv.Sprintf("%.0f", v)
}

// DetectFlags runs every flag rule over one record plus its textual
// facts. Rules are independent: a missing input skips its rule and
// never suppresses the others.
func DetectFlags(m *model.MetricsRecord, facts *model.TextualFacts, history []model.MetricsRecord, cfg config.ScoringConfig) []model.RedFlag {
	var flags []model.RedFlag

	flags = append(flags, checkFinancialStability(m, history, cfg)...)
	flags = append(flags, checkDebtRisk(m, cfg)...)
	flags = append(flags, checkLiquidity(m, cfg)...)
	flags = append(flags, checkMaintenance(m, cfg)...)
	flags = append(flags, checkOperational(m, cfg)...)
	if facts != nil {
		flags = append(flags, checkGovernance(facts)...)
		flags = append(flags, checkLegal(facts)...)
	}

	return flags
}

func checkFinancialStability(m *model.MetricsRecord, history []model.MetricsRecord, cfg config.ScoringConfig) []model.RedFlag {
	var flags []model.RedFlag

	if m.OperatingResult != nil {
		switch or := *m.OperatingResult; {
		case or < cfg.OperatingResultCritical:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryFinancialStability,
				Severity:       model.SeverityCritical,
				Title:          "Kritiskt negativt rörelseresultat",
				Description:    fmt.Sprintf("Föreningens rörelseresultat är %s kr, vilket innebär att intäkterna inte täcker de löpande driftskostnaderna.", sek(or)),
				Impact:         "Föreningen går med förlust i den dagliga driften och kan behöva höja avgifterna kraftigt eller ta ut extra uttaxering från medlemmarna.",
				Recommendation: "Kräv detaljerad ekonomisk plan från styrelsen. Undersök orsaken till underskottet och om avgiftshöjningar planeras.",
				Metric:         "operating_result",
				MetricValue:    m.OperatingResult,
			})
		case or < cfg.OperatingResultHigh:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryFinancialStability,
				Severity:       model.SeverityHigh,
				Title:          "Negativt rörelseresultat",
				Description:    fmt.Sprintf("Rörelseresultatet är negativt (%s kr). Intäkterna täcker inte fullt ut de löpande kostnaderna.", sek(or)),
				Impact:         "Indikerar att föreningen kan ha för låga avgifter eller för höga driftskostnader.",
				Recommendation: "Granska kostnadsutvecklingen och fråga om planerade avgiftshöjningar.",
				Metric:         "operating_result",
				MetricValue:    m.OperatingResult,
			})
		}
	}

	if m.AnnualResult != nil && *m.AnnualResult < cfg.AnnualResultHigh {
		flags = append(flags, model.RedFlag{
			Category:       model.CategoryFinancialStability,
			Severity:       model.SeverityHigh,
			Title:          "Stort negativt årsresultat",
			Description:    fmt.Sprintf("Årets resultat är kraftigt negativt (%s kr).", sek(*m.AnnualResult)),
			Impact:         "Även om avskrivningar kan förklara negativt resultat, är detta belopp oroväckande stort.",
			Recommendation: "Begär förklaring från styrelsen. Kontrollera om det beror på extraordinära kostnader eller strukturella problem.",
			Metric:         "annual_result",
			MetricValue:    m.AnnualResult,
		})
	}

	if m.AnnualResult != nil && *m.AnnualResult < 0 {
		prev := m.AnnualResultPrevYear
		if prev == nil {
			if p := priorRecord(m, history); p != nil {
				prev = p.AnnualResult
			}
		}
		if prev != nil && *prev < 0 {
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryFinancialStability,
				Severity:       model.SeverityHigh,
				Title:          "Ihållande negativt resultat",
				Description:    fmt.Sprintf("Föreningen har redovisat negativt resultat två år i rad (%s kr i år, %s kr föregående år).", sek(*m.AnnualResult), sek(*prev)),
				Impact:         "Upprepade underskott tyder på strukturell obalans mellan avgifter och kostnader, inte en engångshändelse.",
				Recommendation: "Begär flerårsöversikt och styrelsens plan för att nå balans.",
				Metric:         "annual_result",
				MetricValue:    m.AnnualResult,
			})
		}
	}

	if pct, ok := solvencyPct(m); ok {
		switch {
		case pct < cfg.SolvencyCriticalPct:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryFinancialStability,
				Severity:       model.SeverityCritical,
				Title:          "Kritiskt låg soliditet",
				Description:    fmt.Sprintf("Soliditeten är endast %.1f%%, vilket är mycket lågt.", pct),
				Impact:         "Extremt hög skuldsättning innebär stor sårbarhet för ränteförändringar och begränsad ekonomisk buffert.",
				Recommendation: "UNDVIK - Mycket hög ekonomisk risk. Föreningen kan ha svårt att hantera oförutsedda kostnader.",
				Metric:         "solvency_ratio",
				MetricValue:    model.Float64(pct),
			})
		case pct < cfg.SolvencyHighPct:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryFinancialStability,
				Severity:       model.SeverityHigh,
				Title:          "Låg soliditet",
				Description:    fmt.Sprintf("Soliditeten är %.1f%%, vilket är under rekommenderad nivå (>20%%).", pct),
				Impact:         "Hög skuldsättning gör föreningen känslig för räntehöjningar och ekonomiska chocker.",
				Recommendation: "Granska skuldsättningen noggrant. Kontrollera räntebindning och amorteringsplan.",
				Metric:         "solvency_ratio",
				MetricValue:    model.Float64(pct),
			})
		case pct < cfg.SolvencyMediumPct:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryFinancialStability,
				Severity:       model.SeverityMedium,
				Title:          "Måttlig soliditet",
				Description:    fmt.Sprintf("Soliditeten är %.1f%%, vilket är något lågt.", pct),
				Impact:         "Begränsad ekonomisk buffert mot oförutsedda kostnader.",
				Recommendation: "Kontrollera trend över tid - förbättras eller försämras soliditeten?",
				Metric:         "solvency_ratio",
				MetricValue:    model.Float64(pct),
			})
		}
	}

	return flags
}

func checkDebtRisk(m *model.MetricsRecord, cfg config.ScoringConfig) []model.RedFlag {
	var flags []model.RedFlag

	if m.InterestCosts != nil && m.NumApartments != nil && *m.NumApartments > 0 {
		perApt := math.Abs(*m.InterestCosts) / float64(*m.NumApartments)
		switch {
		case perApt > cfg.InterestPerAptCritical:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryDebtRisk,
				Severity:       model.SeverityCritical,
				Title:          "Mycket hög räntebelastning",
				Description:    fmt.Sprintf("Räntekostnaderna är %s kr per lägenhet och år (%s kr totalt).", sek(perApt), sek(math.Abs(*m.InterestCosts))),
				Impact:         "Extremt hög skuldsättning. Kraftiga avgiftshöjningar vid ränteuppgångar.",
				Recommendation: "VARNING - Hög ränterisk. Kontrollera räntebindning och om föreningen kan hantera högre räntor.",
				Metric:         "interest_per_apartment",
				MetricValue:    model.Float64(perApt),
			})
		case perApt > cfg.InterestPerAptHigh:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryDebtRisk,
				Severity:       model.SeverityHigh,
				Title:          "Hög räntebelastning",
				Description:    fmt.Sprintf("Räntekostnaderna är %s kr per lägenhet och år.", sek(perApt)),
				Impact:         "Betydande skuldsättning som påverkar månadsavgiftens utveckling.",
				Recommendation: "Granska föreningens skulder, räntebindning och känslighetsanalys för ränteförändringar.",
				Metric:         "interest_per_apartment",
				MetricValue:    model.Float64(perApt),
			})
		case perApt > cfg.InterestPerAptMedium:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryDebtRisk,
				Severity:       model.SeverityMedium,
				Title:          "Måttlig räntebelastning",
				Description:    fmt.Sprintf("Räntekostnaderna är %s kr per lägenhet och år.", sek(perApt)),
				Impact:         "Viss räntekänslighet som kan påverka avgifterna vid ränteuppgång.",
				Recommendation: "Kontrollera räntebindningstid och framtida ränterisk.",
				Metric:         "interest_per_apartment",
				MetricValue:    model.Float64(perApt),
			})
		}
	}

	if m.TotalDebt != nil && m.Equity != nil && *m.Equity > 0 {
		ratio := *m.TotalDebt / *m.Equity
		switch {
		case ratio > cfg.DebtToEquityCritical:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryDebtRisk,
				Severity:       model.SeverityCritical,
				Title:          "Kritisk skuldsättningsgrad",
				Description:    fmt.Sprintf("Skuldsättningsgraden är %.1fx (skulder/eget kapital).", ratio),
				Impact:         "Extremt hög belåning innebär mycket begränsad ekonomisk flexibilitet.",
				Recommendation: "UNDVIK - Ohållbart hög skuldsättning med stor ekonomisk risk.",
				Metric:         "debt_to_equity",
				MetricValue:    model.Float64(ratio),
			})
		case ratio > cfg.DebtToEquityHigh:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryDebtRisk,
				Severity:       model.SeverityHigh,
				Title:          "Hög skuldsättningsgrad",
				Description:    fmt.Sprintf("Skuldsättningsgraden är %.1fx.", ratio),
				Impact:         "Hög belåning begränsar föreningens ekonomiska handlingsutrymme.",
				Recommendation: "Granska amorteringsplan och föreningens långsiktiga skuldstrategi.",
				Metric:         "debt_to_equity",
				MetricValue:    model.Float64(ratio),
			})
		}
	}

	return flags
}

func checkLiquidity(m *model.MetricsRecord, cfg config.ScoringConfig) []model.RedFlag {
	var flags []model.RedFlag

	if m.CashFlow != nil {
		switch cf := *m.CashFlow; {
		case cf < cfg.CashFlowCritical:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryLiquidity,
				Severity:       model.SeverityCritical,
				Title:          "Kritiskt negativt kassaflöde",
				Description:    fmt.Sprintf("Kassaflödet är %s kr, vilket betyder att kassan minskar kraftigt.", sek(cf)),
				Impact:         "Föreningen förbrukar sina likvida medel snabbt och riskerar betalningssvårigheter.",
				Recommendation: "VARNING - Kräv akut förklaring. Risk för extra uttaxering eller lånebehov.",
				Metric:         "cash_flow",
				MetricValue:    m.CashFlow,
			})
		case cf < cfg.CashFlowHigh:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryLiquidity,
				Severity:       model.SeverityHigh,
				Title:          "Negativt kassaflöde",
				Description:    fmt.Sprintf("Kassaflödet är negativt (%s kr).", sek(cf)),
				Impact:         "Kassan minskar vilket kan leda till likviditetsproblem på sikt.",
				Recommendation: "Granska orsaken till det negativa kassaflödet och föreningens likviditetsplan.",
				Metric:         "cash_flow",
				MetricValue:    m.CashFlow,
			})
		}
	}

	if m.LiquidAssets != nil && m.NumApartments != nil && *m.NumApartments > 0 {
		perApt := *m.LiquidAssets / float64(*m.NumApartments)
		switch {
		case perApt < cfg.ReservesPerAptCritical:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryLiquidity,
				Severity:       model.SeverityHigh,
				Title:          "Mycket låga likvida medel",
				Description:    fmt.Sprintf("Föreningen har endast %s kr i likvida medel per lägenhet.", sek(perApt)),
				Impact:         "Mycket begränsad buffert för oförutsedda kostnader.",
				Recommendation: "Risk för extra uttaxering vid akuta reparationer. Kontrollera föreningens beredskapsplan.",
				Metric:         "liquid_assets_per_apartment",
				MetricValue:    model.Float64(perApt),
			})
		case perApt < cfg.ReservesPerAptLow:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryLiquidity,
				Severity:       model.SeverityMedium,
				Title:          "Låga likvida medel",
				Description:    fmt.Sprintf("Likvida medel är %s kr per lägenhet.", sek(perApt)),
				Impact:         "Begränsad buffert för oväntade utgifter.",
				Recommendation: "Kontrollera om föreningen har kreditmöjligheter eller planerar att bygga upp kassan.",
				Metric:         "liquid_assets_per_apartment",
				MetricValue:    model.Float64(perApt),
			})
		}
	}

	return flags
}

func checkMaintenance(m *model.MetricsRecord, cfg config.ScoringConfig) []model.RedFlag {
	var flags []model.RedFlag

	age := -1
	if m.BuildingYear != nil && m.ReportYear != nil {
		age = *m.ReportYear - *m.BuildingYear
	}

	if age >= 0 {
		switch {
		case age > cfg.BuildingAgeVeryOld:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryMaintenance,
				Severity:       model.SeverityHigh,
				Title:          "Mycket gammal fastighet",
				Description:    fmt.Sprintf("Fastigheten är byggd %d (%d år gammal).", *m.BuildingYear, age),
				Impact:         "Äldre fastigheter kräver omfattande underhåll. Risk för stora renoveringskostnader.",
				Recommendation: "Granska underhållsplan och genomförda renoveringar. Kontrollera skick på tak, fasad, stammar och el.",
				Metric:         "building_age",
				MetricValue:    model.Float64(float64(age)),
			})
		case age > cfg.BuildingAgeOld:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryMaintenance,
				Severity:       model.SeverityMedium,
				Title:          "Äldre fastighet med underhållsbehov",
				Description:    fmt.Sprintf("Fastigheten är från %d (%d år).", *m.BuildingYear, age),
				Impact:         "Ålder innebär ökande underhållsbehov och potentiella renoveringskostnader.",
				Recommendation: "Kontrollera genomförda renoveringar och planerat underhåll de närmaste åren.",
				Metric:         "building_age",
				MetricValue:    model.Float64(float64(age)),
			})
		}
	}

	r := reserves(m)
	if r != nil && m.NumApartments != nil && *m.NumApartments > 0 {
		perApt := *r / float64(*m.NumApartments)

		if age > cfg.BuildingAgeOld && perApt < 50_000 {
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryMaintenance,
				Severity:       model.SeverityHigh,
				Title:          "Otillräckliga underhållsreserver för gammal fastighet",
				Description:    fmt.Sprintf("Fastigheten är %d år gammal men har endast %s kr i underhållsreserver per lägenhet.", age, sek(perApt)),
				Impact:         "Risk för att föreningen inte kan finansiera nödvändiga renoveringar utan extra uttaxering.",
				Recommendation: "VARNING - Kombination av hög ålder och låga reserver är mycket riskabelt. Kräv detaljerad underhållsplan.",
				Metric:         "reserves_per_apartment",
				MetricValue:    model.Float64(perApt),
			})
		}

		if perApt < cfg.ReservesPerAptLow {
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryMaintenance,
				Severity:       model.SeverityMedium,
				Title:          "Låga underhållsreserver",
				Description:    fmt.Sprintf("Underhållsreserverna är %s kr per lägenhet.", sek(perApt)),
				Impact:         "Begränsad förmåga att finansiera framtida underhåll och renoveringar.",
				Recommendation: "Kontrollera om föreningen planerar att bygga upp reserverna eller om stora projekt nyligen genomförts.",
				Metric:         "reserves_per_apartment",
				MetricValue:    model.Float64(perApt),
			})
		}
	}

	return flags
}

func checkOperational(m *model.MetricsRecord, cfg config.ScoringConfig) []model.RedFlag {
	var flags []model.RedFlag

	if m.MonthlyFeePerSqm != nil {
		switch fee := *m.MonthlyFeePerSqm; {
		case fee > cfg.MonthlyFeeHigh:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryOperational,
				Severity:       model.SeverityMedium,
				Title:          "Mycket hög månadsavgift",
				Description:    fmt.Sprintf("Månadsavgiften är %.0f kr/kvm, vilket är högt jämfört med marknaden.", fee),
				Impact:         "Höga löpande kostnader påverkar din ekonomi och kan göra lägenheten svårsåld.",
				Recommendation: "Jämför med liknande föreningar. Kontrollera vad som ingår i avgiften och varför den är hög.",
				Metric:         "monthly_fee_per_sqm",
				MetricValue:    m.MonthlyFeePerSqm,
			})
		case fee > cfg.MonthlyFeeMedium:
			flags = append(flags, model.RedFlag{
				Category:       model.CategoryOperational,
				Severity:       model.SeverityLow,
				Title:          "Hög månadsavgift",
				Description:    fmt.Sprintf("Månadsavgiften är %.0f kr/kvm.", fee),
				Impact:         "Något högre än genomsnittet.",
				Recommendation: "Kontrollera vad som ingår och jämför med alternativ.",
				Metric:         "monthly_fee_per_sqm",
				MetricValue:    m.MonthlyFeePerSqm,
			})
		}
	}

	return flags
}

func checkGovernance(facts *model.TextualFacts) []model.RedFlag {
	var flags []model.RedFlag

	if facts.AuditorRemarks == model.TriYes {
		flags = append(flags, model.RedFlag{
			Category:       model.CategoryGovernance,
			Severity:       model.SeverityHigh,
			Title:          "Revisoranmärkningar",
			Description:    "Revisorn har gjort anmärkningar i revisionsberättelsen.",
			Impact:         "Kan indikera brister i förvaltningen eller ekonomiska problem.",
			Recommendation: "Läs revisionsberättelsen noggrant och kräv förklaring från styrelsen.",
			Excerpt:        facts.AuditorReport,
		})
	}

	if facts.PriorAssessments == model.TriYes {
		flags = append(flags, model.RedFlag{
			Category:       model.CategoryGovernance,
			Severity:       model.SeverityMedium,
			Title:          "Tidigare uttaxeringar",
			Description:    "Föreningen har tidigare tagit ut extra avgifter från medlemmarna.",
			Impact:         "Indikerar bristfällig ekonomisk planering eller oförutsedda problem.",
			Recommendation: "Granska orsakerna och om liknande situation kan uppstå igen.",
		})
	}

	return flags
}

func checkLegal(facts *model.TextualFacts) []model.RedFlag {
	var flags []model.RedFlag

	if facts.OngoingDisputes == model.TriYes {
		flags = append(flags, model.RedFlag{
			Category:       model.CategoryLegal,
			Severity:       model.SeverityHigh,
			Title:          "Pågående juridiska ärenden",
			Description:    "Det finns pågående tvister eller juridiska processer.",
			Impact:         "Kan leda till oförutsedda kostnader och komplicera föreningens förvaltning.",
			Recommendation: "Begär detaljerad information om ärendets art, status och potentiella kostnader.",
		})
	}

	return flags
}
