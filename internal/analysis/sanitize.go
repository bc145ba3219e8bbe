package analysis

import (
	"github.com/brfinsikt/brf-helper/internal/model"
)

// Sanitize drops fields whose values fall outside their physical
// domain, returning a copy and the names of the removed fields. An
// out-of-domain value is treated exactly like a missing one: extraction
// noise must degrade the analysis, never poison it.
func Sanitize(m *model.MetricsRecord) (*model.MetricsRecord, []string) {
	s := *m
	var removed []string

	if s.TotalAssets != nil && *s.TotalAssets < 0 {
		s.TotalAssets = nil
		removed = append(removed, "total_assets")
	}
	if s.SolvencyRatio != nil && (*s.SolvencyRatio < -100 || *s.SolvencyRatio > 100) {
		s.SolvencyRatio = nil
		removed = append(removed, "solvency_ratio")
	}
	if s.NumApartments != nil && *s.NumApartments < 0 {
		s.NumApartments = nil
		removed = append(removed, "num_apartments")
	}
	if s.TotalArea != nil && *s.TotalArea < 0 {
		s.TotalArea = nil
		removed = append(removed, "total_area")
	}
	if s.BuildingYear != nil && (*s.BuildingYear < 1800 || *s.BuildingYear > 2100) {
		s.BuildingYear = nil
		removed = append(removed, "building_year")
	}
	if s.MonthlyFeePerSqm != nil && *s.MonthlyFeePerSqm < 0 {
		s.MonthlyFeePerSqm = nil
		removed = append(removed, "monthly_fee_per_sqm")
	}
	if s.DataQuality != nil && (*s.DataQuality < 0 || *s.DataQuality > 1) {
		s.DataQuality = nil
		removed = append(removed, "data_quality")
	}

	return &s, removed
}
