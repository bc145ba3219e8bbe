package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/brfinsikt/brf-helper/internal/model"
)

// unknownAnswers are the ways the model says "not in the report". Any
// of these means nil, never zero.
var unknownAnswers = map[string]bool{
	"okänt":          true,
	"vet ej":         true,
	"uppgift saknas": true,
	"finns inte":     true,
	"ej angiven":     true,
	"unknown":        true,
}

var (
	numberRe    = regexp.MustCompile(`-?\d+\.?\d*`)
	yearRe      = regexp.MustCompile(`19\d{2}|20\d{2}`)
	apartmentRe = regexp.MustCompile(`(\d+)\s*(?:lägenheter|lägenhet|bostadsrätter)`)
	areaRe      = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:kvm|m2|kvadratmeter)`)
)

// ParseAmount extracts a SEK amount from a model answer. It strips
// Swedish currency suffixes and digit grouping, and rejects values that
// look like a year (1900-2100): those are almost always the model
// echoing the report year instead of an amount.
func ParseAmount(text string) *float64 {
	text = strings.TrimSpace(text)
	if text == "" || unknownAnswers[strings.ToLower(text)] {
		return nil
	}

	for _, suffix := range []string{" kr", " kronor", " SEK"} {
		text = strings.ReplaceAll(text, suffix, "")
	}
	text = strings.ReplaceAll(text, " ", "")
	text = strings.ReplaceAll(text, "\u00a0", "")
	text = strings.ReplaceAll(text, ",", ".")

	match := numberRe.FindString(text)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	if v >= 1900 && v <= 2100 {
		return nil
	}
	return &v
}

// ParsePercent is ParseAmount without the year guard: percentages live
// in a small range where the guard would reject nothing anyway, but
// solvency can legitimately never look like a year.
func ParsePercent(text string) *float64 {
	text = strings.TrimSpace(text)
	if text == "" || unknownAnswers[strings.ToLower(text)] {
		return nil
	}

	text = strings.ReplaceAll(text, "%", "")
	text = strings.ReplaceAll(text, " ", "")
	text = strings.ReplaceAll(text, ",", ".")

	match := numberRe.FindString(text)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseTriState maps a JA/NEJ answer to a three-valued fact. Anything
// that is not clearly yes or no is unknown.
func ParseTriState(text string) model.TriState {
	answer := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(answer, "ja"):
		return model.TriYes
	case strings.HasPrefix(answer, "nej"):
		return model.TriNo
	default:
		return model.TriUnknown
	}
}

// BuildingInfo holds the parsed parts of the free-form building answer.
type BuildingInfo struct {
	BuildingYear  *int
	NumApartments *int
	TotalArea     *float64
}

// ParseBuildingInfo pulls the construction year, apartment count and
// total area out of one combined answer.
func ParseBuildingInfo(text string) BuildingInfo {
	var info BuildingInfo
	if strings.TrimSpace(text) == "" {
		return info
	}

	if m := yearRe.FindString(text); m != "" {
		if year, err := strconv.Atoi(m); err == nil {
			info.BuildingYear = &year
		}
	}

	lower := strings.ToLower(text)
	if m := apartmentRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			info.NumApartments = &n
		}
	}

	compact := strings.ReplaceAll(lower, " ", "")
	if m := areaRe.FindStringSubmatch(compact); m != nil {
		if area, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			info.TotalArea = &area
		}
	}

	return info
}
