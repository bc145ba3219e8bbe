package analysis

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/brfinsikt/brf-helper/internal/model"
)

// Fingerprint hashes the analysis input: metrics, textual facts and
// history. Two inputs with the same present fields and values hash
// identically regardless of how they were assembled, so a cached result
// is valid exactly as long as the fingerprint matches. Extraction
// provenance (method, timestamp) is excluded: a re-extraction that
// yields identical values must not invalidate the cache.
func Fingerprint(m *model.MetricsRecord, facts *model.TextualFacts, history []model.MetricsRecord) (string, error) {
	sorted := make([]model.MetricsRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		yi, yj := 0, 0
		if sorted[i].ReportYear != nil {
			yi = *sorted[i].ReportYear
		}
		if sorted[j].ReportYear != nil {
			yj = *sorted[j].ReportYear
		}
		return yi < yj
	})

	payload := map[string]any{}
	var err error
	if payload["metrics"], err = canonicalMetrics(m); err != nil {
		return "", err
	}
	if facts != nil {
		if payload["facts"], err = canonical(facts); err != nil {
			return "", err
		}
	}
	if len(sorted) > 0 {
		hs := make([]any, len(sorted))
		for i := range sorted {
			if hs[i], err = canonicalMetrics(&sorted[i]); err != nil {
				return "", err
			}
		}
		payload["history"] = hs
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", eris.Wrap(err, "analysis: marshal fingerprint payload")
	}

	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h), nil
}

// canonicalMetrics canonicalizes a record and strips the provenance
// fields that feed neither scoring nor flagging. DataQuality stays in:
// Sanitize derives a diagnostic flag from it.
func canonicalMetrics(m *model.MetricsRecord) (any, error) {
	v, err := canonical(m)
	if err != nil {
		return nil, err
	}
	if obj, ok := v.(map[string]any); ok {
		delete(obj, "extraction_method")
		delete(obj, "extracted_at")
	}
	return v, nil
}

// canonical round-trips a value through JSON into a map so that keys
// marshal in sorted order and omitted fields disappear entirely.
func canonical(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: canonicalize input")
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "analysis: canonicalize input")
	}
	return out, nil
}
