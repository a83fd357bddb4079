// Package sanitize validates the untrusted AI candidate query and produces
// the bounded, well-formed request body sent to the paid search service.
// It is the pipeline's trust boundary: whatever the model returned, the
// output of Sanitize is always safe to submit.
package sanitize

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/compsight/compsight-api/internal/llm"
	"github.com/compsight/compsight-api/internal/models"
)

// Fallback reasons reported in Outcome.FallbackReason. The prefix names
// which gate rejected the candidate.
const (
	ReasonNoResponse      = "openai_no_response"
	reasonErrorPrefix     = "openai_error: "
	reasonKeywordsMissing = "invalid_keywords: missing or not string"
	reasonKeywordsLength  = "invalid_keywords: length %d"
	reasonPanicPrefix     = "sanitization_error: "
)

var digitsOnlyRe = regexp.MustCompile(`^\d+$`)

// Outcome is the sanitizer's discriminated result. UsedFallback is true
// whenever any gate rejected the candidate; FallbackReason then names the
// failing gate. Confidence is nil when the candidate carried no numeric
// confidence.
type Outcome struct {
	Query          models.SanitizedQuery
	UsedFallback   bool
	FallbackReason string
	Confidence     *float64
	Diagnostics    *llm.Diagnostics
}

// Sanitizer applies the gate chain under the currently active policy.
type Sanitizer struct {
	policies *PolicyStore
}

// New creates a Sanitizer reading its policy from the given store.
func New(policies *PolicyStore) *Sanitizer {
	return &Sanitizer{policies: policies}
}

// Baseline returns the deterministic fallback query derived only from the
// normalized listing title. It carries no optional fields, so it can never
// over-narrow a search.
func (s *Sanitizer) Baseline(normalizedTitle string) models.SanitizedQuery {
	p := s.policies.Get()
	keywords := normalizedTitle
	if keywords == "" {
		keywords = "item"
	}
	return models.SanitizedQuery{
		Keywords:         truncate(keywords, p.KeywordsMaxLen),
		MaxSearchResults: p.DefaultMaxResults,
		RemoveOutliers:   "true",
		SiteID:           "0",
	}
}

// Sanitize runs the ordered gate chain over the AI result. The first
// failing gate is terminal and yields the baseline query; once keywords
// pass, the query is built field by field and each remaining field fails
// independently to its default rather than failing the whole candidate.
//
// Below the confidence threshold, category and aspects are never populated
// no matter how well-formed they are: a low-confidence identification may
// set broad keywords but must not narrow the search. Keywords themselves
// are trusted at any confidence once well-formed; that asymmetry favours
// recall and is deliberate.
func (s *Sanitizer) Sanitize(res *llm.Result, normalizedTitle string) (out Outcome) {
	p := s.policies.Get()
	baseline := s.Baseline(normalizedTitle)

	// Gate 1: no AI outcome at all.
	if res == nil {
		return Outcome{
			Query:          baseline,
			UsedFallback:   true,
			FallbackReason: ReasonNoResponse,
		}
	}

	diag := res.Diagnostics

	// Gate 2: the AI call itself failed.
	if res.Candidate == nil {
		reason := diag.Error
		if reason == "" {
			reason = "unknown"
		}
		return Outcome{
			Query:          baseline,
			UsedFallback:   true,
			FallbackReason: reasonErrorPrefix + reason,
			Diagnostics:    &diag,
		}
	}

	c := res.Candidate
	confidence := numericConfidence(c.Confidence)

	// Catch-all for anything the explicit gates missed: a panic during
	// construction degrades to the baseline instead of propagating.
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				Query:          baseline,
				UsedFallback:   true,
				FallbackReason: reasonPanicPrefix + fmt.Sprint(r),
				Diagnostics:    &diag,
			}
		}
	}()

	// Gate 3: keywords present and text-typed.
	keywords, ok := c.Keywords.(string)
	if !ok || keywords == "" {
		return Outcome{
			Query:          baseline,
			UsedFallback:   true,
			FallbackReason: reasonKeywordsMissing,
			Confidence:     confidence,
			Diagnostics:    &diag,
		}
	}

	// Gate 4: keywords length within bounds. Lengths are counted in runes
	// so multibyte titles are not penalized.
	if n := utf8.RuneCountInString(keywords); n > p.KeywordsMaxLen {
		return Outcome{
			Query:          baseline,
			UsedFallback:   true,
			FallbackReason: fmt.Sprintf(reasonKeywordsLength, n),
			Confidence:     confidence,
			Diagnostics:    &diag,
		}
	}

	// From here the candidate cannot fail wholesale; fields are validated
	// independently with per-field defaults.
	conf := 0.0
	if confidence != nil {
		conf = *confidence
	}
	lowConfidence := conf < p.ConfidenceThreshold

	query := models.SanitizedQuery{
		Keywords:         truncate(keywords, p.KeywordsMaxLen),
		MaxSearchResults: p.DefaultMaxResults,
		RemoveOutliers:   "true",
		SiteID:           "0",
	}

	if v, ok := c.MaxSearchResults.(string); ok && p.maxResultsAllowed(v) {
		query.MaxSearchResults = v
	}

	if b, ok := c.RemoveOutliers.(bool); ok {
		if b {
			query.RemoveOutliers = "true"
		} else {
			query.RemoveOutliers = "false"
		}
	}

	if v, ok := c.ExcludedKeywords.(string); ok {
		excluded := truncate(v, p.ExcludedKeywordsMaxLen)
		if !isBlank(excluded) {
			query.ExcludedKeywords = excluded
		}
	}

	if !lowConfidence {
		if v, ok := c.CategoryID.(string); ok && digitsOnlyRe.MatchString(v) {
			query.CategoryID = v
		}
		if aspects := filterAspects(c.Aspects, p); len(aspects) > 0 {
			query.Aspects = aspects
		}
	}

	return Outcome{
		Query:       query,
		Confidence:  &conf,
		Diagnostics: &diag,
	}
}

// filterAspects keeps only entries with text-typed name and value whose
// name is on the whitelist. Anything else in the sequence, including
// non-object entries, is dropped silently.
func filterAspects(raw any, p Policy) []models.Aspect {
	seq, ok := raw.([]any)
	if !ok || len(seq) == 0 {
		return nil
	}
	var out []models.Aspect
	for _, item := range seq {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, nameOK := obj["name"].(string)
		value, valueOK := obj["value"].(string)
		if !nameOK || !valueOK || !p.aspectAllowed(name) {
			continue
		}
		out = append(out, models.Aspect{Name: name, Value: value})
	}
	return out
}

// numericConfidence returns the confidence as a pointer when it is a JSON
// number, nil otherwise.
func numericConfidence(raw any) *float64 {
	if f, ok := raw.(float64); ok {
		return &f
	}
	return nil
}

// truncate cuts s to at most max runes, never splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
