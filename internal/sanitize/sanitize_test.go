package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/compsight/compsight-api/internal/llm"
)

func newTestSanitizer() *Sanitizer {
	return New(NewPolicyStore(DefaultPolicy()))
}

func candidateResult(c *llm.CandidateQuery) *llm.Result {
	return &llm.Result{
		Candidate:   c,
		Diagnostics: llm.Diagnostics{Model: "gpt-4o-mini"},
	}
}

func TestBaseline(t *testing.T) {
	s := newTestSanitizer()

	q := s.Baseline("Trek Mountain Bike")
	if q.Keywords != "Trek Mountain Bike" {
		t.Errorf("Keywords = %q", q.Keywords)
	}
	if q.MaxSearchResults != "240" || q.RemoveOutliers != "true" || q.SiteID != "0" {
		t.Errorf("baseline defaults wrong: %+v", q)
	}
	if q.CategoryID != "" || q.ExcludedKeywords != "" || q.Aspects != nil {
		t.Errorf("baseline must carry no optional fields: %+v", q)
	}

	// Empty title falls back to a generic keyword.
	if got := s.Baseline("").Keywords; got != "item" {
		t.Errorf("Baseline(\"\").Keywords = %q, want item", got)
	}
}

func TestSanitizeNilResult(t *testing.T) {
	s := newTestSanitizer()

	out := s.Sanitize(nil, "Trek Mountain Bike")
	if !out.UsedFallback {
		t.Fatal("nil result must fall back")
	}
	if out.FallbackReason != ReasonNoResponse {
		t.Errorf("FallbackReason = %q", out.FallbackReason)
	}
	if out.Query.Keywords != "Trek Mountain Bike" {
		t.Errorf("Keywords = %q, want baseline title", out.Query.Keywords)
	}
}

func TestSanitizeCallFailure(t *testing.T) {
	s := newTestSanitizer()

	out := s.Sanitize(&llm.Result{
		Diagnostics: llm.Diagnostics{Error: "OpenAI API error: 429"},
	}, "Trek Mountain Bike")
	if !out.UsedFallback {
		t.Fatal("nil candidate must fall back")
	}
	if out.FallbackReason != "openai_error: OpenAI API error: 429" {
		t.Errorf("FallbackReason = %q", out.FallbackReason)
	}

	// No recorded error detail still yields a definite reason.
	out = s.Sanitize(&llm.Result{}, "Trek Mountain Bike")
	if out.FallbackReason != "openai_error: unknown" {
		t.Errorf("FallbackReason = %q", out.FallbackReason)
	}
}

func TestSanitizeKeywordsMissingOrWrongType(t *testing.T) {
	s := newTestSanitizer()

	for name, keywords := range map[string]any{
		"absent": nil,
		"number": float64(42),
		"array":  []any{"trek"},
		"empty":  "",
	} {
		t.Run(name, func(t *testing.T) {
			out := s.Sanitize(candidateResult(&llm.CandidateQuery{Keywords: keywords}), "Trek Mountain Bike")
			if !out.UsedFallback {
				t.Fatal("expected fallback")
			}
			if out.FallbackReason != "invalid_keywords: missing or not string" {
				t.Errorf("FallbackReason = %q", out.FallbackReason)
			}
		})
	}
}

func TestSanitizeKeywordsTooLong(t *testing.T) {
	s := newTestSanitizer()
	long := strings.Repeat("x", 121)

	out := s.Sanitize(candidateResult(&llm.CandidateQuery{Keywords: long}), "Trek Mountain Bike")
	if !out.UsedFallback {
		t.Fatal("expected fallback")
	}
	if out.FallbackReason != "invalid_keywords: length 121" {
		t.Errorf("FallbackReason = %q", out.FallbackReason)
	}
	if out.Query.Keywords != "Trek Mountain Bike" {
		t.Errorf("Keywords = %q, want baseline", out.Query.Keywords)
	}
}

func TestSanitizeAcceptedHighConfidence(t *testing.T) {
	s := newTestSanitizer()

	out := s.Sanitize(candidateResult(&llm.CandidateQuery{
		Keywords:         "trek 820 mountain bike",
		ExcludedKeywords: "parts repair broken",
		CategoryID:       "177831",
		MaxSearchResults: "120",
		RemoveOutliers:   false,
		Aspects: []any{
			map[string]any{"name": "Brand", "value": "Trek"},
			map[string]any{"name": "Wheel Size", "value": "26in"},
		},
		Confidence: float64(0.9),
	}), "Trek Mountain Bike")

	if out.UsedFallback {
		t.Fatalf("unexpected fallback: %s", out.FallbackReason)
	}
	q := out.Query
	if q.Keywords != "trek 820 mountain bike" {
		t.Errorf("Keywords = %q", q.Keywords)
	}
	if q.ExcludedKeywords != "parts repair broken" {
		t.Errorf("ExcludedKeywords = %q", q.ExcludedKeywords)
	}
	if q.CategoryID != "177831" {
		t.Errorf("CategoryID = %q", q.CategoryID)
	}
	if q.MaxSearchResults != "120" {
		t.Errorf("MaxSearchResults = %q", q.MaxSearchResults)
	}
	if q.RemoveOutliers != "false" {
		t.Errorf("RemoveOutliers = %q", q.RemoveOutliers)
	}
	if len(q.Aspects) != 2 {
		t.Errorf("Aspects = %+v", q.Aspects)
	}
	if out.Confidence == nil || *out.Confidence != 0.9 {
		t.Errorf("Confidence = %v", out.Confidence)
	}
}

func TestSanitizeLowConfidenceDropsNarrowingFields(t *testing.T) {
	s := newTestSanitizer()

	out := s.Sanitize(candidateResult(&llm.CandidateQuery{
		Keywords:   "trek 820 mountain bike",
		CategoryID: "177831",
		Aspects: []any{
			map[string]any{"name": "Brand", "value": "Trek"},
		},
		Confidence: float64(0.4),
	}), "Trek Mountain Bike")

	if out.UsedFallback {
		t.Fatalf("unexpected fallback: %s", out.FallbackReason)
	}
	// Keywords go through even at low confidence.
	if out.Query.Keywords != "trek 820 mountain bike" {
		t.Errorf("Keywords = %q", out.Query.Keywords)
	}
	if out.Query.CategoryID != "" {
		t.Error("CategoryID must be dropped below the confidence threshold")
	}
	if out.Query.Aspects != nil {
		t.Error("Aspects must be dropped below the confidence threshold")
	}
}

func TestSanitizeMissingConfidenceTreatedAsLow(t *testing.T) {
	s := newTestSanitizer()

	out := s.Sanitize(candidateResult(&llm.CandidateQuery{
		Keywords:   "trek 820 mountain bike",
		CategoryID: "177831",
		Confidence: "very sure",
	}), "Trek Mountain Bike")

	if out.UsedFallback {
		t.Fatalf("unexpected fallback: %s", out.FallbackReason)
	}
	if out.Query.CategoryID != "" {
		t.Error("non-numeric confidence must not enable narrowing fields")
	}
	if out.Confidence == nil || *out.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", out.Confidence)
	}
}

func TestSanitizePerFieldDefaults(t *testing.T) {
	s := newTestSanitizer()

	out := s.Sanitize(candidateResult(&llm.CandidateQuery{
		Keywords:         "iphone 13 pro",
		CategoryID:       "not-digits",
		MaxSearchResults: "9999",
		RemoveOutliers:   "yes",
		ExcludedKeywords: "   ",
		Aspects:          "Brand=Apple",
		Confidence:       float64(0.95),
	}), "iPhone 13 Pro")

	if out.UsedFallback {
		t.Fatalf("unexpected fallback: %s", out.FallbackReason)
	}
	q := out.Query
	if q.CategoryID != "" {
		t.Errorf("non-numeric CategoryID kept: %q", q.CategoryID)
	}
	if q.MaxSearchResults != "240" {
		t.Errorf("out-of-enum MaxSearchResults = %q, want default", q.MaxSearchResults)
	}
	if q.RemoveOutliers != "true" {
		t.Errorf("non-bool RemoveOutliers = %q, want default", q.RemoveOutliers)
	}
	if q.ExcludedKeywords != "" {
		t.Errorf("blank ExcludedKeywords kept: %q", q.ExcludedKeywords)
	}
	if q.Aspects != nil {
		t.Errorf("non-array Aspects kept: %+v", q.Aspects)
	}
}

func TestSanitizeAspectWhitelist(t *testing.T) {
	s := newTestSanitizer()

	out := s.Sanitize(candidateResult(&llm.CandidateQuery{
		Keywords: "specialized road bike",
		Aspects: []any{
			map[string]any{"name": "Frame Size", "value": "54cm"},
			map[string]any{"name": "Color", "value": "red"},
			map[string]any{"name": "Brand", "value": float64(7)},
			"not an object",
			map[string]any{"value": "orphan"},
		},
		Confidence: float64(0.8),
	}), "Specialized Road Bike")

	if len(out.Query.Aspects) != 1 {
		t.Fatalf("Aspects = %+v, want only the whitelisted well-formed entry", out.Query.Aspects)
	}
	if out.Query.Aspects[0].Name != "Frame Size" || out.Query.Aspects[0].Value != "54cm" {
		t.Errorf("Aspects[0] = %+v", out.Query.Aspects[0])
	}
}

func TestSanitizeLengthsCountRunes(t *testing.T) {
	s := newTestSanitizer()

	// 120 two-byte runes: within the limit even though the byte length is
	// double it.
	keywords := strings.Repeat("é", 120)
	out := s.Sanitize(candidateResult(&llm.CandidateQuery{Keywords: keywords}), "Vélo")
	if out.UsedFallback {
		t.Fatalf("unexpected fallback: %s", out.FallbackReason)
	}
	if out.Query.Keywords != keywords {
		t.Errorf("Keywords = %q", out.Query.Keywords)
	}

	out = s.Sanitize(candidateResult(&llm.CandidateQuery{Keywords: strings.Repeat("é", 121)}), "Vélo")
	if out.FallbackReason != "invalid_keywords: length 121" {
		t.Errorf("FallbackReason = %q", out.FallbackReason)
	}
}

func TestSanitizeTruncationKeepsValidUTF8(t *testing.T) {
	s := newTestSanitizer()

	out := s.Sanitize(candidateResult(&llm.CandidateQuery{
		Keywords:         "vélo",
		ExcludedKeywords: strings.Repeat("é", 250),
		Confidence:       float64(0.8),
	}), "Vélo")

	excluded := out.Query.ExcludedKeywords
	if !utf8.ValidString(excluded) {
		t.Error("truncation split a UTF-8 sequence")
	}
	if n := utf8.RuneCountInString(excluded); n != 200 {
		t.Errorf("ExcludedKeywords runes = %d, want 200", n)
	}
}

func TestSanitizeTruncatesExcludedKeywords(t *testing.T) {
	s := newTestSanitizer()
	long := strings.Repeat("a", 250)

	out := s.Sanitize(candidateResult(&llm.CandidateQuery{
		Keywords:         "camera",
		ExcludedKeywords: long,
		Confidence:       float64(0.8),
	}), "Camera")

	if len(out.Query.ExcludedKeywords) != 200 {
		t.Errorf("ExcludedKeywords length = %d, want 200", len(out.Query.ExcludedKeywords))
	}
}

func TestPolicyStoreSwap(t *testing.T) {
	store := NewPolicyStore(DefaultPolicy())
	s := New(store)

	strict := DefaultPolicy()
	strict.ConfidenceThreshold = 0.99
	store.Set(strict)

	out := s.Sanitize(candidateResult(&llm.CandidateQuery{
		Keywords:   "trek 820",
		CategoryID: "177831",
		Confidence: float64(0.9),
	}), "Trek 820")

	if out.Query.CategoryID != "" {
		t.Error("raised threshold should gate the category")
	}
}
