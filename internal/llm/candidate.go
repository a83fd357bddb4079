// Package llm calls the language-model service that turns a listing into a
// candidate marketplace query. The candidate is untrusted: the sanitizer,
// not this package, decides what survives.
package llm

import "encoding/json"

// CandidateQuery is the structured query as received from the model. Every
// field is deliberately typed `any`: even with a strict response schema the
// upstream payload is attacker-adjacent and may carry absent, wrong-typed
// or out-of-range values. Type checks belong to the sanitizer's gates.
type CandidateQuery struct {
	Keywords         any `json:"keywords"`
	ExcludedKeywords any `json:"excluded_keywords"`
	CategoryID       any `json:"category_id"`
	MaxSearchResults any `json:"max_search_results"`
	RemoveOutliers   any `json:"remove_outliers"`
	SiteID           any `json:"site_id"`
	Aspects          any `json:"aspects"`
	Confidence       any `json:"confidence"`
}

// Diagnostics records how the AI call went, success or failure. It is
// carried through to the renderer's debug view and into the cache entry;
// it never influences control flow beyond Candidate being nil.
type Diagnostics struct {
	Model         string          `json:"model"`
	ImageCount    int             `json:"image_count"`
	PromptPreview string          `json:"prompt_preview"`
	Error         string          `json:"error,omitempty"`
	RawResponse   json.RawMessage `json:"raw_response,omitempty"`
	Parsed        *CandidateQuery `json:"parsed_response,omitempty"`
}

// Result pairs the candidate (nil when the call failed at any stage) with
// its diagnostics. Diagnostics is always populated.
type Result struct {
	Candidate   *CandidateQuery `json:"candidate"`
	Diagnostics Diagnostics     `json:"diagnostics"`
}
