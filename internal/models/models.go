// Package models defines the domain types shared across the lookup pipeline.
package models

import (
	"encoding/json"
	"time"
)

// Listing is the record extracted from a classified-listing detail page.
// Fields are empty strings when the page did not provide them; Title is the
// only field the pipeline requires.
type Listing struct {
	Title       string   `json:"title"`
	Price       string   `json:"price,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Location    string   `json:"location,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// Aspect is a named product attribute used to narrow a marketplace search,
// e.g. {Name: "Frame Size", Value: "19in"}.
type Aspect struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SanitizedQuery is the trusted request body sent to the sold-items search
// service. Every field is guaranteed well-formed and bounded by the
// sanitizer regardless of what the AI produced. JSON tags match the
// upstream API's field names exactly.
type SanitizedQuery struct {
	Keywords         string   `json:"keywords"`
	ExcludedKeywords string   `json:"excluded_keywords,omitempty"`
	CategoryID       string   `json:"category_id,omitempty"`
	MaxSearchResults string   `json:"max_search_results"`
	RemoveOutliers   string   `json:"remove_outliers"`
	SiteID           string   `json:"site_id"`
	Aspects          []Aspect `json:"aspects,omitempty"`
}

// SearchStats holds price statistics over the matched sold items. A nil
// pointer means the upstream response did not carry that figure; values are
// never fabricated.
type SearchStats struct {
	Average *float64 `json:"average"`
	Median  *float64 `json:"median"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
}

// ComparableSale is one historical sold item used to estimate value.
// Price may be a number or free text depending on the upstream response.
type ComparableSale struct {
	Title    string `json:"title"`
	Price    any    `json:"price"`
	DateSold string `json:"date_sold"`
	Link     string `json:"link"`
}

// CacheEntry is the persisted result of one successful fresh lookup, keyed
// by page URL. Entries are replaced wholesale, never mutated in place.
// AIDiagnostics is opaque to the cache layer.
type CacheEntry struct {
	TimestampMs        int64           `json:"timestamp_ms"`
	ListingTitle       string          `json:"listing_title"`
	RequestBodyUsed    SanitizedQuery  `json:"request_body_used"`
	SearchResponseSlim json.RawMessage `json:"search_response_slim"`
	UsedAI             bool            `json:"used_ai"`
	ImageCount         int             `json:"image_count"`
	Confidence         *float64        `json:"confidence"`
	FallbackReason     string          `json:"fallback_reason,omitempty"`
	AIDiagnostics      json.RawMessage `json:"ai_diagnostics,omitempty"`
}

// Age returns how long ago the entry was written.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.TimestampMs))
}

// LookupStatus describes the terminal state of a lookup as shown to the
// renderer.
type LookupStatus string

const (
	StatusLoading   LookupStatus = "loading"
	StatusCached    LookupStatus = "cached"
	StatusFresh     LookupStatus = "fresh"
	StatusNoResults LookupStatus = "no_results"
	StatusError     LookupStatus = "error"
)

// DebugInfo carries the pipeline internals surfaced alongside results, so a
// renderer can explain how the query was derived.
type DebugInfo struct {
	RequestBody    SanitizedQuery  `json:"request_body"`
	UsedAI         bool            `json:"used_ai"`
	ImageCount     int             `json:"image_count"`
	Confidence     *float64        `json:"confidence"`
	FallbackReason string          `json:"fallback_reason,omitempty"`
	AIDiagnostics  json.RawMessage `json:"ai_diagnostics,omitempty"`
}

// LookupResult is the view-model consumed by renderers. It is the terminal
// output of one pipeline run, whether served from cache or fresh.
type LookupResult struct {
	LookupID      string           `json:"lookup_id"`
	Status        LookupStatus     `json:"status"`
	StatusMessage string           `json:"status_message"`
	Stats         *SearchStats     `json:"stats"`
	Comps         []ComparableSale `json:"comps"`
	ResultsCount  int              `json:"results_count"`
	Cached        bool             `json:"cached"`
	CacheAge      string           `json:"cache_age,omitempty"`
	Debug         DebugInfo        `json:"debug"`
}

// Credentials holds the two upstream API keys the pipeline depends on.
// Both are required before a lookup can start.
type Credentials struct {
	RapidAPIKey string `json:"rapidapi_key"`
	OpenAIKey   string `json:"openai_key"`
}

// Complete reports whether both keys are present.
func (c Credentials) Complete() bool {
	return c.RapidAPIKey != "" && c.OpenAIKey != ""
}
