package sanitize

import "sync"

// Policy holds every tunable of the query pipeline in one place: the
// confidence gate, field caps, result-size enum, the aspect whitelist and
// the noise tokens stripped from titles. Values can be overridden at
// runtime from remote configuration (see config.PolicyLoader).
type Policy struct {
	// ConfidenceThreshold is the self-reported confidence below which the
	// AI candidate may set keywords but never category or aspect filters.
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// KeywordsMaxLen bounds SanitizedQuery.Keywords.
	KeywordsMaxLen int `json:"keywords_max_len"`

	// ExcludedKeywordsMaxLen bounds SanitizedQuery.ExcludedKeywords.
	ExcludedKeywordsMaxLen int `json:"excluded_keywords_max_len"`

	// AllowedMaxResults enumerates the accepted max_search_results values.
	AllowedMaxResults []string `json:"allowed_max_results"`

	// DefaultMaxResults is used when the candidate value is not in the enum.
	DefaultMaxResults string `json:"default_max_results"`

	// MaxImages caps how many listing photos are attached to the AI prompt.
	MaxImages int `json:"max_images"`

	// MaxComps caps how many comparable sales are kept from a search
	// response.
	MaxComps int `json:"max_comps"`

	// DescriptionMaxLen bounds the listing description fed to the prompt.
	DescriptionMaxLen int `json:"description_max_len"`

	// AspectsWhitelist enumerates the aspect names the sanitizer will pass
	// through to the search service.
	AspectsWhitelist []string `json:"aspects_whitelist"`

	// FluffTokens are seller-boilerplate phrases removed from titles before
	// they are used as baseline keywords.
	FluffTokens []string `json:"fluff_tokens"`
}

// DefaultPolicy returns the built-in pipeline policy.
func DefaultPolicy() Policy {
	return Policy{
		ConfidenceThreshold:    0.65,
		KeywordsMaxLen:         120,
		ExcludedKeywordsMaxLen: 200,
		AllowedMaxResults:      []string{"60", "120", "240"},
		DefaultMaxResults:      "240",
		MaxImages:              3,
		MaxComps:               10,
		DescriptionMaxLen:      1500,
		AspectsWhitelist: []string{
			// General
			"Model", "Brand", "LH_ItemCondition",
			// Electronics
			"Storage Capacity", "Network",
			// Bicycles
			"Frame Size", "Wheel Size", "Type", "Suspension Type",
			"Number of Gears", "Frame Material", "Brake Type", "Gender",
		},
		FluffTokens: []string{
			"obo", "o.b.o", "or best offer", "firm", "like new", "mint",
			"must sell", "need gone", "moving", "negotiable", "cash only",
			"no trades", "pick up only", "local only", "serious buyers",
			"serious inquiries", "price drop", "reduced", "priced to sell",
			"great deal", "steal", "rare", "hard to find", "htf",
		},
	}
}

// aspectAllowed reports whether name is in the whitelist.
func (p Policy) aspectAllowed(name string) bool {
	for _, a := range p.AspectsWhitelist {
		if a == name {
			return true
		}
	}
	return false
}

// maxResultsAllowed reports whether v is an accepted max_search_results
// value.
func (p Policy) maxResultsAllowed(v string) bool {
	for _, a := range p.AllowedMaxResults {
		if a == v {
			return true
		}
	}
	return false
}

// PolicyStore is a concurrency-safe holder for the active Policy. Remote
// configuration loaders replace the policy wholesale; readers always see a
// complete snapshot.
type PolicyStore struct {
	mu     sync.RWMutex
	policy Policy
}

// NewPolicyStore creates a store seeded with the given policy.
func NewPolicyStore(p Policy) *PolicyStore {
	return &PolicyStore{policy: p}
}

// Get returns the current policy snapshot.
func (s *PolicyStore) Get() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// Set replaces the current policy.
func (s *PolicyStore) Set(p Policy) {
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
}
