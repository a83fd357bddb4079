package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/compsight/compsight-api/internal/extract"
	"github.com/compsight/compsight-api/internal/llm"
	"github.com/compsight/compsight-api/internal/models"
	"github.com/compsight/compsight-api/internal/normalize"
	"github.com/compsight/compsight-api/internal/prompt"
	"github.com/compsight/compsight-api/internal/repository"
	"github.com/compsight/compsight-api/internal/sanitize"
	"github.com/compsight/compsight-api/internal/search"
)

// ErrMissingCredentials is returned when a lookup is requested before both
// upstream API keys are configured.
var ErrMissingCredentials = errors.New("upstream API keys are not configured")

// QueryGenerator produces an AI query candidate for a prompt payload.
// Implementations never return a Go error; failures surface as a nil
// candidate with diagnostics.
type QueryGenerator interface {
	GenerateQuery(ctx context.Context, payload prompt.Payload, apiKey string) *llm.Result
}

// Searcher runs a sold-items search and returns the raw response body.
type Searcher interface {
	Search(ctx context.Context, query models.SanitizedQuery, apiKey string) (json.RawMessage, error)
}

// StatusSink receives progress updates as a lookup moves through the
// pipeline. Updates are advisory; sinks must not block.
type StatusSink interface {
	Publish(lookupID string, status models.LookupStatus, message string)
}

type nopSink struct{}

func (nopSink) Publish(string, models.LookupStatus, string) {}

// LookupServiceConfig wires the pipeline stages into the orchestrator.
type LookupServiceConfig struct {
	Extractor  extract.Extractor
	Normalizer *normalize.Normalizer
	Builder    *prompt.Builder
	Generator  QueryGenerator
	Sanitizer  *sanitize.Sanitizer
	Searcher   Searcher
	Cache      repository.CacheRepository
	Settings   *SettingsService
	Policies   *sanitize.PolicyStore
	CacheTTL   time.Duration
	Sink       StatusSink
	Logger     *slog.Logger
}

// LookupService orchestrates the full estimation pipeline: extract the
// listing, derive a search query (AI with deterministic fallback), run the
// sold-items search and cache the outcome keyed by page URL.
type LookupService struct {
	extractor  extract.Extractor
	normalizer *normalize.Normalizer
	builder    *prompt.Builder
	generator  QueryGenerator
	sanitizer  *sanitize.Sanitizer
	searcher   Searcher
	cache      repository.CacheRepository
	settings   *SettingsService
	policies   *sanitize.PolicyStore
	cacheTTL   time.Duration
	sink       StatusSink
	logger     *slog.Logger
	now        func() time.Time
}

// NewLookupService creates the lookup orchestrator.
func NewLookupService(cfg LookupServiceConfig) *LookupService {
	sink := cfg.Sink
	if sink == nil {
		sink = nopSink{}
	}
	return &LookupService{
		extractor:  cfg.Extractor,
		normalizer: cfg.Normalizer,
		builder:    cfg.Builder,
		generator:  cfg.Generator,
		sanitizer:  cfg.Sanitizer,
		searcher:   cfg.Searcher,
		cache:      cfg.Cache,
		settings:   cfg.Settings,
		policies:   cfg.Policies,
		cacheTTL:   cfg.CacheTTL,
		sink:       sink,
		logger:     cfg.Logger.With("component", "lookup"),
		now:        time.Now,
	}
}

// LookupRequest describes one estimation request. When Listing is set the
// page fetch is skipped and the supplied record is used as-is; the caller
// has already extracted it.
type LookupRequest struct {
	PageURL      string
	ForceRefresh bool
	Listing      *models.Listing
}

// Lookup runs the pipeline for a listing page URL. A valid cache entry
// short-circuits everything unless ForceRefresh is set. Upstream search
// failures are reported in the result's status, not as a Go error; errors
// are reserved for conditions the caller must handle differently (missing
// credentials, unusable page).
func (s *LookupService) Lookup(ctx context.Context, req LookupRequest) (*models.LookupResult, error) {
	lookupID := newLookupID()
	log := s.logger.With("lookup_id", lookupID, "url", req.PageURL)

	creds, err := s.settings.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}

	policy := s.policies.Get()

	if !req.ForceRefresh {
		entry, err := s.cache.Get(ctx, req.PageURL, s.cacheTTL)
		if err != nil {
			log.Warn("cache read failed, proceeding with fresh lookup", "error", err)
		} else if entry != nil {
			log.Info("serving cached lookup", "age", entry.Age(s.now()).String())
			return s.resultFromEntry(lookupID, entry, policy.MaxComps), nil
		}
	}

	s.sink.Publish(lookupID, models.StatusLoading, "Reading listing...")

	listing := req.Listing
	if listing == nil {
		var err error
		listing, err = s.extractor.Extract(ctx, req.PageURL)
		if err != nil {
			return nil, err
		}
	} else if listing.Title == "" {
		return nil, extract.ErrNoTitle
	}

	normalizedTitle := s.normalizer.Normalize(listing.Title)

	s.sink.Publish(lookupID, models.StatusLoading, "Identifying product...")

	payload := s.builder.Build(prompt.ListingFields{
		Title:       normalizedTitle,
		Price:       listing.Price,
		Category:    listing.Category,
		Location:    listing.Location,
		Description: listing.Description,
		Images:      listing.Images,
	})

	aiResult := s.generator.GenerateQuery(ctx, payload, creds.OpenAIKey)
	outcome := s.sanitizer.Sanitize(aiResult, normalizedTitle)

	if outcome.UsedFallback {
		log.Info("using baseline query", "reason", outcome.FallbackReason)
	}

	s.sink.Publish(lookupID, models.StatusLoading, "Checking sold prices...")

	raw, err := s.searcher.Search(ctx, outcome.Query, creds.RapidAPIKey)
	if err != nil {
		// Upstream search failure is a terminal lookup state. Nothing is
		// cached so the next attempt retries the search.
		log.Warn("sold-items search failed", "error", err)
		return &models.LookupResult{
			LookupID:      lookupID,
			Status:        models.StatusError,
			StatusMessage: "Price lookup failed. Try again later.",
			Debug:         debugInfo(outcome, payload.ImageCount),
		}, nil
	}

	entry := &models.CacheEntry{
		TimestampMs:        s.now().UnixMilli(),
		ListingTitle:       normalizedTitle,
		RequestBodyUsed:    outcome.Query,
		SearchResponseSlim: raw,
		UsedAI:             !outcome.UsedFallback,
		ImageCount:         payload.ImageCount,
		Confidence:         outcome.Confidence,
		FallbackReason:     outcome.FallbackReason,
		AIDiagnostics:      marshalDiagnostics(outcome.Diagnostics),
	}

	if err := s.cache.Set(ctx, req.PageURL, entry); err != nil {
		log.Warn("cache write failed", "error", err)
	}

	result := s.resultFromEntry(lookupID, entry, policy.MaxComps)
	result.Cached = false
	result.CacheAge = ""
	if result.Status == models.StatusCached {
		result.Status = models.StatusFresh
	}

	log.Info("lookup completed",
		"status", result.Status,
		"results_count", result.ResultsCount,
		"used_ai", entry.UsedAI,
	)

	return result, nil
}

// ClearCache removes the cached result for a page URL.
func (s *LookupService) ClearCache(ctx context.Context, pageURL string) error {
	return s.cache.Delete(ctx, pageURL)
}

// resultFromEntry renders a cache entry into the view-model. Entries store
// the slim upstream response, so stats and comps are re-derived here under
// the current comp cap.
func (s *LookupService) resultFromEntry(lookupID string, entry *models.CacheEntry, maxComps int) *models.LookupResult {
	parsed := search.ParseResponse(entry.SearchResponseSlim, maxComps)

	status := models.StatusCached
	message := "Estimated from recent sold listings."
	if parsed.ResultsCount == 0 {
		status = models.StatusNoResults
		message = "No sold listings found for this item."
	}

	return &models.LookupResult{
		LookupID:      lookupID,
		Status:        status,
		StatusMessage: message,
		Stats:         parsed.Stats,
		Comps:         parsed.Comps,
		ResultsCount:  parsed.ResultsCount,
		Cached:        true,
		CacheAge:      FormatAge(entry.Age(s.now())),
		Debug: models.DebugInfo{
			RequestBody:    entry.RequestBodyUsed,
			UsedAI:         entry.UsedAI,
			ImageCount:     entry.ImageCount,
			Confidence:     entry.Confidence,
			FallbackReason: entry.FallbackReason,
			AIDiagnostics:  entry.AIDiagnostics,
		},
	}
}

func debugInfo(outcome sanitize.Outcome, imageCount int) models.DebugInfo {
	return models.DebugInfo{
		RequestBody:    outcome.Query,
		UsedAI:         !outcome.UsedFallback,
		ImageCount:     imageCount,
		Confidence:     outcome.Confidence,
		FallbackReason: outcome.FallbackReason,
		AIDiagnostics:  marshalDiagnostics(outcome.Diagnostics),
	}
}

func marshalDiagnostics(d *llm.Diagnostics) json.RawMessage {
	if d == nil {
		return nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	return data
}

// FormatAge renders a duration the way the cache age is shown to users:
// whole days, then hours, then minutes, then "just now".
func FormatAge(age time.Duration) string {
	switch {
	case age >= 24*time.Hour:
		days := int(age.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case age >= time.Hour:
		hours := int(age.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case age >= time.Minute:
		minutes := int(age.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	default:
		return "just now"
	}
}

func newLookupID() string {
	return ulid.Make().String()
}
