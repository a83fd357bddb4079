package handlers

import (
	"context"
	"errors"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/compsight/compsight-api/internal/extract"
	"github.com/compsight/compsight-api/internal/models"
	"github.com/compsight/compsight-api/internal/service"
)

// LookupRunner is the orchestration dependency of the lookup handler.
type LookupRunner interface {
	Lookup(ctx context.Context, req service.LookupRequest) (*models.LookupResult, error)
	ClearCache(ctx context.Context, pageURL string) error
}

// LookupHandler handles resale value lookups.
type LookupHandler struct {
	lookupSvc LookupRunner
}

// NewLookupHandler creates a new lookup handler.
func NewLookupHandler(lookupSvc LookupRunner) *LookupHandler {
	return &LookupHandler{lookupSvc: lookupSvc}
}

// LookupInput represents a lookup request.
type LookupInput struct {
	Body struct {
		URL          string          `json:"url" minLength:"1" format:"uri" doc:"Listing page URL to estimate"`
		ForceRefresh bool            `json:"force_refresh,omitempty" doc:"Bypass the cache and run a fresh lookup"`
		Listing      *models.Listing `json:"listing,omitempty" doc:"Pre-extracted listing record; when set the page is not fetched"`
	}
}

// LookupOutput represents a lookup response.
type LookupOutput struct {
	Body models.LookupResult
}

// Lookup runs the estimation pipeline for a listing page URL.
func (h *LookupHandler) Lookup(ctx context.Context, input *LookupInput) (*LookupOutput, error) {
	pageURL := input.Body.URL
	if !validPageURL(pageURL) {
		return nil, huma.Error400BadRequest("'url' must be an absolute http or https URL")
	}

	result, err := h.lookupSvc.Lookup(ctx, service.LookupRequest{
		PageURL:      pageURL,
		ForceRefresh: input.Body.ForceRefresh,
		Listing:      input.Body.Listing,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			return nil, huma.Error412PreconditionFailed("API keys are not configured; set them via the settings endpoint")
		case errors.Is(err, extract.ErrNoTitle):
			return nil, huma.Error422UnprocessableEntity("page does not look like a listing (no title found)")
		case errors.Is(err, extract.ErrFetch):
			return nil, huma.Error502BadGateway("failed to read listing page")
		default:
			return nil, huma.Error500InternalServerError("lookup failed")
		}
	}

	return &LookupOutput{Body: *result}, nil
}

// ClearCacheInput identifies the cached lookup to remove.
type ClearCacheInput struct {
	URL string `query:"url" required:"true" doc:"Listing page URL whose cached result should be removed"`
}

// ClearCacheOutput confirms cache removal.
type ClearCacheOutput struct {
	Body struct {
		Cleared bool `json:"cleared"`
	}
}

// ClearCache removes the cached result for a listing URL.
func (h *LookupHandler) ClearCache(ctx context.Context, input *ClearCacheInput) (*ClearCacheOutput, error) {
	if !validPageURL(input.URL) {
		return nil, huma.Error400BadRequest("'url' must be an absolute http or https URL")
	}

	if err := h.lookupSvc.ClearCache(ctx, input.URL); err != nil {
		return nil, huma.Error500InternalServerError("failed to clear cached lookup")
	}

	out := &ClearCacheOutput{}
	out.Body.Cleared = true
	return out, nil
}

func validPageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
