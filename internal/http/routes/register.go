// Package routes wires handlers to the Huma API.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/compsight/compsight-api/internal/http/handlers"
	"github.com/compsight/compsight-api/internal/http/mw"
)

// Register registers all API routes with the given Huma API instance.
func Register(api huma.API, h *handlers.Handlers) {
	// Health check
	mw.Get(api, "/api/v1/health", handlers.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithOperationID("healthCheck"))

	// Kubernetes probes (hidden from docs)
	mw.HiddenGet(api, "/healthz", handlers.Livez)
	mw.HiddenGet(api, "/readyz", h.Readyz.Readyz)

	// --- Lookups ---
	mw.Post(api, "/api/v1/lookup", h.Lookup.Lookup,
		mw.WithTags("Lookup"),
		mw.WithSummary("Estimate resale value"),
		mw.WithDescription("Extracts the listing at the given URL, derives a sold-items search query and returns price statistics with comparable sales. Results are cached per URL."),
		mw.WithOperationID("lookup"))
	mw.Delete(api, "/api/v1/lookup/cache", h.Lookup.ClearCache,
		mw.WithTags("Lookup"),
		mw.WithSummary("Clear cached lookup"),
		mw.WithOperationID("clearLookupCache"))

	// --- Settings ---
	mw.Get(api, "/api/v1/settings", h.Settings.GetSettings,
		mw.WithTags("Settings"),
		mw.WithSummary("Get credential status"),
		mw.WithOperationID("getSettings"))
	mw.Put(api, "/api/v1/settings", h.Settings.UpdateSettings,
		mw.WithTags("Settings"),
		mw.WithSummary("Update API credentials"),
		mw.WithOperationID("updateSettings"))
}
