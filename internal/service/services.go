// Package service contains the business logic layer.
package service

import (
	"log/slog"

	"github.com/compsight/compsight-api/internal/config"
	"github.com/compsight/compsight-api/internal/extract"
	"github.com/compsight/compsight-api/internal/llm"
	"github.com/compsight/compsight-api/internal/normalize"
	"github.com/compsight/compsight-api/internal/prompt"
	"github.com/compsight/compsight-api/internal/repository"
	"github.com/compsight/compsight-api/internal/sanitize"
	"github.com/compsight/compsight-api/internal/search"
)

// Services holds all service instances.
type Services struct {
	Lookup   *LookupService
	Settings *SettingsService
	Cleanup  *CleanupService
	Policies *sanitize.PolicyStore
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) (*Services, error) {
	policies := sanitize.NewPolicyStore(sanitize.DefaultPolicy())
	policy := policies.Get()

	normalizer := normalize.New(policy.FluffTokens)
	builder := prompt.NewBuilder(policy.MaxImages)
	sanitizer := sanitize.New(policies)

	llmClient := llm.NewClient(llm.ClientConfig{
		APIURL: cfg.OpenAIURL,
		Model:  cfg.OpenAIModel,
		Logger: logger,
	})

	searchClient := search.NewClient(search.ClientConfig{
		APIURL:  cfg.SearchURL,
		APIHost: cfg.SearchHost,
		Logger:  logger,
	})

	extractor := extract.NewCraigslist(extract.CraigslistConfig{
		MaxImages:         policy.MaxImages,
		DescriptionMaxLen: policy.DescriptionMaxLen,
		Normalizer:        normalizer,
		Logger:            logger,
	})

	settingsSvc := NewSettingsService(cfg, repos.Settings, logger)

	lookupSvc := NewLookupService(LookupServiceConfig{
		Extractor:  extractor,
		Normalizer: normalizer,
		Builder:    builder,
		Generator:  llmClient,
		Sanitizer:  sanitizer,
		Searcher:   searchClient,
		Cache:      repos.Cache,
		Settings:   settingsSvc,
		Policies:   policies,
		CacheTTL:   cfg.CacheTTL,
		Logger:     logger,
	})

	cleanupSvc := NewCleanupService(repos.Cache, cfg.CacheTTL, logger)

	return &Services{
		Lookup:   lookupSvc,
		Settings: settingsSvc,
		Cleanup:  cleanupSvc,
		Policies: policies,
	}, nil
}
