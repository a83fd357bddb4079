package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/compsight/compsight-api/internal/config"
	"github.com/compsight/compsight-api/internal/models"
	"github.com/compsight/compsight-api/internal/repository"
)

// SettingsService resolves and updates the upstream API credentials.
// Stored values take precedence over environment-provided ones, so keys
// can be rotated through the API without a restart.
type SettingsService struct {
	cfg    *config.Config
	repo   repository.SettingsRepository
	logger *slog.Logger
}

// NewSettingsService creates a new settings service.
func NewSettingsService(cfg *config.Config, repo repository.SettingsRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		cfg:    cfg,
		repo:   repo,
		logger: logger.With("component", "settings"),
	}
}

// Credentials returns the effective upstream API keys.
func (s *SettingsService) Credentials(ctx context.Context) (models.Credentials, error) {
	openAIKey, err := s.repo.Get(ctx, repository.SettingOpenAIKey)
	if err != nil {
		return models.Credentials{}, err
	}
	rapidAPIKey, err := s.repo.Get(ctx, repository.SettingRapidAPIKey)
	if err != nil {
		return models.Credentials{}, err
	}

	if openAIKey == "" {
		openAIKey = s.cfg.OpenAIKey
	}
	if rapidAPIKey == "" {
		rapidAPIKey = s.cfg.RapidAPIKey
	}

	return models.Credentials{
		OpenAIKey:   openAIKey,
		RapidAPIKey: rapidAPIKey,
	}, nil
}

// UpdateCredentials stores new API keys. Empty values leave the existing
// key untouched.
func (s *SettingsService) UpdateCredentials(ctx context.Context, openAIKey, rapidAPIKey string) error {
	if openAIKey != "" {
		if err := s.repo.Set(ctx, repository.SettingOpenAIKey, openAIKey, true); err != nil {
			return fmt.Errorf("failed to store OpenAI key: %w", err)
		}
		s.logger.Info("OpenAI key updated")
	}
	if rapidAPIKey != "" {
		if err := s.repo.Set(ctx, repository.SettingRapidAPIKey, rapidAPIKey, true); err != nil {
			return fmt.Errorf("failed to store RapidAPI key: %w", err)
		}
		s.logger.Info("RapidAPI key updated")
	}
	return nil
}

// CredentialStatus reports which keys are configured without exposing
// their values.
type CredentialStatus struct {
	OpenAIConfigured   bool `json:"openai_configured"`
	RapidAPIConfigured bool `json:"rapidapi_configured"`
}

// Status returns the presence of each credential.
func (s *SettingsService) Status(ctx context.Context) (CredentialStatus, error) {
	creds, err := s.Credentials(ctx)
	if err != nil {
		return CredentialStatus{}, err
	}
	return CredentialStatus{
		OpenAIConfigured:   creds.OpenAIKey != "",
		RapidAPIConfigured: creds.RapidAPIKey != "",
	}, nil
}
