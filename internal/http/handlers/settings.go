package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/compsight/compsight-api/internal/service"
)

// CredentialStore is the settings dependency of the settings handler.
type CredentialStore interface {
	Status(ctx context.Context) (service.CredentialStatus, error)
	UpdateCredentials(ctx context.Context, openAIKey, rapidAPIKey string) error
}

// SettingsHandler manages upstream API credentials.
type SettingsHandler struct {
	settingsSvc CredentialStore
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settingsSvc CredentialStore) *SettingsHandler {
	return &SettingsHandler{settingsSvc: settingsSvc}
}

// GetSettingsOutput reports which credentials are configured. Key values
// are never returned.
type GetSettingsOutput struct {
	Body service.CredentialStatus
}

// GetSettings returns the configuration state of the upstream API keys.
func (h *SettingsHandler) GetSettings(ctx context.Context, input *struct{}) (*GetSettingsOutput, error) {
	status, err := h.settingsSvc.Status(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read settings")
	}
	return &GetSettingsOutput{Body: status}, nil
}

// UpdateSettingsInput carries new credential values. Empty fields leave
// the existing key unchanged.
type UpdateSettingsInput struct {
	Body struct {
		OpenAIKey   string `json:"openai_key,omitempty" doc:"OpenAI API key"`
		RapidAPIKey string `json:"rapidapi_key,omitempty" doc:"RapidAPI key for the sold-items search"`
	}
}

// UpdateSettings stores new upstream API keys.
func (h *SettingsHandler) UpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*GetSettingsOutput, error) {
	if input.Body.OpenAIKey == "" && input.Body.RapidAPIKey == "" {
		return nil, huma.Error400BadRequest("provide at least one of 'openai_key' or 'rapidapi_key'")
	}

	if err := h.settingsSvc.UpdateCredentials(ctx, input.Body.OpenAIKey, input.Body.RapidAPIKey); err != nil {
		return nil, huma.Error500InternalServerError("failed to store settings")
	}

	status, err := h.settingsSvc.Status(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read settings")
	}
	return &GetSettingsOutput{Body: status}, nil
}
