package handlers

import (
	"context"
	"testing"

	"github.com/compsight/compsight-api/internal/service"
)

// fakeCredentialStore is an in-memory CredentialStore.
type fakeCredentialStore struct {
	openAIKey   string
	rapidAPIKey string
}

func (f *fakeCredentialStore) Status(ctx context.Context) (service.CredentialStatus, error) {
	return service.CredentialStatus{
		OpenAIConfigured:   f.openAIKey != "",
		RapidAPIConfigured: f.rapidAPIKey != "",
	}, nil
}

func (f *fakeCredentialStore) UpdateCredentials(ctx context.Context, openAIKey, rapidAPIKey string) error {
	if openAIKey != "" {
		f.openAIKey = openAIKey
	}
	if rapidAPIKey != "" {
		f.rapidAPIKey = rapidAPIKey
	}
	return nil
}

func TestGetSettings(t *testing.T) {
	handler := NewSettingsHandler(&fakeCredentialStore{openAIKey: "sk-test"})

	output, err := handler.GetSettings(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !output.Body.OpenAIConfigured {
		t.Error("OpenAIConfigured should be true")
	}
	if output.Body.RapidAPIConfigured {
		t.Error("RapidAPIConfigured should be false")
	}
}

func TestUpdateSettings(t *testing.T) {
	store := &fakeCredentialStore{}
	handler := NewSettingsHandler(store)

	input := &UpdateSettingsInput{}
	input.Body.RapidAPIKey = "rapid-123"

	output, err := handler.UpdateSettings(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !output.Body.RapidAPIConfigured {
		t.Error("RapidAPIConfigured should be true after update")
	}
	if store.rapidAPIKey != "rapid-123" {
		t.Errorf("stored key = %q", store.rapidAPIKey)
	}
}

func TestUpdateSettingsRequiresAKey(t *testing.T) {
	handler := NewSettingsHandler(&fakeCredentialStore{})

	_, err := handler.UpdateSettings(context.Background(), &UpdateSettingsInput{})
	if err == nil {
		t.Fatal("expected error for empty update")
	}
	assertHumaStatus(t, err, 400)
}
