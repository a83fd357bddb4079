package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/danielgtaylor/huma/v2"

	"github.com/compsight/compsight-api/internal/extract"
	"github.com/compsight/compsight-api/internal/models"
	"github.com/compsight/compsight-api/internal/service"
)

// fakeLookupRunner records calls and returns canned responses.
type fakeLookupRunner struct {
	result      *models.LookupResult
	err         error
	lastReq     service.LookupRequest
	clearedURLs []string
}

func (f *fakeLookupRunner) Lookup(ctx context.Context, req service.LookupRequest) (*models.LookupResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeLookupRunner) ClearCache(ctx context.Context, pageURL string) error {
	f.clearedURLs = append(f.clearedURLs, pageURL)
	return nil
}

func lookupInput(url string, force bool) *LookupInput {
	input := &LookupInput{}
	input.Body.URL = url
	input.Body.ForceRefresh = force
	return input
}

func TestLookupHandlerSuccess(t *testing.T) {
	runner := &fakeLookupRunner{result: &models.LookupResult{
		LookupID: "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Status:   models.StatusFresh,
	}}
	handler := NewLookupHandler(runner)

	output, err := handler.Lookup(context.Background(), lookupInput("https://example.org/listing/1", true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Body.Status != models.StatusFresh {
		t.Errorf("Status = %q, want fresh", output.Body.Status)
	}
	if !runner.lastReq.ForceRefresh {
		t.Error("ForceRefresh should be forwarded to the service")
	}
}

func TestLookupHandlerRejectsBadURL(t *testing.T) {
	handler := NewLookupHandler(&fakeLookupRunner{})

	for _, raw := range []string{"not a url at all://", "ftp://example.org/x", "/relative/path", "example.org/no-scheme"} {
		_, err := handler.Lookup(context.Background(), lookupInput(raw, false))
		if err == nil {
			t.Errorf("Lookup(%q) should fail", raw)
			continue
		}
		assertHumaStatus(t, err, 400)
	}
}

func TestLookupHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"missing credentials", service.ErrMissingCredentials, 412},
		{"no title", extract.ErrNoTitle, 422},
		{"fetch failure", fmt.Errorf("%w: connection refused", extract.ErrFetch), 502},
		{"internal failure", errors.New("settings read failed"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewLookupHandler(&fakeLookupRunner{err: tt.err})
			_, err := handler.Lookup(context.Background(), lookupInput("https://example.org/listing/2", false))
			if err == nil {
				t.Fatal("expected error")
			}
			assertHumaStatus(t, err, tt.wantStatus)
		})
	}
}

func TestClearCacheHandler(t *testing.T) {
	runner := &fakeLookupRunner{}
	handler := NewLookupHandler(runner)

	output, err := handler.ClearCache(context.Background(), &ClearCacheInput{URL: "https://example.org/listing/3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !output.Body.Cleared {
		t.Error("Cleared should be true")
	}
	if len(runner.clearedURLs) != 1 || runner.clearedURLs[0] != "https://example.org/listing/3" {
		t.Errorf("clearedURLs = %v", runner.clearedURLs)
	}
}

func TestClearCacheHandlerRejectsBadURL(t *testing.T) {
	handler := NewLookupHandler(&fakeLookupRunner{})

	_, err := handler.ClearCache(context.Background(), &ClearCacheInput{URL: "nope"})
	if err == nil {
		t.Fatal("expected error")
	}
	assertHumaStatus(t, err, 400)
}

func assertHumaStatus(t *testing.T, err error, want int) {
	t.Helper()
	var statusErr huma.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want huma.StatusError", err)
	}
	if statusErr.GetStatus() != want {
		t.Errorf("status = %d, want %d", statusErr.GetStatus(), want)
	}
}
