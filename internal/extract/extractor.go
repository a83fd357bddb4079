// Package extract pulls a structured listing record out of a classified
// listing detail page. The pipeline treats the extractor as a
// collaborator: any implementation producing a models.Listing works, and
// callers may also supply a pre-extracted record and skip fetching
// entirely.
package extract

import (
	"context"
	"errors"

	"github.com/compsight/compsight-api/internal/models"
)

// ErrNoTitle signals an unusable page: the one field the pipeline cannot
// proceed without is missing. Terminal, never cached.
var ErrNoTitle = errors.New("could not extract listing title")

// ErrFetch signals that the listing page itself could not be retrieved.
// Callers use it to distinguish upstream fetch problems from internal
// failures.
var ErrFetch = errors.New("failed to fetch listing page")

// Extractor produces a listing record for a detail-page URL.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*models.Listing, error)
}
