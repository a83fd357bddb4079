// Package prompt builds the AI request for deriving a marketplace query
// from a listing: fixed instructions, listing text, capped image
// attachments, and the strict response schema.
package prompt

import (
	"fmt"
	"strings"
)

// PreviewLen is how much of the user text is kept as a diagnostic preview.
// The preview is never used for control flow.
const PreviewLen = 800

// systemInstructions is the fixed system message. It asks for exact
// product identification and biases toward recall: a broad match is better
// than a missed item.
const systemInstructions = `You are a product identification expert. Analyze the provided classified listing (text and images) to create accurate marketplace search parameters for sold-item lookups.

Your task:
1. Identify the EXACT product: brand, model, variant, size, condition
2. Use images to verify/extract details not in the text (brand logos, model numbers, size labels)
3. Return JSON matching the provided schema

Be conservative: only include filters you're confident about. Better to match broadly than miss the item.`

// ImagePart is one photo attached to the prompt by URL. Detail is always
// "low" to bound token cost; low fidelity is enough for brand/model
// identification.
type ImagePart struct {
	URL    string
	Detail string
}

// Payload is the assembled AI request. Constructed fresh per lookup and
// never persisted.
type Payload struct {
	System     string
	UserText   string
	Images     []ImagePart
	Preview    string
	ImageCount int
}

// ListingFields is the subset of the listing the builder embeds in the
// user text. Empty fields are rendered as a literal "N/A".
type ListingFields struct {
	Title       string
	Price       string
	Category    string
	Location    string
	Description string
	Images      []string
}

// Builder converts listings into prompt payloads.
type Builder struct {
	maxImages int
}

// NewBuilder creates a Builder that attaches at most maxImages photos.
func NewBuilder(maxImages int) *Builder {
	return &Builder{maxImages: maxImages}
}

// Build assembles the payload for one listing. Images beyond the
// configured maximum are dropped in extraction order.
func (b *Builder) Build(listing ListingFields) Payload {
	hasImages := len(listing.Images) > 0

	imageHint := "No images available - rely on text only."
	if hasImages {
		imageHint = "IMAGES ARE PROVIDED - Use them to identify brand, model, size, and condition details that may not be in the text."
	}

	userText := fmt.Sprintf(`Create parameters for a marketplace sold-items query based on this classified listing.

%s

Rules:
- IMPORTANT: Extract brand and model from images if visible (logos, labels, stickers)
- For bicycles: look for brand name on frame, components (Shimano, SRAM), wheel size
- For electronics: look for brand logos, model numbers, storage capacity labels
- keywords should include: brand + model + key identifying features
- excluded_keywords: common irrelevant matches (e.g., "parts" "manual" "case" for phones)
- category_id: use the marketplace category ID if confident (e.g., "177831" for road bikes, "9355" for cell phones)
- aspects: include brand, model, size attributes when identifiable
- Prioritize recall over precision: prefer broader matching over restrictive filters
- Do not include the listing's asking price in keywords

Listing data:
Title: %s
Price: %s
Category: %s
Location: %s
Description: %s`,
		imageHint,
		orNA(listing.Title),
		orNA(listing.Price),
		orNA(listing.Category),
		orNA(listing.Location),
		orNA(listing.Description),
	)

	images := make([]ImagePart, 0, b.maxImages)
	for _, url := range listing.Images {
		if len(images) >= b.maxImages {
			break
		}
		if strings.TrimSpace(url) == "" {
			continue
		}
		images = append(images, ImagePart{URL: url, Detail: "low"})
	}

	preview := userText
	if len(preview) > PreviewLen {
		preview = preview[:PreviewLen]
	}

	return Payload{
		System:     systemInstructions,
		UserText:   userText,
		Images:     images,
		Preview:    preview,
		ImageCount: len(images),
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
