package search

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/compsight/compsight-api/internal/models"
)

// The upstream schema is inconsistent about field names. Each logical
// field has an ordered alias list, tried in fixed priority; the first
// present alias wins and everything else defaults. Keeping the aliases in
// one place makes the mapping policy auditable and testable in isolation.
var (
	averageAliases  = []string{"average_price", "averagePrice"}
	medianAliases   = []string{"median_price", "medianPrice"}
	minAliases      = []string{"min_price", "minPrice"}
	maxAliases      = []string{"max_price", "maxPrice"}
	productsAliases = []string{"products", "items", "results"}
	countAliases    = []string{"results_count", "resultsCount", "total"}

	compTitleAliases = []string{"title", "name"}
	compPriceAliases = []string{"sale_price", "salePrice", "price"}
	compDateAliases  = []string{"date_sold", "dateSold", "soldDate"}
	compLinkAliases  = []string{"url", "link", "itemUrl"}
)

// compTitleDisplayLen is the display truncation applied to comp titles.
const compTitleDisplayLen = 60

// Parsed is the canonical form of a search response. Stats is nil when the
// response carried no price figures at all.
type Parsed struct {
	Stats        *models.SearchStats
	Comps        []models.ComparableSale
	ResultsCount int
}

// ParseResponse maps a raw search response to canonical stats and comps.
// It never fails: junk input, missing fields and misnamed keys all degrade
// to nils, defaults and an empty comps list. The comps order is preserved
// from upstream and capped at maxComps.
func ParseResponse(raw json.RawMessage, maxComps int) Parsed {
	var data map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &data) != nil {
		return Parsed{}
	}

	var parsed Parsed
	stats := models.SearchStats{
		Average: firstNumber(data, averageAliases),
		Median:  firstNumber(data, medianAliases),
		Min:     firstNumber(data, minAliases),
		Max:     firstNumber(data, maxAliases),
	}
	if stats.Average != nil || stats.Median != nil || stats.Min != nil || stats.Max != nil {
		parsed.Stats = &stats
	}

	products, _ := firstValue(data, productsAliases).([]any)
	for _, item := range products {
		if len(parsed.Comps) >= maxComps {
			break
		}
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		parsed.Comps = append(parsed.Comps, models.ComparableSale{
			Title:    truncateTitle(firstString(obj, compTitleAliases, "Unknown")),
			Price:    firstNonNil(obj, compPriceAliases, "N/A"),
			DateSold: firstString(obj, compDateAliases, "N/A"),
			Link:     firstString(obj, compLinkAliases, "#"),
		})
	}

	if count := firstNumber(data, countAliases); count != nil {
		parsed.ResultsCount = int(*count)
	} else {
		parsed.ResultsCount = len(products)
	}

	return parsed
}

// firstValue returns the first present alias value, nil when none match.
func firstValue(m map[string]any, aliases []string) any {
	for _, key := range aliases {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// firstNumber returns the first alias carrying a JSON number, nil when
// none do. Missing fields map to nil, never to a fabricated zero.
func firstNumber(m map[string]any, aliases []string) *float64 {
	for _, key := range aliases {
		if f, ok := m[key].(float64); ok {
			return &f
		}
	}
	return nil
}

// firstString returns the first alias carrying a non-empty string, or the
// fallback.
func firstString(m map[string]any, aliases []string, fallback string) string {
	for _, key := range aliases {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// firstNonNil returns the first alias present with any non-nil value, or
// the fallback. Used for fields like price that may legitimately be a
// number or free text.
func firstNonNil(m map[string]any, aliases []string, fallback any) any {
	if v := firstValue(m, aliases); v != nil {
		return v
	}
	return fallback
}

// truncateTitle cuts to the display length in runes so multibyte titles are
// never split mid-sequence.
func truncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= compTitleDisplayLen {
		return title
	}
	return string([]rune(title)[:compTitleDisplayLen]) + "..."
}
