package search

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseResponseSnakeCase(t *testing.T) {
	raw := json.RawMessage(`{
		"average_price": 120.5,
		"median_price": 115,
		"min_price": 80,
		"max_price": 200,
		"results_count": 37,
		"products": [
			{"title": "Trek 820 26in Mountain Bike", "sale_price": 125.0, "date_sold": "2026-08-01", "url": "https://example.com/1"}
		]
	}`)

	p := ParseResponse(raw, 10)

	if p.Stats == nil {
		t.Fatal("Stats nil")
	}
	if p.Stats.Average == nil || *p.Stats.Average != 120.5 {
		t.Errorf("Average = %v", p.Stats.Average)
	}
	if p.Stats.Median == nil || *p.Stats.Median != 115 {
		t.Errorf("Median = %v", p.Stats.Median)
	}
	if p.ResultsCount != 37 {
		t.Errorf("ResultsCount = %d", p.ResultsCount)
	}
	if len(p.Comps) != 1 {
		t.Fatalf("Comps = %+v", p.Comps)
	}
	c := p.Comps[0]
	if c.Title != "Trek 820 26in Mountain Bike" || c.DateSold != "2026-08-01" || c.Link != "https://example.com/1" {
		t.Errorf("comp = %+v", c)
	}
	if price, ok := c.Price.(float64); !ok || price != 125.0 {
		t.Errorf("Price = %v", c.Price)
	}
}

func TestParseResponseCamelCaseAliases(t *testing.T) {
	raw := json.RawMessage(`{
		"averagePrice": 99.9,
		"resultsCount": 3,
		"items": [
			{"name": "Old Lamp", "price": "obo", "soldDate": "2026-07-15", "itemUrl": "https://example.com/2"}
		]
	}`)

	p := ParseResponse(raw, 10)

	if p.Stats == nil || p.Stats.Average == nil || *p.Stats.Average != 99.9 {
		t.Errorf("Stats = %+v", p.Stats)
	}
	if p.ResultsCount != 3 {
		t.Errorf("ResultsCount = %d", p.ResultsCount)
	}
	if len(p.Comps) != 1 {
		t.Fatalf("Comps = %+v", p.Comps)
	}
	c := p.Comps[0]
	if c.Title != "Old Lamp" || c.Price != "obo" || c.DateSold != "2026-07-15" || c.Link != "https://example.com/2" {
		t.Errorf("comp = %+v", c)
	}
}

func TestParseResponseNeverErrors(t *testing.T) {
	for name, raw := range map[string]json.RawMessage{
		"empty":        nil,
		"not json":     json.RawMessage(`<html>rate limited</html>`),
		"json array":   json.RawMessage(`[1,2,3]`),
		"empty object": json.RawMessage(`{}`),
		"wrong types":  json.RawMessage(`{"average_price": "high", "products": "none"}`),
	} {
		t.Run(name, func(t *testing.T) {
			p := ParseResponse(raw, 10)
			if p.Stats != nil || len(p.Comps) != 0 || p.ResultsCount != 0 {
				t.Errorf("junk input produced data: %+v", p)
			}
		})
	}
}

func TestParseResponseCountFallsBackToProducts(t *testing.T) {
	raw := json.RawMessage(`{"products": [{"title": "a"}, {"title": "b"}]}`)

	p := ParseResponse(raw, 10)
	if p.ResultsCount != 2 {
		t.Errorf("ResultsCount = %d, want 2", p.ResultsCount)
	}
}

func TestParseResponseCompDefaults(t *testing.T) {
	raw := json.RawMessage(`{"products": [{}, "not an object"]}`)

	p := ParseResponse(raw, 10)
	if len(p.Comps) != 1 {
		t.Fatalf("Comps = %+v", p.Comps)
	}
	c := p.Comps[0]
	if c.Title != "Unknown" || c.Price != "N/A" || c.DateSold != "N/A" || c.Link != "#" {
		t.Errorf("comp defaults = %+v", c)
	}
}

func TestParseResponseCapsComps(t *testing.T) {
	var products []string
	for i := 0; i < 15; i++ {
		products = append(products, `{"title": "item"}`)
	}
	raw := json.RawMessage(`{"products": [` + strings.Join(products, ",") + `]}`)

	p := ParseResponse(raw, 10)
	if len(p.Comps) != 10 {
		t.Errorf("len(Comps) = %d, want 10", len(p.Comps))
	}
	// The cap applies to the displayed comps, not the reported match count.
	if p.ResultsCount != 15 {
		t.Errorf("ResultsCount = %d, want 15", p.ResultsCount)
	}
}

func TestParseResponseTruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("z", 80)
	raw := json.RawMessage(`{"products": [{"title": "` + long + `"}]}`)

	p := ParseResponse(raw, 10)
	got := p.Comps[0].Title
	if len(got) != compTitleDisplayLen+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("Title = %q (len %d)", got, len(got))
	}

	// Multibyte titles truncate on rune boundaries.
	raw = json.RawMessage(`{"products": [{"title": "` + strings.Repeat("é", 80) + `"}]}`)
	got = ParseResponse(raw, 10).Comps[0].Title
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a UTF-8 sequence: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != compTitleDisplayLen+3 {
		t.Errorf("Title runes = %d, want %d", n, compTitleDisplayLen+3)
	}
}
