package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/compsight/compsight-api/internal/models"
	"github.com/compsight/compsight-api/internal/normalize"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	priceRe     = regexp.MustCompile(`\$[\d,]+`)
	qrCaptionRe = regexp.MustCompile(`(?i)QR Code Link to This Post`)
	thumbSizeRe = regexp.MustCompile(`50x50c|300x300`)
)

// CraigslistConfig configures the Craigslist extractor.
type CraigslistConfig struct {
	MaxImages         int
	DescriptionMaxLen int
	Timeout           time.Duration
	UserAgent         string
	Normalizer        *normalize.Normalizer
	Logger            *slog.Logger
}

// Craigslist extracts listing records from Craigslist posting pages.
type Craigslist struct {
	maxImages  int
	descMaxLen int
	timeout    time.Duration
	userAgent  string
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

// NewCraigslist creates the extractor.
func NewCraigslist(cfg CraigslistConfig) *Craigslist {
	if cfg.MaxImages == 0 {
		cfg.MaxImages = 3
	}
	if cfg.DescriptionMaxLen == 0 {
		cfg.DescriptionMaxLen = 1500
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = normalize.New(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Craigslist{
		maxImages:  cfg.MaxImages,
		descMaxLen: cfg.DescriptionMaxLen,
		timeout:    cfg.Timeout,
		userAgent:  cfg.UserAgent,
		normalizer: cfg.Normalizer,
		logger:     cfg.Logger,
	}
}

// page collects raw fields while colly walks the document.
type page struct {
	title       string
	h1Title     string
	priceText   string
	bodyText    string
	description string
	crumbs      []string
	location    string
	attrSpans   []string
	mainImage   string
	thumbImages []string
	dataImages  []string
	bodyImages  []string
}

// Extract fetches the page and assembles a listing record. Returns
// ErrNoTitle when neither the title element nor an h1 yields text.
func (x *Craigslist) Extract(ctx context.Context, pageURL string) (*models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p page

	c := colly.NewCollector(
		colly.UserAgent(x.userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(x.timeout)

	c.OnHTML("#titletextonly", func(e *colly.HTMLElement) {
		if p.title == "" {
			p.title = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML("h1", func(e *colly.HTMLElement) {
		if p.h1Title == "" {
			p.h1Title = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML(".price", func(e *colly.HTMLElement) {
		if p.priceText == "" {
			p.priceText = e.Text
		}
	})
	c.OnHTML("body", func(e *colly.HTMLElement) {
		p.bodyText = e.Text
	})
	c.OnHTML("#postingbody", func(e *colly.HTMLElement) {
		if p.description == "" {
			p.description = e.Text
		}
		for _, src := range e.ChildAttrs("img", "src") {
			p.bodyImages = append(p.bodyImages, src)
		}
	})
	c.OnHTML(".breadcrumbs", func(e *colly.HTMLElement) {
		if len(p.crumbs) == 0 {
			p.crumbs = e.ChildTexts("a")
		}
	})
	c.OnHTML(".postingtitletext small, .postingtitle small", func(e *colly.HTMLElement) {
		if p.location == "" {
			p.location = strings.TrimSpace(e.Text)
		}
	})
	c.OnHTML(".attrgroup span", func(e *colly.HTMLElement) {
		p.attrSpans = append(p.attrSpans, strings.TrimSpace(e.Text))
	})
	c.OnHTML(".gallery .thumb, #thumbs a", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if href == "" {
			href = e.Attr("data-imgid")
		}
		if href != "" && strings.Contains(href, "craigslist") {
			p.thumbImages = append(p.thumbImages, href)
		}
	})
	c.OnHTML(".gallery .slide img, .swipe img", func(e *colly.HTMLElement) {
		if p.mainImage == "" {
			p.mainImage = e.Attr("src")
		}
	})
	c.OnHTML(".gallery", func(e *colly.HTMLElement) {
		attr := e.Attr("data-imgids")
		if attr == "" {
			attr = e.Attr("data-imgs")
		}
		if attr != "" {
			p.dataImages = append(p.dataImages, parseImageData(attr)...)
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err)
	}

	listing := &models.Listing{
		Title:       x.extractTitle(&p),
		Price:       extractPrice(&p),
		Description: x.extractDescription(&p),
		Category:    extractCategory(&p),
		Location:    extractLocation(&p),
		Images:      x.extractImages(&p),
	}

	if listing.Title == "" {
		return nil, ErrNoTitle
	}

	x.logger.Debug("extracted listing",
		"url", pageURL,
		"title", listing.Title,
		"price", listing.Price,
		"image_count", len(listing.Images),
	)
	return listing, nil
}

func (x *Craigslist) extractTitle(p *page) string {
	if p.title != "" {
		return x.normalizer.Normalize(p.title)
	}
	if p.h1Title != "" {
		return x.normalizer.Normalize(p.h1Title)
	}
	return ""
}

// extractPrice prefers the dedicated price element, then the first
// $<digits> pattern anywhere in the page text.
func extractPrice(p *page) string {
	if m := priceRe.FindString(p.priceText); m != "" {
		return m
	}
	return priceRe.FindString(p.bodyText)
}

func (x *Craigslist) extractDescription(p *page) string {
	text := qrCaptionRe.ReplaceAllString(p.description, "")
	text = normalize.CollapseWhitespace(text)
	if len(text) > x.descMaxLen {
		text = text[:x.descMaxLen] + "..."
	}
	return text
}

// extractCategory joins the breadcrumb trail, skipping separators and the
// site name.
func extractCategory(p *page) string {
	var categories []string
	for _, crumb := range p.crumbs {
		t := strings.TrimSpace(crumb)
		if t == "" || t == ">" || strings.EqualFold(t, "craigslist") {
			continue
		}
		categories = append(categories, t)
	}
	return strings.Join(categories, " > ")
}

func extractLocation(p *page) string {
	if p.location != "" {
		return strings.TrimSpace(strings.NewReplacer("(", "", ")", "").Replace(p.location))
	}
	for _, span := range p.attrSpans {
		if strings.Contains(strings.ToLower(span), "location") {
			return span
		}
	}
	return ""
}

// extractImages orders the main gallery image first, then thumbnails
// upgraded to full size, then any images declared in gallery data
// attributes; posting-body images are a last resort. Duplicates are
// dropped and the result capped at maxImages.
func (x *Craigslist) extractImages(p *page) []string {
	var images []string
	seen := make(map[string]bool)
	add := func(url string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		images = append(images, url)
	}

	if p.mainImage != "" {
		add(thumbSizeRe.ReplaceAllString(p.mainImage, "600x450"))
	}
	for _, href := range p.thumbImages {
		add(thumbSizeRe.ReplaceAllString(href, "600x450"))
	}
	for _, url := range p.dataImages {
		add(url)
	}
	if len(images) == 0 {
		for _, src := range p.bodyImages {
			add(src)
		}
	}

	if len(images) > x.maxImages {
		images = images[:x.maxImages]
	}
	return images
}

// parseImageData decodes the gallery's data-imgids JSON attribute, which
// holds either URL strings or {url: ...} objects. Parse errors yield nil.
func parseImageData(attr string) []string {
	var items []any
	if err := json.Unmarshal([]byte(attr), &items); err != nil {
		return nil
	}
	var urls []string
	for _, item := range items {
		switch v := item.(type) {
		case string:
			urls = append(urls, v)
		case map[string]any:
			if u, ok := v["url"].(string); ok {
				urls = append(urls, u)
			}
		}
	}
	return urls
}
