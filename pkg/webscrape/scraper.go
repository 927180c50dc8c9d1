package webscrape

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/internal/model"
)

// Paths probed when the landing page yields no email.
var contactPaths = []string{"/contacto", "/contact"}

const maxPageBytes = 2 << 20

// Scraper fetches hotel websites directly and extracts contact data. It is
// the website lookup fallback when no extract provider is configured.
type Scraper struct {
	http *http.Client
}

// Option configures the scraper.
type Option func(*Scraper)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Scraper) {
		s.http = hc
	}
}

// NewScraper creates a direct-fetch website scraper.
func NewScraper(opts ...Option) *Scraper {
	s := &Scraper{
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scrape fetches the site and extracts phones, emails, WhatsApp, and an
// Instagram profile. When the landing page has no email it probes common
// contact pages.
func (s *Scraper) Scrape(ctx context.Context, siteURL string) (*model.WebContact, error) {
	page, err := s.fetch(ctx, siteURL)
	if err != nil {
		return nil, err
	}

	contact := &model.WebContact{
		Phones:       ExtractPhones(page),
		WhatsApp:     ExtractWhatsApp(page),
		Emails:       ExtractEmails(page),
		InstagramURL: ExtractInstagramURL(page),
		SourceURL:    siteURL,
	}

	if len(contact.Emails) == 0 {
		base := strings.TrimSuffix(siteURL, "/")
		for _, path := range contactPaths {
			contactPage, err := s.fetch(ctx, base+path)
			if err != nil {
				zap.L().Debug("contact page fetch failed",
					zap.String("url", base+path),
					zap.Error(err),
				)
				continue
			}
			contact.Emails = ExtractEmails(contactPage)
			if len(contact.Phones) == 0 {
				contact.Phones = ExtractPhones(contactPage)
			}
			if contact.WhatsApp == "" {
				contact.WhatsApp = ExtractWhatsApp(contactPage)
			}
			if len(contact.Emails) > 0 {
				break
			}
		}
	}

	return contact, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "webscrape: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; hotel-enrichment)")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "webscrape: fetch page")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("webscrape: %s returned %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", eris.Wrap(err, "webscrape: read page")
	}
	return StripHTML(string(body)), nil
}
