package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

const defaultPageBaseURL = "https://open.spotify.com"

// Scraper reads the Open Graph tags of the public track page. It needs no
// credentials, at the cost of depending on page markup.
type Scraper struct {
	httpClient *http.Client
	baseURL    string
}

func NewScraper(httpClient *http.Client, baseURL string) *Scraper {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultPageBaseURL
	}
	return &Scraper{httpClient: httpClient, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *Scraper) Track(ctx context.Context, trackID string) (*TrackInfo, error) {
	span := sentry.StartSpan(ctx, "spotify.scrape_track")
	span.Description = "Scrape Spotify track page"
	span.SetTag("track_id", trackID)
	defer span.Finish()

	pageURL := fmt.Sprintf("%s/track/%s", s.baseURL, trackID)
	req, err := http.NewRequestWithContext(span.Context(), http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; jukebox/1.0)")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.Status = sentry.SpanStatusUnavailable
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		span.Status = sentry.SpanStatusNotFound
		return nil, ErrTrackNotFound
	}
	if resp.StatusCode != http.StatusOK {
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("spotify page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	info, err := parseTrackPage(doc)
	if err != nil {
		log.Warnf("Spotify page for %s had no usable metadata: %v", trackID, err)
		span.Status = sentry.SpanStatusNotFound
		return nil, err
	}

	span.Status = sentry.SpanStatusOK
	return info, nil
}

func parseTrackPage(doc *goquery.Document) (*TrackInfo, error) {
	title := metaContent(doc, "og:title")
	if title == "" {
		return nil, errors.New("missing og:title")
	}

	info := &TrackInfo{
		Title: title,
		Image: metaContent(doc, "og:image"),
	}

	// og:description reads "Artist · Album · Song · 2009"
	if desc := metaContent(doc, "og:description"); desc != "" {
		if artist := strings.TrimSpace(strings.Split(desc, "·")[0]); artist != "" && artist != desc {
			info.Artists = []string{artist}
		}
	}
	if len(info.Artists) == 0 {
		if artist := metaContent(doc, "music:musician_description"); artist != "" {
			info.Artists = []string{artist}
		}
	}
	return info, nil
}

func metaContent(doc *goquery.Document, property string) string {
	selector := fmt.Sprintf(`meta[property="%s"], meta[name="%s"]`, property, property)
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}
