// Package news fetches recent energy-sector headlines from RSS feeds.
// Feed failures degrade to an empty article list, matching the rest of
// the system's always-answer contract.
package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/energyprice/internal/infra"
)

// DefaultFeedURL is the EIA "Today in Energy" feed.
const DefaultFeedURL = "https://www.eia.gov/rss/todayinenergy.xml"

// Article is one feed item with the HTML stripped out of the summary.
type Article struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
}

// Feed fetches and caches energy news articles.
type Feed struct {
	url     string
	name    string
	cache   *infra.Cache
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
}

// NewFeed creates a feed reader for the given RSS URL.
func NewFeed(url string, ttl time.Duration) *Feed {
	if url == "" {
		url = DefaultFeedURL
	}
	return &Feed{
		url:     url,
		name:    "EIA Today in Energy",
		cache:   infra.NewCache(ttl),
		limiter: infra.NewRateLimiter(2, time.Second),
		parser:  gofeed.NewParser(),
	}
}

// Recent returns up to limit recent articles, newest first.
func (f *Feed) Recent(ctx context.Context, limit int) ([]Article, error) {
	cacheKey := fmt.Sprintf("news:%d", limit)
	if cached, ok := f.cache.Get(cacheKey); ok {
		return cached.([]Article), nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", f.url, err)
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := Article{
			Title:   item.Title,
			URL:     item.Link,
			Source:  f.name,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}

	sortByDate(articles)
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	f.cache.Set(cacheKey, articles)
	return articles, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// sortByDate sorts articles newest first. Insertion sort, feeds are small.
func sortByDate(articles []Article) {
	for i := 1; i < len(articles); i++ {
		key := articles[i]
		j := i - 1
		for j >= 0 && articles[j].PublishedAt.Before(key.PublishedAt) {
			articles[j+1] = articles[j]
			j--
		}
		articles[j+1] = key
	}
}
