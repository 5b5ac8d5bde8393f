package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// Article is the identity of an article: its original URL, stripped of
// archive wrapping. Uniqueness is by URL.
type Article struct {
	ID  int64
	URL string
}

// NewArticle validates and constructs an Article.
func NewArticle(rawURL string) (*Article, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	return &Article{URL: rawURL}, nil
}

// ArticleSnapshot is an article as it appeared on one front page: a headline
// and the archive-wrapped URL it was linked from, together with the
// underlying Article identity.
type ArticleSnapshot struct {
	Title    string
	URL      string
	Original Article
}

// NewArticleSnapshot builds an ArticleSnapshot from a title and an anchor
// href as found in a captured page. The href may be relative to
// web.archive.org, scheme-less, or already absolute; all three forms are
// normalised the same way the archive itself produces them.
func NewArticleSnapshot(title, href string) (*ArticleSnapshot, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &ValidationError{Field: "title", Message: "title must not be empty"}
	}

	absolute, err := cleanWebArchiveURL(href)
	if err != nil {
		return nil, fmt.Errorf("clean web archive url: %w", err)
	}
	if err := ValidateURL(absolute); err != nil {
		return nil, fmt.Errorf("article snapshot url: %w", err)
	}

	original := extractURLFromWebArchive(absolute)
	article, err := NewArticle(original)
	if err != nil {
		return nil, fmt.Errorf("article snapshot original url: %w", err)
	}

	return &ArticleSnapshot{Title: strings.TrimSpace(title), URL: absolute, Original: *article}, nil
}

// cleanWebArchiveURL mirrors the original extractor's normalisation: a
// relative path is resolved against web.archive.org, a scheme-less URL gets
// https, anything else is left untouched.
func cleanWebArchiveURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}

	if !parsed.IsAbs() {
		base, err := url.Parse("https://web.archive.org")
		if err != nil {
			return "", err
		}
		return base.ResolveReference(parsed).String(), nil
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
		return parsed.String(), nil
	}
	return parsed.String(), nil
}

// extractURLFromWebArchive pulls the original article URL out of a
// web.archive.org wrapper URL, e.g.
// http://web.archive.org/web/20240522114811/https://example.com/a -> https://example.com/a
func extractURLFromWebArchive(wrapped string) string {
	parsed, err := url.Parse(wrapped)
	if err != nil {
		return wrapped
	}
	if parsed.Host != "web.archive.org" {
		return wrapped
	}
	parts := strings.SplitN(strings.TrimPrefix(parsed.Path, "/"), "/", 3)
	if len(parts) < 3 {
		return wrapped
	}
	return parts[2]
}

// TopArticle links a FrontPage to an ArticleSnapshot with its 1-based rank
// among that page's top articles.
type TopArticle struct {
	Article ArticleSnapshot
	Rank    int
}

// NewTopArticle validates rank and constructs a TopArticle.
func NewTopArticle(title, href string, rank int) (*TopArticle, error) {
	if rank < 1 {
		return nil, &ValidationError{Field: "rank", Message: "rank must be >= 1"}
	}
	snap, err := NewArticleSnapshot(title, href)
	if err != nil {
		return nil, err
	}
	return &TopArticle{Article: *snap, Rank: rank}, nil
}

// MainArticle links a FrontPage to the single article it visually elevates.
type MainArticle struct {
	Article        ArticleSnapshot
	IsLive         *bool
	IsHighlighted  *bool
}

// NewMainArticle constructs a MainArticle.
func NewMainArticle(title, href string) (*MainArticle, error) {
	snap, err := NewArticleSnapshot(title, href)
	if err != nil {
		return nil, err
	}
	return &MainArticle{Article: *snap}, nil
}

// FrontPage is a snapshot of a site's home page at a given scheduled time:
// the main article plus the ordered list of top articles.
type FrontPage struct {
	Snapshot     Snapshot
	MainArticle  MainArticle
	TopArticles  []TopArticle
}

// Validate enforces the rank-sequencing invariant: ranks form a strict
// increasing sequence starting at 1 with no gaps, matching whatever the
// extractor returned in order.
func (fp *FrontPage) Validate() error {
	for i, t := range fp.TopArticles {
		if t.Rank != i+1 {
			return &ValidationError{
				Field:   "top_articles",
				Message: fmt.Sprintf("rank at position %d is %d, expected %d", i, t.Rank, i+1),
			}
		}
	}
	return nil
}
