// Package extractor turns an archived front-page HTML body into a
// entity.FrontPage, one goquery-based extractor per site, dispatched by
// site name. Each extractor only pulls a title and a URL out of the page;
// full-article content extraction is out of scope.
package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"media-observer/internal/domain/entity"
)

// ErrUnsupportedSite is returned by Parse when no extractor is registered
// for a site name.
var ErrUnsupportedSite = fmt.Errorf("no extractor registered for site")

// Func extracts a FrontPage's main and top articles from a parsed document.
type Func func(doc *goquery.Document) (mainTitle, mainURL string, top []topArticleHTML, err error)

type topArticleHTML struct {
	Title string
	URL   string
}

var registry = map[string]Func{
	"le_monde":       parseLeMonde,
	"france_tv_info": parseFranceTvInfo,
	"cnews":          parseCNews,
	"bfmtv":          parseBfmTv,
	"le_parisien":    parseLeParisien,
	"le_figaro":      parseLeFigaro,
	"tf1_info":       parseTf1Info,
}

// Registered reports whether a site name has an extractor.
func Registered(siteName string) bool {
	_, ok := registry[siteName]
	return ok
}

// Parse dispatches to the extractor registered for snapshot's site and
// builds a FrontPage from the result.
func Parse(siteName string, snapshot entity.Snapshot) (*entity.FrontPage, error) {
	fn, ok := registry[siteName]
	if !ok {
		return nil, fmt.Errorf("%s: %w", siteName, ErrUnsupportedSite)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot.Text))
	if err != nil {
		return nil, fmt.Errorf("parse html for %s: %w", siteName, err)
	}

	mainTitle, mainURL, topRaw, err := fn(doc)
	if err != nil {
		return nil, fmt.Errorf("extract %s front page: %w", siteName, err)
	}

	main, err := entity.NewMainArticle(mainTitle, mainURL)
	if err != nil {
		return nil, fmt.Errorf("main article: %w", err)
	}

	top := make([]entity.TopArticle, 0, len(topRaw))
	for i, a := range topRaw {
		t, err := entity.NewTopArticle(a.Title, a.URL, i+1)
		if err != nil {
			return nil, fmt.Errorf("top article %d: %w", i+1, err)
		}
		top = append(top, *t)
	}

	return &entity.FrontPage{
		Snapshot:    snapshot,
		MainArticle: *main,
		TopArticles: top,
	}, nil
}

func stripped(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
