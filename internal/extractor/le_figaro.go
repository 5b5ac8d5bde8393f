package extractor

import "github.com/PuerkitoBio/goquery"

// parseLeFigaro has no top-articles view on the front page; only the main
// article is extracted.
func parseLeFigaro(doc *goquery.Document) (string, string, []topArticleHTML, error) {
	main := doc.Find(".fig-main .fig-ensemble__first-article").First()
	mainTitle := stripped(main.Find(".fig-ensemble__title").First())
	mainURL, _ := main.Find("a").First().Attr("href")

	return mainTitle, mainURL, nil, nil
}
