package extractor

import "github.com/PuerkitoBio/goquery"

func parseLeParisien(doc *goquery.Document) (string, string, []topArticleHTML, error) {
	main := doc.Find(".homepage__top article").First()
	mainURL := main.Find("a").First()
	mainTitle := stripped(mainURL)
	href, _ := mainURL.Attr("href")

	var top []topArticleHTML
	doc.Find("a[data-block-name='Les_plus_lus']").Each(func(_ int, s *goquery.Selection) {
		hr, _ := s.Attr("href")
		top = append(top, topArticleHTML{Title: stripped(s), URL: hr})
	})

	return mainTitle, href, top, nil
}
