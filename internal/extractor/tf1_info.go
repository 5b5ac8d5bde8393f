package extractor

import "github.com/PuerkitoBio/goquery"

func parseTf1Info(doc *goquery.Document) (string, string, []topArticleHTML, error) {
	main := doc.Find("#headlineid .ArticleCard__Title").First()
	mainURL := main.Find("a").First()
	mainTitle := stripped(mainURL)
	href, _ := mainURL.Attr("href")

	var top []topArticleHTML
	doc.Find("#AllNews__List__0 .AllNewsItem .LinkArticle").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a").First()
		hr, _ := a.Attr("href")
		top = append(top, topArticleHTML{Title: stripped(a), URL: hr})
	})

	return mainTitle, href, top, nil
}
