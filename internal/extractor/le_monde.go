package extractor

import "github.com/PuerkitoBio/goquery"

func parseLeMonde(doc *goquery.Document) (string, string, []topArticleHTML, error) {
	main := doc.Find("div.article--main").First()
	mainTitle := stripped(main.Find("p.article__title-label").First())
	mainURL, _ := main.Find("a").First().Attr("href")

	var top []topArticleHTML
	doc.Find("div.top-article").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Find("a").First().Attr("href")
		top = append(top, topArticleHTML{Title: stripped(s), URL: href})
	})

	return mainTitle, mainURL, top, nil
}
