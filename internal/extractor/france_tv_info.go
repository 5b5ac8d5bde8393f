package extractor

import "github.com/PuerkitoBio/goquery"

func parseFranceTvInfo(doc *goquery.Document) (string, string, []topArticleHTML, error) {
	main := doc.Find("article.card-article-majeure").First()
	if main.Length() == 0 {
		main = doc.Find("article.card-article-actu-forte").First()
	}
	mainTitle := stripped(main.Find(".card-article-majeure__title, .card-article-actu-forte__title").First())
	mainURL, _ := main.Find("a").First().Attr("href")

	var top []topArticleHTML
	doc.Find("article.card-article-most-read").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Find("a").First().Attr("href")
		title := stripped(s.Find("p.card-article-most-read__title").First())
		top = append(top, topArticleHTML{Title: title, URL: href})
	})

	return mainTitle, mainURL, top, nil
}
