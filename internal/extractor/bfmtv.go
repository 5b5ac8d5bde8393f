package extractor

import "github.com/PuerkitoBio/goquery"

func parseBfmTv(doc *goquery.Document) (string, string, []topArticleHTML, error) {
	main := doc.Find("article.une_item").First()
	mainTitle := stripped(main.Find("h2.title_une_item").First())
	mainURL, _ := main.Find("a").First().Attr("href")

	var top []topArticleHTML
	doc.Find("section[id*='top_contenus'] li > a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		title := stripped(s.Find("h3").First())
		top = append(top, topArticleHTML{Title: title, URL: href})
	})

	return mainTitle, mainURL, top, nil
}
