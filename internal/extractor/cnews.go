package extractor

import "github.com/PuerkitoBio/goquery"

func parseCNews(doc *goquery.Document) (string, string, []topArticleHTML, error) {
	main := doc.Find("div.dm-block").First()
	mainTitle := stripped(main.Find("h2.dm-news-title").First())
	mainURL, _ := main.Find("a").First().Attr("href")

	var top []topArticleHTML
	doc.Find(".top-news-content a").Each(func(idx int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		title := stripped(s.Find("h3.dm-letop-title").First())
		top = append(top, topArticleHTML{Title: title, URL: href})
	})

	return mainTitle, mainURL, top, nil
}
