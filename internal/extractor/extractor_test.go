package extractor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-observer/internal/domain/entity"
	"media-observer/internal/extractor"
)

func TestParse_LeMonde(t *testing.T) {
	html := `<html><body>
		<div class="article--main">
			<p class="article__title-label"> Big headline </p>
			<a href="https://www.lemonde.fr/a1">link</a>
		</div>
		<div class="top-article"><a href="https://www.lemonde.fr/a2">First top story</a></div>
		<div class="top-article"><a href="https://www.lemonde.fr/a3">Second top story</a></div>
	</body></html>`

	page, err := extractor.Parse("le_monde", entity.Snapshot{Text: html})
	require.NoError(t, err)

	assert.Equal(t, "Big headline", page.MainArticle.Title)
	assert.Equal(t, "https://www.lemonde.fr/a1", page.MainArticle.URL)
	require.Len(t, page.TopArticles, 2)
	assert.Equal(t, 1, page.TopArticles[0].Rank)
	assert.Equal(t, 2, page.TopArticles[1].Rank)
}

func TestParse_LeFigaro_NoTopArticles(t *testing.T) {
	html := `<html><body>
		<div class="fig-main">
			<div class="fig-ensemble__first-article">
				<div class="fig-ensemble__title">Headline</div>
				<a href="https://www.lefigaro.fr/a1">link</a>
			</div>
		</div>
	</body></html>`

	page, err := extractor.Parse("le_figaro", entity.Snapshot{Text: html})
	require.NoError(t, err)

	assert.Equal(t, "Headline", page.MainArticle.Title)
	assert.Empty(t, page.TopArticles)
}

func TestParse_UnsupportedSite(t *testing.T) {
	_, err := extractor.Parse("unknown_site", entity.Snapshot{Text: "<html></html>"})
	require.Error(t, err)
}

func TestRegistered(t *testing.T) {
	assert.True(t, extractor.Registered("bfmtv"))
	assert.False(t, extractor.Registered("not_a_site"))
}
