// Package repository defines the storage-facing interfaces used by the
// pipeline, watchdog, embedding worker and similarity index. Concrete
// implementations live under internal/infra/adapter/persistence.
package repository

import (
	"context"

	"media-observer/internal/domain/entity"
)

// StorageRepository is the single persistence boundary for the archival
// pipeline. It owns the insert-or-get upsert semantics for sites,
// snapshots, articles and titles, and the read paths used by the API,
// the embedding worker and the similarity index.
type StorageRepository interface {
	// FrontPageExists reports whether a snapshot for the given site and
	// virtual timestamp has already been stored, so a Discover job can
	// skip re-fetching it.
	FrontPageExists(ctx context.Context, siteName string, timestampVirtual int64) (bool, error)

	// AddPage stores a parsed front page in a single transaction:
	// insert-or-get the site and snapshot, then the main article and
	// each top article, all keyed by their natural (content) keys so
	// repeated calls for the same page are idempotent.
	AddPage(ctx context.Context, site *entity.Site, page *entity.FrontPage, timestampVirtual int64) error

	// ListSites returns every known site.
	ListSites(ctx context.Context) ([]*entity.Site, error)

	// ListArticlesOnFrontPage returns, for each supplied title id, every
	// front-page appearance recorded for it (main or top), across every
	// site and snapshot. Returns an empty slice for an empty titleIDs.
	ListArticlesOnFrontPage(ctx context.Context, titleIDs []int64) ([]*entity.ArticleOnFrontPage, error)

	// ListNeighbouringMainArticles returns the union of: every main
	// article across every site published at exactly timestamp
	// (including the focused site's own); the single main article on
	// siteID strictly after timestamp; and the single main article on
	// siteID strictly before it. Each result is tagged with its signed
	// time distance in seconds from timestamp.
	ListNeighbouringMainArticles(ctx context.Context, siteID int64, timestamp int64) ([]*entity.ArticleOnFrontPage, error)

	// ListTitlesWithoutEmbedding returns up to limit titles that have no
	// row in the embeddings table yet.
	ListTitlesWithoutEmbedding(ctx context.Context, limit int) ([]*entity.TitleText, error)

	// ListAllEmbeddings returns every stored embedding, used to rebuild
	// the similarity index from scratch.
	ListAllEmbeddings(ctx context.Context) ([]*entity.Embedding, error)

	// AddEmbedding stores the embedding vector for a title. It is a
	// no-op (not an error) if the title already has an embedding.
	AddEmbedding(ctx context.Context, embedding *entity.Embedding) error
}
