package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"media-observer/internal/domain/entity"
	"media-observer/internal/repository"
	"media-observer/internal/resilience/circuitbreaker"
)

// StorageRepo implements repository.StorageRepository against PostgreSQL.
// Read-only queries and the single-statement embedding write go through a
// circuit breaker so a struggling database fails fast instead of piling up
// blocked pipeline, embedding and similarity goroutines; AddPage's
// multi-statement transaction does not, since the breaker only protects a
// single QueryContext/ExecContext call, not a transaction's statements.
type StorageRepo struct {
	db *sql.DB
	cb *circuitbreaker.DBCircuitBreaker
}

// NewStorageRepo creates a new PostgreSQL-based StorageRepository.
func NewStorageRepo(db *sql.DB) repository.StorageRepository {
	return &StorageRepo{db: db, cb: circuitbreaker.NewDBCircuitBreaker(db)}
}

func (repo *StorageRepo) FrontPageExists(ctx context.Context, siteName string, timestampVirtual int64) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1
    FROM snapshots
    JOIN sites ON sites.id = snapshots.site_id
    WHERE sites.name = $1 AND snapshots.timestamp_virtual = $2
)`
	rows, err := repo.cb.QueryContext(ctx, query, siteName, timestampVirtual)
	if err != nil {
		return false, fmt.Errorf("FrontPageExists: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var exists bool
	if rows.Next() {
		if err := rows.Scan(&exists); err != nil {
			return false, fmt.Errorf("FrontPageExists: scan: %w", err)
		}
	}
	return exists, rows.Err()
}

// insertOrGetSite inserts the site if it does not already exist (keyed by
// name) and returns its id either way.
func insertOrGetSite(ctx context.Context, tx *sql.Tx, site *entity.Site) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO sites (name, original_url) VALUES ($1, $2)
ON CONFLICT (name) DO NOTHING`, site.Name, site.OriginalURL); err != nil {
		return 0, fmt.Errorf("insertOrGetSite: insert: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM sites WHERE name = $1`, site.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("insertOrGetSite: select: %w", err)
	}
	return id, nil
}

func insertOrGetSnapshot(ctx context.Context, tx *sql.Tx, siteID int64, snap *entity.Snapshot, timestampVirtual int64) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO snapshots (site_id, timestamp, timestamp_virtual, url_original, url_snapshot)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (timestamp_virtual, site_id) DO NOTHING`,
		siteID, snap.ID.Timestamp, timestampVirtual, snap.ID.Original, snap.ID.URL()); err != nil {
		return 0, fmt.Errorf("insertOrGetSnapshot: insert: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `
SELECT id FROM snapshots WHERE timestamp_virtual = $1 AND site_id = $2`,
		timestampVirtual, siteID).Scan(&id); err != nil {
		return 0, fmt.Errorf("insertOrGetSnapshot: select: %w", err)
	}
	return id, nil
}

func insertOrGetArticle(ctx context.Context, tx *sql.Tx, url string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO articles (url) VALUES ($1) ON CONFLICT (url) DO NOTHING`, url); err != nil {
		return 0, fmt.Errorf("insertOrGetArticle: insert: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM articles WHERE url = $1`, url).Scan(&id); err != nil {
		return 0, fmt.Errorf("insertOrGetArticle: select: %w", err)
	}
	return id, nil
}

func insertOrGetTitle(ctx context.Context, tx *sql.Tx, text string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO titles (text) VALUES ($1) ON CONFLICT (text) DO NOTHING`, text); err != nil {
		return 0, fmt.Errorf("insertOrGetTitle: insert: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM titles WHERE text = $1`, text).Scan(&id); err != nil {
		return 0, fmt.Errorf("insertOrGetTitle: select: %w", err)
	}
	return id, nil
}

// AddPage stores a front page in a single transaction, following the
// insert-or-get upsert pattern for every natural-keyed row.
func (repo *StorageRepo) AddPage(ctx context.Context, site *entity.Site, page *entity.FrontPage, timestampVirtual int64) error {
	if err := page.Validate(); err != nil {
		return fmt.Errorf("AddPage: %w", err)
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("AddPage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	siteID, err := insertOrGetSite(ctx, tx, site)
	if err != nil {
		return fmt.Errorf("AddPage: %w", err)
	}

	snapshotID, err := insertOrGetSnapshot(ctx, tx, siteID, &page.Snapshot, timestampVirtual)
	if err != nil {
		return fmt.Errorf("AddPage: %w", err)
	}

	mainArticleID, err := insertOrGetArticle(ctx, tx, page.MainArticle.Article.Original.URL)
	if err != nil {
		return fmt.Errorf("AddPage: main article: %w", err)
	}
	mainTitleID, err := insertOrGetTitle(ctx, tx, page.MainArticle.Article.Title)
	if err != nil {
		return fmt.Errorf("AddPage: main title: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO main_articles (url, snapshot_id, article_id, title_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (snapshot_id, article_id) DO NOTHING`,
		page.MainArticle.Article.URL, snapshotID, mainArticleID, mainTitleID); err != nil {
		return fmt.Errorf("AddPage: insert main_article: %w", err)
	}

	for _, top := range page.TopArticles {
		articleID, err := insertOrGetArticle(ctx, tx, top.Article.Original.URL)
		if err != nil {
			return fmt.Errorf("AddPage: top article: %w", err)
		}
		titleID, err := insertOrGetTitle(ctx, tx, top.Article.Title)
		if err != nil {
			return fmt.Errorf("AddPage: top title: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO top_articles (url, rank, snapshot_id, article_id, title_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (snapshot_id, article_id, rank) DO NOTHING`,
			top.Article.URL, top.Rank, snapshotID, articleID, titleID); err != nil {
			return fmt.Errorf("AddPage: insert top_article: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("AddPage: commit: %w", err)
	}
	return nil
}

func (repo *StorageRepo) ListSites(ctx context.Context) ([]*entity.Site, error) {
	const query = `SELECT id, name, original_url FROM sites ORDER BY id ASC`
	rows, err := repo.cb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListSites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sites := make([]*entity.Site, 0)
	for rows.Next() {
		site := &entity.Site{}
		if err := rows.Scan(&site.ID, &site.Name, &site.OriginalURL); err != nil {
			return nil, fmt.Errorf("ListSites: scan: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// ListArticlesOnFrontPage returns every front-page appearance of the given
// titles, regardless of site or snapshot.
func (repo *StorageRepo) ListArticlesOnFrontPage(ctx context.Context, titleIDs []int64) ([]*entity.ArticleOnFrontPage, error) {
	if len(titleIDs) == 0 {
		return []*entity.ArticleOnFrontPage{}, nil
	}

	placeholders := make([]string, len(titleIDs))
	args := make([]any, len(titleIDs))
	for i, id := range titleIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
SELECT snapshot_id, site_id, site_name, site_original_url, timestamp, article_id, article_url, title_text, title_id, is_main, rank
FROM snapshot_apparitions
WHERE title_id IN (%s)
ORDER BY timestamp DESC`, strings.Join(placeholders, ", "))

	rows, err := repo.cb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListArticlesOnFrontPage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]*entity.ArticleOnFrontPage, 0, len(titleIDs))
	for rows.Next() {
		a := &entity.ArticleOnFrontPage{}
		var rank sql.NullInt64
		if err := rows.Scan(&a.SnapshotID, &a.SiteID, &a.SiteName, &a.SiteOriginalURL, &a.Timestamp,
			&a.ArticleID, &a.ArticleURL, &a.Title, &a.TitleID, &a.IsMain, &rank); err != nil {
			return nil, fmt.Errorf("ListArticlesOnFrontPage: scan: %w", err)
		}
		if rank.Valid {
			r := int(rank.Int64)
			a.Rank = &r
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// ListNeighbouringMainArticles mirrors a 3-way UNION ALL over main
// apparitions: every site's main article simultaneous with the given
// timestamp (including the focused site's own), the focused site's next
// main article after it, and its previous one before it, each tagged with
// its time distance in seconds.
func (repo *StorageRepo) ListNeighbouringMainArticles(ctx context.Context, siteID int64, timestamp int64) ([]*entity.ArticleOnFrontPage, error) {
	const query = `
WITH site_mains AS (
    SELECT snapshot_id, site_id, site_name, site_original_url, timestamp, timestamp_virtual,
           article_id, article_url, title_id, title_text, is_main, rank
    FROM snapshot_apparitions
    WHERE site_id = $1 AND is_main = TRUE
),
all_mains AS (
    SELECT snapshot_id, site_id, site_name, site_original_url, timestamp, timestamp_virtual,
           article_id, article_url, title_id, title_text, is_main, rank
    FROM snapshot_apparitions
    WHERE is_main = TRUE
)
SELECT snapshot_id, site_id, site_name, site_original_url, timestamp, article_id, article_url,
       title_id, title_text, is_main, rank, 0 AS time_diff
FROM all_mains WHERE timestamp_virtual = $2
UNION ALL
(SELECT snapshot_id, site_id, site_name, site_original_url, timestamp, article_id, article_url,
        title_id, title_text, is_main, rank,
        EXTRACT(EPOCH FROM (timestamp - to_timestamp($2)))::BIGINT AS time_diff
 FROM site_mains
 WHERE timestamp_virtual > $2
 ORDER BY timestamp_virtual ASC
 LIMIT 1)
UNION ALL
(SELECT snapshot_id, site_id, site_name, site_original_url, timestamp, article_id, article_url,
        title_id, title_text, is_main, rank,
        EXTRACT(EPOCH FROM (to_timestamp($2) - timestamp))::BIGINT AS time_diff
 FROM site_mains
 WHERE timestamp_virtual < $2
 ORDER BY timestamp_virtual DESC
 LIMIT 1)`

	rows, err := repo.cb.QueryContext(ctx, query, siteID, timestamp)
	if err != nil {
		return nil, fmt.Errorf("ListNeighbouringMainArticles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]*entity.ArticleOnFrontPage, 0, 3)
	for rows.Next() {
		a := &entity.ArticleOnFrontPage{}
		var rank sql.NullInt64
		if err := rows.Scan(&a.SnapshotID, &a.SiteID, &a.SiteName, &a.SiteOriginalURL, &a.Timestamp,
			&a.ArticleID, &a.ArticleURL, &a.TitleID, &a.Title, &a.IsMain, &rank, &a.TimeDiff); err != nil {
			return nil, fmt.Errorf("ListNeighbouringMainArticles: scan: %w", err)
		}
		if rank.Valid {
			r := int(rank.Int64)
			a.Rank = &r
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

func (repo *StorageRepo) ListTitlesWithoutEmbedding(ctx context.Context, limit int) ([]*entity.TitleText, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
SELECT titles.id, titles.text
FROM titles
LEFT JOIN embeddings ON embeddings.title_id = titles.id
WHERE embeddings.id IS NULL
ORDER BY titles.id ASC
LIMIT $1`
	rows, err := repo.cb.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListTitlesWithoutEmbedding: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]*entity.TitleText, 0, limit)
	for rows.Next() {
		t := &entity.TitleText{}
		if err := rows.Scan(&t.TitleID, &t.Text); err != nil {
			return nil, fmt.Errorf("ListTitlesWithoutEmbedding: scan: %w", err)
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

func (repo *StorageRepo) ListAllEmbeddings(ctx context.Context) ([]*entity.Embedding, error) {
	const query = `SELECT title_id, vector FROM embeddings ORDER BY title_id ASC`
	rows, err := repo.cb.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListAllEmbeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]*entity.Embedding, 0)
	for rows.Next() {
		e := &entity.Embedding{}
		var vec pgvector.Vector
		if err := rows.Scan(&e.TitleID, &vec); err != nil {
			return nil, fmt.Errorf("ListAllEmbeddings: scan: %w", err)
		}
		e.Vector = vec.Slice()
		results = append(results, e)
	}
	return results, rows.Err()
}

func (repo *StorageRepo) AddEmbedding(ctx context.Context, embedding *entity.Embedding) error {
	vec := pgvector.NewVector(embedding.Vector)
	const query = `
INSERT INTO embeddings (title_id, vector) VALUES ($1, $2)
ON CONFLICT (title_id) DO NOTHING`
	if _, err := repo.cb.ExecContext(ctx, query, embedding.TitleID, vec); err != nil {
		return fmt.Errorf("AddEmbedding: %w", err)
	}
	return nil
}
