package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"strings"

	"media-observer/internal/domain/entity"
	"media-observer/internal/repository"
)

// StorageRepo implements repository.StorageRepository against the
// embedded SQLite driver, used for local development and single-process
// deployments where running PostgreSQL is overkill.
type StorageRepo struct {
	db *sql.DB
}

// NewStorageRepo creates a new SQLite-based StorageRepository.
func NewStorageRepo(db *sql.DB) repository.StorageRepository {
	return &StorageRepo{db: db}
}

func (repo *StorageRepo) FrontPageExists(ctx context.Context, siteName string, timestampVirtual int64) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1
    FROM snapshots
    JOIN sites ON sites.id = snapshots.site_id
    WHERE sites.name = ? AND snapshots.timestamp_virtual = ?
)`
	var exists bool
	if err := repo.db.QueryRowContext(ctx, query, siteName, timestampVirtual).Scan(&exists); err != nil {
		return false, fmt.Errorf("FrontPageExists: %w", err)
	}
	return exists, nil
}

func insertOrGetSite(ctx context.Context, tx *sql.Tx, site *entity.Site) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO sites (name, original_url) VALUES (?, ?)
ON CONFLICT(name) DO NOTHING`, site.Name, site.OriginalURL); err != nil {
		return 0, fmt.Errorf("insertOrGetSite: insert: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM sites WHERE name = ?`, site.Name).Scan(&id); err != nil {
		return 0, fmt.Errorf("insertOrGetSite: select: %w", err)
	}
	return id, nil
}

func insertOrGetSnapshot(ctx context.Context, tx *sql.Tx, siteID int64, snap *entity.Snapshot, timestampVirtual int64) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO snapshots (site_id, timestamp, timestamp_virtual, url_original, url_snapshot)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(timestamp_virtual, site_id) DO NOTHING`,
		siteID, snap.ID.Timestamp, timestampVirtual, snap.ID.Original, snap.ID.URL()); err != nil {
		return 0, fmt.Errorf("insertOrGetSnapshot: insert: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `
SELECT id FROM snapshots WHERE timestamp_virtual = ? AND site_id = ?`,
		timestampVirtual, siteID).Scan(&id); err != nil {
		return 0, fmt.Errorf("insertOrGetSnapshot: select: %w", err)
	}
	return id, nil
}

func insertOrGetArticle(ctx context.Context, tx *sql.Tx, url string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO articles (url) VALUES (?) ON CONFLICT(url) DO NOTHING`, url); err != nil {
		return 0, fmt.Errorf("insertOrGetArticle: insert: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM articles WHERE url = ?`, url).Scan(&id); err != nil {
		return 0, fmt.Errorf("insertOrGetArticle: select: %w", err)
	}
	return id, nil
}

func insertOrGetTitle(ctx context.Context, tx *sql.Tx, text string) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO titles (text) VALUES (?) ON CONFLICT(text) DO NOTHING`, text); err != nil {
		return 0, fmt.Errorf("insertOrGetTitle: insert: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM titles WHERE text = ?`, text).Scan(&id); err != nil {
		return 0, fmt.Errorf("insertOrGetTitle: select: %w", err)
	}
	return id, nil
}

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
VALUES (?, ?, ?, ?)
ON CONFLICT(snapshot_id, article_id) DO NOTHING`,
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
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(snapshot_id, article_id, rank) DO NOTHING`,
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
	rows, err := repo.db.QueryContext(ctx, query)
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
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
SELECT s.id, s.site_id, sites.name, sites.original_url, s.timestamp,
       a.article_id, a.article_url, a.title_id, a.title_text, a.is_main, a.rank
FROM (
    SELECT snapshot_id, article_id, articles.url AS article_url, title_id, titles.text AS title_text,
           1 AS is_main, NULL AS rank
    FROM main_articles
    JOIN articles ON articles.id = main_articles.article_id
    JOIN titles ON titles.id = main_articles.title_id
    UNION ALL
    SELECT snapshot_id, article_id, articles.url AS article_url, title_id, titles.text AS title_text,
           0 AS is_main, rank
    FROM top_articles
    JOIN articles ON articles.id = top_articles.article_id
    JOIN titles ON titles.id = top_articles.title_id
) a
JOIN snapshots s ON s.id = a.snapshot_id
JOIN sites ON sites.id = s.site_id
WHERE a.title_id IN (%s)
ORDER BY s.timestamp DESC`, strings.Join(placeholders, ", "))

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListArticlesOnFrontPage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]*entity.ArticleOnFrontPage, 0, len(titleIDs))
	for rows.Next() {
		a := &entity.ArticleOnFrontPage{}
		var rank sql.NullInt64
		if err := rows.Scan(&a.SnapshotID, &a.SiteID, &a.SiteName, &a.SiteOriginalURL, &a.Timestamp,
			&a.ArticleID, &a.ArticleURL, &a.TitleID, &a.Title, &a.IsMain, &rank); err != nil {
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

// ListNeighbouringMainArticles returns three groups of main articles around
// timestamp: every main article across every site published at exactly
// timestamp (unscoped by site, so simultaneous articles from other sites are
// included), plus siteID's own single nearest main article strictly after
// and strictly before timestamp.
func (repo *StorageRepo) ListNeighbouringMainArticles(ctx context.Context, siteID int64, timestamp int64) ([]*entity.ArticleOnFrontPage, error) {
	const query = `
WITH all_mains AS (
    SELECT s.id AS snapshot_id, s.site_id, sites.name AS site_name, sites.original_url AS site_original_url,
           s.timestamp, s.timestamp_virtual, m.article_id, articles.url AS article_url,
           m.title_id, titles.text AS title_text
    FROM main_articles m
    JOIN snapshots s ON s.id = m.snapshot_id
    JOIN sites ON sites.id = s.site_id
    JOIN articles ON articles.id = m.article_id
    JOIN titles ON titles.id = m.title_id
),
site_mains AS (
    SELECT * FROM all_mains WHERE site_id = ?
)
SELECT snapshot_id, site_id, site_name, site_original_url, timestamp, article_id, article_url,
       title_id, title_text, 0 AS time_diff
FROM all_mains WHERE timestamp_virtual = ?
UNION ALL
SELECT snapshot_id, site_id, site_name, site_original_url, timestamp, article_id, article_url,
       title_id, title_text, (timestamp_virtual - ?) AS time_diff
FROM site_mains
WHERE timestamp_virtual > ?
ORDER BY timestamp_virtual ASC
LIMIT 1
UNION ALL
SELECT snapshot_id, site_id, site_name, site_original_url, timestamp, article_id, article_url,
       title_id, title_text, (? - timestamp_virtual) AS time_diff
FROM site_mains
WHERE timestamp_virtual < ?
ORDER BY timestamp_virtual DESC
LIMIT 1`

	rows, err := repo.db.QueryContext(ctx, query, siteID, timestamp, timestamp, timestamp, timestamp, timestamp)
	if err != nil {
		return nil, fmt.Errorf("ListNeighbouringMainArticles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]*entity.ArticleOnFrontPage, 0, 3)
	for rows.Next() {
		a := &entity.ArticleOnFrontPage{}
		a.IsMain = true
		if err := rows.Scan(&a.SnapshotID, &a.SiteID, &a.SiteName, &a.SiteOriginalURL, &a.Timestamp,
			&a.ArticleID, &a.ArticleURL, &a.TitleID, &a.Title, &a.TimeDiff); err != nil {
			return nil, fmt.Errorf("ListNeighbouringMainArticles: scan: %w", err)
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
LIMIT ?`
	rows, err := repo.db.QueryContext(ctx, query, limit)
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
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListAllEmbeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]*entity.Embedding, 0)
	for rows.Next() {
		e := &entity.Embedding{}
		var blob []byte
		if err := rows.Scan(&e.TitleID, &blob); err != nil {
			return nil, fmt.Errorf("ListAllEmbeddings: scan: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("ListAllEmbeddings: decode: %w", err)
		}
		e.Vector = vec
		results = append(results, e)
	}
	return results, rows.Err()
}

func (repo *StorageRepo) AddEmbedding(ctx context.Context, embedding *entity.Embedding) error {
	blob := encodeVector(embedding.Vector)
	const query = `
INSERT INTO embeddings (title_id, vector) VALUES (?, ?)
ON CONFLICT(title_id) DO NOTHING`
	if _, err := repo.db.ExecContext(ctx, query, embedding.TitleID, blob); err != nil {
		return fmt.Errorf("AddEmbedding: %w", err)
	}
	return nil
}

func encodeVector(vec []float32) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(vec) * 4)
	for _, v := range vec {
		_ = binary.Write(buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	reader := bytes.NewReader(blob)
	for i := range vec {
		if err := binary.Read(reader, binary.LittleEndian, &vec[i]); err != nil {
			return nil, err
		}
	}
	return vec, nil
}
