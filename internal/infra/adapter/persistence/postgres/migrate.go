package postgres

import "database/sql"

// MigrateUp creates the archival schema: one table per entity plus the
// three read-side views the Storage repository and the API query
// against. All statements are idempotent so MigrateUp can run on every
// process start.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sites (
    id              SERIAL PRIMARY KEY,
    name            TEXT NOT NULL,
    original_url    TEXT NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sites_name ON sites(name)`,

		`CREATE TABLE IF NOT EXISTS snapshots (
    id                  SERIAL PRIMARY KEY,
    site_id             INTEGER NOT NULL REFERENCES sites(id),
    timestamp           TIMESTAMPTZ NOT NULL,
    timestamp_virtual   BIGINT NOT NULL,
    url_original        TEXT NOT NULL,
    url_snapshot        TEXT NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_virtual_site ON snapshots(timestamp_virtual, site_id)`,

		`CREATE TABLE IF NOT EXISTS articles (
    id  SERIAL PRIMARY KEY,
    url TEXT NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_url ON articles(url)`,

		`CREATE TABLE IF NOT EXISTS titles (
    id   SERIAL PRIMARY KEY,
    text TEXT NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_titles_text ON titles(text)`,

		`CREATE TABLE IF NOT EXISTS main_articles (
    id          SERIAL PRIMARY KEY,
    url         TEXT NOT NULL,
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id),
    article_id  INTEGER NOT NULL REFERENCES articles(id),
    title_id    INTEGER NOT NULL REFERENCES titles(id)
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_main_articles_snapshot_article ON main_articles(snapshot_id, article_id)`,

		`CREATE TABLE IF NOT EXISTS top_articles (
    id          SERIAL PRIMARY KEY,
    url         TEXT NOT NULL,
    rank        INTEGER NOT NULL,
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id),
    article_id  INTEGER NOT NULL REFERENCES articles(id),
    title_id    INTEGER NOT NULL REFERENCES titles(id)
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_top_articles_snapshot_article_rank ON top_articles(snapshot_id, article_id, rank)`,

		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS embeddings (
    id       SERIAL PRIMARY KEY,
    title_id INTEGER NOT NULL REFERENCES titles(id),
    vector   vector(1024) NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_embeddings_title_id ON embeddings(title_id)`,

		`CREATE OR REPLACE VIEW snapshots_view AS
SELECT
    snapshots.id,
    snapshots.site_id,
    sites.name AS site_name,
    sites.original_url AS site_original_url,
    snapshots.timestamp,
    snapshots.timestamp_virtual,
    snapshots.url_original,
    snapshots.url_snapshot
FROM snapshots
JOIN sites ON sites.id = snapshots.site_id`,

		`CREATE OR REPLACE VIEW main_page_apparitions AS
SELECT
    main_articles.snapshot_id,
    articles.id AS article_id,
    articles.url AS article_url,
    titles.id AS title_id,
    titles.text AS title_text,
    TRUE AS is_main,
    NULL::INTEGER AS rank
FROM main_articles
JOIN articles ON articles.id = main_articles.article_id
JOIN titles ON titles.id = main_articles.title_id
UNION ALL
SELECT
    top_articles.snapshot_id,
    articles.id AS article_id,
    articles.url AS article_url,
    titles.id AS title_id,
    titles.text AS title_text,
    FALSE AS is_main,
    top_articles.rank AS rank
FROM top_articles
JOIN articles ON articles.id = top_articles.article_id
JOIN titles ON titles.id = top_articles.title_id`,

		`CREATE OR REPLACE VIEW snapshot_apparitions AS
SELECT
    snapshots_view.id AS snapshot_id,
    snapshots_view.site_id,
    snapshots_view.site_name,
    snapshots_view.site_original_url,
    snapshots_view.timestamp,
    snapshots_view.timestamp_virtual,
    main_page_apparitions.article_id,
    main_page_apparitions.article_url,
    main_page_apparitions.title_id,
    main_page_apparitions.title_text,
    main_page_apparitions.is_main,
    main_page_apparitions.rank
FROM main_page_apparitions
JOIN snapshots_view ON snapshots_view.id = main_page_apparitions.snapshot_id`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
