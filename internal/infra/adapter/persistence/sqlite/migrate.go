package sqlite

import "database/sql"

// MigrateUp creates the archival schema for the embedded backend. SQLite
// has no vector/view support worth depending on, so embeddings are BLOBs
// of little-endian float32s and the read-side joins that PostgreSQL
// exposes as views are inlined directly into each query instead.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sites (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT NOT NULL UNIQUE,
    original_url TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id           INTEGER NOT NULL REFERENCES sites(id),
    timestamp         DATETIME NOT NULL,
    timestamp_virtual INTEGER NOT NULL,
    url_original      TEXT NOT NULL,
    url_snapshot      TEXT NOT NULL,
    UNIQUE(timestamp_virtual, site_id)
)`,
		`CREATE TABLE IF NOT EXISTS articles (
    id  INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL UNIQUE
)`,
		`CREATE TABLE IF NOT EXISTS titles (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    text TEXT NOT NULL UNIQUE
)`,
		`CREATE TABLE IF NOT EXISTS main_articles (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    url         TEXT NOT NULL,
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id),
    article_id  INTEGER NOT NULL REFERENCES articles(id),
    title_id    INTEGER NOT NULL REFERENCES titles(id),
    UNIQUE(snapshot_id, article_id)
)`,
		`CREATE TABLE IF NOT EXISTS top_articles (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    url         TEXT NOT NULL,
    rank        INTEGER NOT NULL,
    snapshot_id INTEGER NOT NULL REFERENCES snapshots(id),
    article_id  INTEGER NOT NULL REFERENCES articles(id),
    title_id    INTEGER NOT NULL REFERENCES titles(id),
    UNIQUE(snapshot_id, article_id, rank)
)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    title_id INTEGER NOT NULL UNIQUE REFERENCES titles(id),
    vector   BLOB NOT NULL
)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
