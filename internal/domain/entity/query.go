package entity

import "time"

// ArticleOnFrontPage is one appearance of an article on a front page,
// returned by the storage layer's read queries. IsMain distinguishes a
// MainArticle appearance from a TopArticle one; Rank is only meaningful
// when IsMain is false.
type ArticleOnFrontPage struct {
	SnapshotID      int64
	SiteID          int64
	SiteName        string
	SiteOriginalURL string
	Timestamp       time.Time
	TimestampLocal  time.Time
	ArticleID       int64
	Title           string
	TitleID         int64
	ArchiveURL      string
	ArticleURL      string
	IsMain          bool
	Rank            *int
	// TimeDiff is the signed number of seconds relative to the anchor
	// timestamp used by list_neighbouring_main_articles.
	TimeDiff int64
}

// TitleText is a (title_id, text) pair used for embedding computation.
type TitleText struct {
	TitleID int64
	Text    string
}
