package archive

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"media-observer/internal/domain/entity"
)

// CdxRecord is one line of the CDX search response: seven
// whitespace-separated fields.
type CdxRecord struct {
	URLKey     string
	Timestamp  time.Time
	Original   string
	MimeType   string
	StatusCode int
	Digest     string
	Length     int
}

// ParseCdxLine parses one CDX response line. It fails closed: any line that
// does not split into exactly seven whitespace-separated fields is a parse
// error, since the archive's field ordering is undocumented and assumed
// fixed.
func ParseCdxLine(line string) (*CdxRecord, error) {
	fields := strings.Fields(line)
	if len(fields) != 7 {
		return nil, fmt.Errorf("cdx line has %d fields, want 7: %q", len(fields), line)
	}

	ts, err := entity.ParseArchiveTimestamp(fields[1])
	if err != nil {
		return nil, fmt.Errorf("cdx line timestamp: %w", err)
	}
	status, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, fmt.Errorf("cdx line statuscode %q: %w", fields[4], err)
	}
	length, err := strconv.Atoi(fields[6])
	if err != nil {
		return nil, fmt.Errorf("cdx line length %q: %w", fields[6], err)
	}

	return &CdxRecord{
		URLKey:     fields[0],
		Timestamp:  ts,
		Original:   fields[2],
		MimeType:   fields[3],
		StatusCode: status,
		Digest:     fields[5],
		Length:     length,
	}, nil
}

// String re-renders the record in the same whitespace-separated form it was
// parsed from (a fixed point for round-tripping).
func (r *CdxRecord) String() string {
	return strings.Join([]string{
		r.URLKey,
		r.Timestamp.UTC().Format(entity.ArchiveTimestampLayout),
		r.Original,
		r.MimeType,
		strconv.Itoa(r.StatusCode),
		r.Digest,
		strconv.Itoa(r.Length),
	}, " ")
}

// SnapshotID converts a CdxRecord to the identity of the capture it
// describes.
func (r *CdxRecord) SnapshotID() entity.SnapshotID {
	return entity.SnapshotID{Timestamp: r.Timestamp, Original: r.Original}
}

// cdxRequest builds the query parameters for one CDX search call.
type cdxRequest struct {
	url    string
	filter string
	from   time.Time
	to     time.Time
	limit  int
}

func (r cdxRequest) values() url.Values {
	v := url.Values{}
	v.Set("url", r.url)
	if r.filter != "" {
		v.Set("filter", r.filter)
	}
	if !r.from.IsZero() {
		v.Set("from", r.from.UTC().Format(entity.ArchiveTimestampLayout))
	}
	if !r.to.IsZero() {
		v.Set("to", r.to.UTC().Format(entity.ArchiveTimestampLayout))
	}
	if r.limit > 0 {
		v.Set("limit", strconv.Itoa(r.limit))
	}
	return v
}
