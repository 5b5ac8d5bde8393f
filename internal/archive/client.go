package archive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"media-observer/internal/domain/entity"
	"media-observer/internal/resilience/circuitbreaker"
	"media-observer/internal/resilience/retry"
)

const (
	searchURL = "http://web.archive.org/cdx/search/cdx"
	// searchWindow is the +/- bound around the target instant that
	// find_closest searches within.
	searchWindow = 6 * time.Hour
	searchLimit  = 100
)

// ErrNotYetAvailable signals that the archive has no matching capture yet.
var ErrNotYetAvailable = errors.New("snapshot not yet available")

// NotYetAvailableError carries the target instant that had no capture.
type NotYetAvailableError struct {
	Target time.Time
}

func (e *NotYetAvailableError) Error() string {
	return fmt.Sprintf("no snapshot available near %s", e.Target)
}

func (e *NotYetAvailableError) Unwrap() error { return ErrNotYetAvailable }

// Config holds the outbound-request controls applied to every Client
// operation.
type Config struct {
	LimiterMaxRate            int
	LimiterTimePeriod         time.Duration
	RelaxationAfterError429   time.Duration
	RelaxationAfterErrConnect time.Duration
	RequestTimeout            time.Duration
	ErrorGateDir              string
}

// DefaultConfig mirrors the original implementation's defaults.
func DefaultConfig() Config {
	return Config{
		LimiterMaxRate:            10,
		LimiterTimePeriod:         time.Minute,
		RelaxationAfterError429:   5 * time.Minute,
		RelaxationAfterErrConnect: time.Minute,
		RequestTimeout:            30 * time.Second,
		ErrorGateDir:              "./archive-error-gates",
	}
}

// Client is the rate-limited HTTP client for the archive's CDX search and
// snapshot-retrieval endpoints. Shared by all pipeline workers behind its
// internal limiter and error gates.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	gate429    *ErrorGate
	gateConn   *ErrorGate
	breaker    *circuitbreaker.CircuitBreaker
	retryCfg   retry.Config
	logger     *slog.Logger
}

// New constructs a Client from cfg.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Every(cfg.LimiterTimePeriod/time.Duration(cfg.LimiterMaxRate)), cfg.LimiterMaxRate),
		gate429:    NewErrorGate("429 HTTP", cfg.ErrorGateDir+"/error_429.json", cfg.RelaxationAfterError429),
		gateConn:   NewErrorGate("connection", cfg.ErrorGateDir+"/error_connect.json", cfg.RelaxationAfterErrConnect),
		breaker:    circuitbreaker.New(circuitbreaker.ArchiveConfig()),
		retryCfg:   retry.ArchiveConfig(),
		logger:     logger,
	}
}

// FindClosest returns the capture of url whose timestamp minimises
// |capture_ts - target|, searching within target +/- 6h (upper bound
// clamped to now). Returns *NotYetAvailableError if nothing matches.
func (c *Client) FindClosest(ctx context.Context, rawURL string, target time.Time) (entity.SnapshotID, error) {
	now := time.Now().UTC()
	to := target.Add(searchWindow)
	if to.After(now) {
		to = now
	}

	req := cdxRequest{
		url:    rawURL,
		filter: "statuscode:200",
		from:   target.Add(-searchWindow),
		to:     to,
		limit:  searchLimit,
	}

	records, err := c.searchSnapshots(ctx, req)
	if err != nil {
		return entity.SnapshotID{}, err
	}
	if len(records) == 0 {
		return entity.SnapshotID{}, &NotYetAvailableError{Target: target}
	}

	best := records[0]
	bestDelta := absDuration(best.Timestamp.Sub(target))
	for _, r := range records[1:] {
		d := absDuration(r.Timestamp.Sub(target))
		if d < bestDelta {
			best, bestDelta = r, d
		}
	}
	return best.SnapshotID(), nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (c *Client) searchSnapshots(ctx context.Context, req cdxRequest) ([]*CdxRecord, error) {
	body, err := c.get(ctx, searchURL, req.values().Encode())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var records []*CdxRecord
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, err := ParseCdxLine(line)
		if err != nil {
			return nil, fmt.Errorf("search snapshots: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan cdx response: %w", err)
	}
	return records, nil
}

// Fetch retrieves the captured HTML body for id.
func (c *Client) Fetch(ctx context.Context, id entity.SnapshotID) (*entity.Snapshot, error) {
	body, err := c.get(ctx, id.URL(), "")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	text, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}
	return &entity.Snapshot{ID: id, Text: string(text)}, nil
}

// get performs one rate-limited, circuit-breaker-guarded, retryable GET
// request, consulting and updating the error gates around the call exactly
// as the original client does. Both gates are re-checked on every retry
// attempt, not just before the first: a 429 observed mid-retry trips
// gate429, and the next attempt must see that before issuing any further
// I/O, not just the next call to get().
func (c *Client) get(ctx context.Context, rawURL, rawQuery string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := retry.WithBackoff(ctx, c.retryCfg, func() error {
		if err := c.gate429.CheckRelaxed(); err != nil {
			return err
		}
		if err := c.gateConn.CheckRelaxed(); err != nil {
			return err
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("archive rate limiter: %w", err)
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doRequest(ctx, rawURL, rawQuery)
		})
		if err != nil {
			return err
		}
		body = result.(io.ReadCloser)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, rawURL, rawQuery string) (io.ReadCloser, error) {
	target := rawURL
	if rawQuery != "" {
		target = rawURL + "?" + rawQuery
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build archive request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || isConnRefused(err) {
			if gateErr := c.gateConn.Notify(); gateErr != nil {
				c.logger.Warn("failed to record connection error gate", slog.Any("error", gateErr))
			}
		}
		return nil, fmt.Errorf("archive request: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		if gateErr := c.gate429.Notify(); gateErr != nil {
			c.logger.Warn("failed to record 429 error gate", slog.Any("error", gateErr))
		}
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "archive rate limited"}
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("archive request to %s failed", rawURL)}
	}

	return resp.Body, nil
}

func isConnRefused(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
