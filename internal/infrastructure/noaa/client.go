package noaa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"ClimateTrend/internal/config"
	"ClimateTrend/internal/domain"
	"ClimateTrend/internal/ports"
)

// dateLayout matches the timestamp format of CDO daily observations.
const dateLayout = "2006-01-02T15:04:05"

// Client fetches GHCND daily observations from the NOAA Climate Data Online
// API. Every page request is retried with backoff and guarded by a circuit
// breaker; failures come back as classified domain.FetchError values.
type Client struct {
	baseURL     string
	token       string
	datasetID   string
	locationID  string
	dataTypes   string
	units       string
	pageSize    int
	maxAttempts int
	backoff     *Backoff
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	logger      *slog.Logger
}

var _ ports.ObservationSource = (*Client)(nil)

// NewClient wires a CDO API client. A nil httpClient gets a default with the
// configured request timeout.
func NewClient(cfg config.NOAAConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout.Std()}
	}

	units := ""
	if cfg.Units == config.UnitsMetric {
		units = config.UnitsMetric
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "noaa-cdo",
		Interval: time.Minute,
		Timeout:  2 * time.Minute,
	})

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.Token,
		datasetID:   cfg.DatasetID,
		locationID:  cfg.LocationID,
		dataTypes:   strings.Join(cfg.DataTypes, ","),
		units:       units,
		pageSize:    cfg.PageSize,
		maxAttempts: cfg.Retry.MaxAttempts,
		backoff:     NewBackoff(cfg.Retry),
		httpClient:  httpClient,
		breaker:     breaker,
		logger:      logger,
	}
}

// FetchPage requests one page of observations for the window, retrying
// retryable failures up to the configured attempt ceiling.
func (c *Client) FetchPage(ctx context.Context, window domain.Window, offset int) (domain.Page, error) {
	var lastErr *domain.FetchError

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return domain.Page{}, err
		}

		page, ferr := c.fetchOnce(ctx, window, offset)
		if ferr == nil {
			return page, nil
		}
		if !ferr.Retryable() {
			return domain.Page{}, ferr
		}
		lastErr = ferr

		if attempt == c.maxAttempts {
			break
		}
		delay := c.backoff.Delay(attempt, ferr)
		c.logger.Warn("page fetch failed, backing off",
			"window", window.ID(),
			"offset", offset,
			"attempt", attempt,
			"kind", string(ferr.Kind),
			"delay", delay,
		)
		if err := sleepContext(ctx, delay); err != nil {
			return domain.Page{}, err
		}
	}

	return domain.Page{}, &domain.FetchError{
		Kind: domain.FailureExhausted,
		Err:  fmt.Errorf("gave up after %d attempts: %w", c.maxAttempts, lastErr),
	}
}

func (c *Client) fetchOnce(ctx context.Context, window domain.Window, offset int) (domain.Page, *domain.FetchError) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		page, doErr := c.do(ctx, window, offset)
		if doErr != nil {
			return nil, doErr
		}
		return page, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.Page{}, &domain.FetchError{Kind: domain.FailureUnavailable, Err: err}
		}
		var ferr *domain.FetchError
		if errors.As(err, &ferr) {
			return domain.Page{}, ferr
		}
		return domain.Page{}, &domain.FetchError{Kind: domain.FailureTransient, Err: err}
	}
	return result.(domain.Page), nil
}

func (c *Client) do(ctx context.Context, window domain.Window, offset int) (domain.Page, error) {
	endpoint, err := url.Parse(c.baseURL + "/data")
	if err != nil {
		return domain.Page{}, &domain.FetchError{Kind: domain.FailureClient, Err: fmt.Errorf("parse base url: %w", err)}
	}

	q := endpoint.Query()
	q.Set("datasetid", c.datasetID)
	q.Set("locationid", c.locationID)
	q.Set("startdate", window.StartDate())
	q.Set("enddate", window.EndDate())
	q.Set("datatypeid", c.dataTypes)
	if c.units != "" {
		q.Set("units", c.units)
	}
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return domain.Page{}, &domain.FetchError{Kind: domain.FailureClient, Err: err}
	}
	req.Header.Set("token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Page{}, &domain.FetchError{Kind: domain.FailureTransient, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.Page{}, &domain.FetchError{
			Kind:       domain.FailureRateLimited,
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Err:        errors.New("rate limited by upstream"),
		}
	case resp.StatusCode >= 500:
		return domain.Page{}, &domain.FetchError{
			Kind:   domain.FailureServer,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("upstream returned %s", resp.Status),
		}
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Page{}, &domain.FetchError{
			Kind:   domain.FailureClient,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("upstream returned %s: %s", resp.Status, strings.TrimSpace(string(snippet))),
		}
	}

	var envelope resultEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.Page{}, &domain.FetchError{Kind: domain.FailureTransient, Err: fmt.Errorf("decode response: %w", err)}
	}

	records := make([]domain.RawRecord, 0, len(envelope.Results))
	for _, r := range envelope.Results {
		date, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return domain.Page{}, &domain.FetchError{Kind: domain.FailureTransient, Err: fmt.Errorf("parse record date %q: %w", r.Date, err)}
		}
		records = append(records, domain.RawRecord{
			Station:    r.Station,
			Date:       date,
			Element:    domain.Element(r.DataType),
			Value:      r.Value,
			Attributes: r.Attributes,
		})
	}

	// An empty month comes back as {} with no metadata, which reads as a
	// zero resultset and therefore no further pages.
	meta := envelope.Metadata.Resultset
	next := meta.Offset + meta.Limit
	if next <= offset {
		next = offset + c.pageSize
	}
	return domain.Page{
		Records:    records,
		HasMore:    meta.Offset+meta.Limit < meta.Count,
		NextOffset: next,
		Total:      meta.Count,
	}, nil
}

type resultEnvelope struct {
	Metadata struct {
		Resultset struct {
			Offset int `json:"offset"`
			Count  int `json:"count"`
			Limit  int `json:"limit"`
		} `json:"resultset"`
	} `json:"metadata"`
	Results []struct {
		Date       string  `json:"date"`
		DataType   string  `json:"datatype"`
		Station    string  `json:"station"`
		Attributes string  `json:"attributes"`
		Value      float64 `json:"value"`
	} `json:"results"`
}

// parseRetryAfter understands both delay-seconds and HTTP-date forms.
func parseRetryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
