package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DayHours is one row of the legacy remote schedule: a weekday with its
// open and close times as ISO-8601 timestamps (only the clock portion is
// meaningful).
type DayHours struct {
	Day   string `json:"Day"`
	Open  string `json:"Open"`
	Close string `json:"Close"`
}

// Fetcher retrieves the legacy day schedule over HTTP. Every fetch runs
// under a wall-clock deadline; when it fires, the in-flight request is
// cancelled and the caller observes context.DeadlineExceeded, which is
// distinguishable from a transport error. Callers answer "closed" either
// way.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher builds a Fetcher with the given per-fetch timeout.
func NewFetcher(client *http.Client, timeout time.Duration) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, timeout: timeout}
}

// Fetch downloads the legacy schedule and indexes it by weekday name.
func (f *Fetcher) Fetch(ctx context.Context, url string) (map[string]DayHours, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schedule fetch returned status %d", resp.StatusCode)
	}

	var rows []DayHours
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}

	byDay := make(map[string]DayHours, len(rows))
	for _, row := range rows {
		byDay[row.Day] = row
	}
	return byDay, nil
}

// IsOpenNow fetches the legacy schedule and reports whether the hotline is
// open at now in the given timezone.
func (f *Fetcher) IsOpenNow(ctx context.Context, url, timezone string, now time.Time) (bool, error) {
	byDay, err := f.Fetch(ctx, url)
	if err != nil {
		return false, err
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}

	day, ok := byDay[now.In(loc).Weekday().String()]
	if !ok {
		return false, nil
	}

	begin, err := clockFromTimestamp(day.Open)
	if err != nil {
		return false, err
	}
	end, err := clockFromTimestamp(day.Close)
	if err != nil {
		return false, err
	}

	return WithinRange(now, begin, end, timezone)
}

// clockFromTimestamp converts an ISO-8601 timestamp to an HH:MM:SS clock
// string. Empty values pass through and read as closed.
func clockFromTimestamp(ts string) (string, error) {
	if ts == "" {
		return "", nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return "", fmt.Errorf("bad schedule timestamp %q: %w", ts, err)
	}
	return t.Format(clockLayout), nil
}
