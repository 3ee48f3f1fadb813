// Package clist is the HTTP client for the clist.by contest listing API.
package clist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/algoclock/contest-notifier/internal/model"
)

const contestsPath = "/api/v2/contest/"

// Client fetches upcoming contests. Outbound calls go through a rate
// limiter: clist.by throttles aggressively and a misconfigured poll
// interval must not get the API key banned.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Client. timeout bounds the whole request (connect and
// read); rps caps outbound requests per second.
func New(baseURL, apiKey string, timeout time.Duration, rps float64) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// UpcomingContests requests the upcoming contest listing with
// format_time enabled, which is why start/end come back as the short
// "dd.MM EEE HH:mm" strings the timeparse package handles.
func (c *Client) UpcomingContests(ctx context.Context) (model.ContestList, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.ContestList{}, fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("upcoming", "true")
	q.Set("format_time", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+contestsPath+"?"+q.Encode(), nil)
	if err != nil {
		return model.ContestList{}, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ContestList{}, fmt.Errorf("fetch contests: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ContestList{}, fmt.Errorf("clist API error: %s", resp.Status)
	}

	var list model.ContestList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return model.ContestList{}, fmt.Errorf("decode contests: %w", err)
	}

	return list, nil
}
