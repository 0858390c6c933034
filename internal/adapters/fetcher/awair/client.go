// Package awair fetches air-data readings from the Awair Local API.
package awair

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vshulcz/airgauge/internal/domain"
	"github.com/vshulcz/airgauge/internal/ports"
)

// Client performs a single GET per Fetch call. It never retries.
type Client struct {
	hc *http.Client
}

var _ ports.ReadingFetcher = (*Client)(nil)

// New returns a Client using hc, or a client with a 10s timeout when hc is nil.
func New(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{hc: hc}
}

// airData mirrors the Local API payload; pointers let missing keys be told apart from zeros.
type airData struct {
	Timestamp *time.Time `json:"timestamp"`
	Score     *float64   `json:"score"`
	Temp      *float64   `json:"temp"`
	Humid     *float64   `json:"humid"`
	CO2       *float64   `json:"co2"`
	VOC       *float64   `json:"voc"`
	PM25      *float64   `json:"pm25"`
}

// Fetch requests src and decodes its body. Any failure is returned as *domain.FetchError.
func (c *Client) Fetch(ctx context.Context, src domain.Source) (domain.Reading, error) {
	r, err := c.doOnce(ctx, src)
	if err != nil {
		return domain.Reading{}, &domain.FetchError{Source: src, Err: err}
	}
	return r, nil
}

func (c *Client) doOnce(ctx context.Context, src domain.Source) (domain.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, string(src), nil)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return domain.Reading{}, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return domain.Reading{}, fmt.Errorf("http status: %s", resp.Status)
	}

	var raw airData
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return domain.Reading{}, fmt.Errorf("decode: %w", err)
	}
	return raw.toReading()
}

func (a airData) toReading() (domain.Reading, error) {
	fields := []struct {
		v    *float64
		name string
	}{
		{a.Score, "score"},
		{a.Temp, "temp"},
		{a.Humid, "humid"},
		{a.CO2, "co2"},
		{a.VOC, "voc"},
		{a.PM25, "pm25"},
	}
	if a.Timestamp == nil {
		return domain.Reading{}, fmt.Errorf("decode: %w: timestamp", domain.ErrMissingField)
	}
	for _, f := range fields {
		if f.v == nil {
			return domain.Reading{}, fmt.Errorf("decode: %w: %s", domain.ErrMissingField, f.name)
		}
	}
	return domain.Reading{
		Timestamp: *a.Timestamp,
		Score:     *a.Score,
		Temp:      *a.Temp,
		Humid:     *a.Humid,
		CO2:       *a.CO2,
		VOC:       *a.VOC,
		PM25:      *a.PM25,
	}, nil
}
