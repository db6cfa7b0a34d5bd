// Package weather fetches daily historical temperature spans from the
// Open-Meteo archive, the external source that ghost backfill draws on.
// Failures here are never fatal to a projection: a failed fetch just leaves
// the affected days missing.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/seedtray/growlog/internal/httputil"
	"github.com/seedtray/growlog/internal/metrics"
	"github.com/seedtray/growlog/internal/models"
)

const defaultBaseURL = "https://archive-api.open-meteo.com/v1/archive"

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client:  httputil.NewClient(),
	}
}

// NewClientWithBaseURL points the client at an alternate endpoint, used by
// tests with an httptest server.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  httputil.NewClient(),
	}
}

type archiveResponse struct {
	Daily struct {
		Time         []string   `json:"time"`
		TempMax      []*float64 `json:"temperature_2m_max"`
		TempMin      []*float64 `json:"temperature_2m_min"`
		ShortwaveSum []*float64 `json:"shortwave_radiation_sum"`
	} `json:"daily"`
}

// FetchHistorical returns daily samples for [start, end) at a location. Days
// the archive has no data for (nulls in the response) are omitted rather
// than zero-filled, so they stay classified as missing downstream.
func (c *Client) FetchHistorical(ctx context.Context, lat, lon float64, start, end time.Time) ([]models.WeatherSample, error) {
	start = models.DayUTC(start)
	end = models.DayUTC(end)
	if !start.Before(end) {
		return nil, nil
	}

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", lat))
	params.Set("longitude", fmt.Sprintf("%.4f", lon))
	params.Set("start_date", models.DateKey(start))
	// The archive treats end_date as inclusive; our ranges are half-open.
	params.Set("end_date", models.DateKey(end.AddDate(0, 0, -1)))
	params.Set("daily", "temperature_2m_max,temperature_2m_min,shortwave_radiation_sum")
	params.Set("timezone", "UTC")
	requestURL := c.baseURL + "?" + params.Encode()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		started := time.Now()
		resp, err := c.client.Do(req)
		metrics.WeatherAPILatency.Observe(time.Since(started).Seconds())
		if err != nil {
			metrics.WeatherAPICallsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("fetch archive: %w", err)
		}
		defer resp.Body.Close()
		metrics.WeatherAPICallsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("archive status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch archive: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	var data archiveResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	var samples []models.WeatherSample
	for i, day := range data.Daily.Time {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", day, err)
		}
		if i >= len(data.Daily.TempMax) || i >= len(data.Daily.TempMin) {
			break
		}
		tmax := data.Daily.TempMax[i]
		tmin := data.Daily.TempMin[i]
		if tmax == nil || tmin == nil {
			continue
		}

		sample := models.WeatherSample{
			Date:    date,
			TempMin: *tmin,
			TempMax: *tmax,
		}
		if i < len(data.Daily.ShortwaveSum) && data.Daily.ShortwaveSum[i] != nil {
			sample.SolarRadiation.Float64 = *data.Daily.ShortwaveSum[i]
			sample.SolarRadiation.Valid = true
		}
		samples = append(samples, sample)
	}
	return samples, nil
}
