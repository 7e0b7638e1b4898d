// Package feed keeps the local weather snapshot in step with a Hilltop server.
package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jgoulah/usagesync/pkg/models"
)

// QueryLayout is the datetime format of the From and To parameters
const QueryLayout = "2006-01-02 15:04:05"

const valueLayout = "2006-01-02T15:04:05"

// ErrNoData is returned when the server has no readings for the range
var ErrNoData = errors.New("no data returned")

// ServerError is an error reported in the body of a Hilltop response
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "hilltop: " + e.Message
}

// ClientConfig holds Hilltop connection settings
type ClientConfig struct {
	BaseURL string // e.g., "https://extranet.trc.govt.nz/getdata/"
	HTS     string // e.g., "boo.hts"
	Timeout time.Duration
	Backoff BackoffConfig
}

// Client queries a Hilltop server
type Client struct {
	endpoint   string
	httpClient *http.Client
	backoff    BackoffConfig
	circuit    *gobreaker.CircuitBreaker
}

// NewClient creates a Hilltop client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Backoff.InitialInterval <= 0 {
		cfg.Backoff.InitialInterval = time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "hilltop",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		endpoint:   strings.TrimSuffix(cfg.BaseURL, "/") + "/" + strings.TrimPrefix(cfg.HTS, "/"),
		httpClient: httpClient,
		backoff:    cfg.Backoff,
		circuit:    cb,
	}
}

type hilltopEntry struct {
	T  string `xml:"T"`
	I1 string `xml:"I1"`
}

type hilltopMeasurement struct {
	SiteName   string `xml:"SiteName,attr"`
	DataSource struct {
		Name string `xml:"Name,attr"`
	} `xml:"DataSource"`
	Entries []hilltopEntry `xml:"Data>E"`
}

type hilltopResponse struct {
	Error        string               `xml:"Error"`
	Measurements []hilltopMeasurement `xml:"Measurement"`
}

// GetData fetches readings for site and measurement between from and to
func (c *Client) GetData(ctx context.Context, site, measurement string, from, to time.Time) ([]models.WeatherReading, error) {
	params := url.Values{}
	params.Set("Service", "Hilltop")
	params.Set("Request", "GetData")
	params.Set("Site", site)
	params.Set("Measurement", measurement)
	params.Set("From", from.Format(QueryLayout))
	params.Set("To", to.Format(QueryLayout))

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	}

	resp, err := doRequest(ctx, c.httpClient, c.backoff, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("requesting hilltop data: %w", err)
	}
	defer resp.Body.Close()

	var payload hilltopResponse
	if err := xml.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding hilltop response: %w", err)
	}

	return parseResponse(payload, site, measurement)
}

func parseResponse(payload hilltopResponse, site, measurement string) ([]models.WeatherReading, error) {
	if msg := strings.TrimSpace(payload.Error); msg != "" {
		if strings.Contains(strings.ToLower(msg), "no data") {
			return nil, ErrNoData
		}
		return nil, &ServerError{Message: msg}
	}
	if len(payload.Measurements) == 0 {
		return nil, ErrNoData
	}

	var readings []models.WeatherReading
	for _, m := range payload.Measurements {
		siteName := m.SiteName
		if siteName == "" {
			siteName = site
		}
		for _, e := range m.Entries {
			ts, err := time.Parse(valueLayout, strings.TrimSpace(e.T))
			if err != nil {
				return nil, fmt.Errorf("parsing reading time %q: %w", e.T, err)
			}
			value, err := strconv.ParseFloat(strings.TrimSpace(e.I1), 64)
			if err != nil {
				// Gap markers carry no value
				continue
			}
			readings = append(readings, models.WeatherReading{
				SiteName:        siteName,
				MeasurementName: measurement,
				Time:            ts,
				Value:           value,
			})
		}
	}
	return readings, nil
}
