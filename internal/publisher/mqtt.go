package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/jgoulah/usagesync/internal/config"
	"github.com/jgoulah/usagesync/internal/report"
	"github.com/jgoulah/usagesync/pkg/models"
)

// Publisher sends bill-month summaries to MQTT and/or Home Assistant
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	haConfig    config.HAConfig
	entityID    func(models.Stream) string
	httpClient  *http.Client
}

// New creates a new publisher (supports both MQTT and HA HTTP API)
func New(cfg *config.Config) (*Publisher, error) {
	mqttCfg := cfg.MQTT
	haCfg := cfg.HomeAssistant

	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
	}

	var client mqtt.Client
	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("usagesync-" + uuid.NewString()[:8])
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.GetTopicPrefix(),
		haConfig:    haCfg,
		entityID:    cfg.GetEntityID,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Enabled reports whether any destination is configured
func (p *Publisher) Enabled() bool {
	return p.client != nil || p.haConfig.Enabled
}

// Payload is the JSON document published for a stream
type Payload struct {
	Stream    models.Stream `json:"stream"`
	BillMonth string        `json:"bill_month"`
	Usage     string        `json:"usage"`
	Cost      string        `json:"cost"`
	Unit      string        `json:"unit"`
	Days      int           `json:"days"`
	Records   int           `json:"records"`
	From      string        `json:"from"`
	To        string        `json:"to"`
}

// NewPayload builds the payload for a bill-month total
func NewPayload(stream models.Stream, total report.BillMonthTotal) Payload {
	return Payload{
		Stream:    stream,
		BillMonth: total.Label,
		Usage:     total.Usage.StringFixed(3),
		Cost:      total.Cost.StringFixed(2),
		Unit:      total.Unit,
		Days:      total.Days,
		Records:   total.Records,
		From:      total.First.Format("2006-01-02T15:04:05"),
		To:        total.Last.Format("2006-01-02T15:04:05"),
	}
}

// Topic returns the MQTT topic for a stream
func (p *Publisher) Topic(stream models.Stream) string {
	return fmt.Sprintf("%s/%s/bill_month", strings.TrimSuffix(p.topicPrefix, "/"), stream)
}

// Publish sends the current bill-month total of a stream to every enabled destination
func (p *Publisher) Publish(ctx context.Context, stream models.Stream, total report.BillMonthTotal) error {
	payload := NewPayload(stream, total)

	if p.client != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}
		token := p.client.Publish(p.Topic(stream), 1, true, body)
		if !token.WaitTimeout(10 * time.Second) {
			return fmt.Errorf("publishing to %s: timed out", p.Topic(stream))
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publishing to %s: %w", p.Topic(stream), err)
		}
	}

	if p.haConfig.Enabled {
		if err := p.postState(ctx, p.entityID(stream), payload); err != nil {
			return err
		}
	}
	return nil
}

// HAState is the body of a Home Assistant state update
type HAState struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

func (p *Publisher) postState(ctx context.Context, entityID string, payload Payload) error {
	apiURL := fmt.Sprintf("%s/api/states/%s", strings.TrimSuffix(p.haConfig.URL, "/"), entityID)

	state := HAState{
		State: payload.Usage,
		Attributes: map[string]any{
			"unit_of_measurement": payload.Unit,
			"friendly_name":       fmt.Sprintf("%s bill month usage", payload.Stream),
			"bill_month":          payload.BillMonth,
			"cost":                payload.Cost,
			"days":                payload.Days,
			"from":                payload.From,
			"to":                  payload.To,
		},
	}

	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
