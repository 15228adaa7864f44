package mcc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"card-profitability-service/pkg/logger"
)

// entryPattern extracts classification entries from the service's free-form
// response text: `"<merchant>": {"industry_code": "<code>", "certainty": <n>}`.
var entryPattern = regexp.MustCompile(`"([^"]+)":\s*\{\s*"industry_code":\s*"([^"]+)",\s*"certainty":\s*([0-9.]+)\s*\}`)

// ClientConfig configures the industry classification client.
type ClientConfig struct {
	Endpoint     string        `json:"endpoint"`
	APIKey       string        `json:"api_key"`
	Timeout      time.Duration `json:"timeout"`
	PollInterval time.Duration `json:"poll_interval"`
	BatchSize    int           `json:"batch_size"`
}

// DefaultClientConfig returns the client defaults. Endpoint and APIKey come
// from the environment; when either is unset, lookups are skipped.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:      60 * time.Second,
		PollInterval: 3 * time.Second,
		BatchSize:    30,
	}
}

// Enabled reports whether the client has enough configuration to run.
func (c *ClientConfig) Enabled() bool {
	return c.Endpoint != "" && c.APIKey != ""
}

// Client calls the external industry classification service. The service is
// conversational: a POST opens or continues a conversation and returns IDs,
// then the response is polled until it is ready or the timeout elapses.
type Client struct {
	config *ClientConfig
	http   *http.Client
	log    logger.Logger
}

// NewClient creates a classification client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		log:    logger.GetGlobalLogger().WithComponent("mcc_client"),
	}
}

// conversation tracks the service-side conversation across batches so
// follow-up batches reuse the same classification context.
type conversation struct {
	ConversationID string `json:"conversationId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
}

// LookupCodes classifies the given merchants, batching requests. Lookup is
// best-effort: failures and timeouts log a warning and yield partial or
// empty results, never an error that would stop the analysis run.
func (c *Client) LookupCodes(ctx context.Context, merchants []string) map[string]Entry {
	results := make(map[string]Entry)

	if !c.config.Enabled() {
		c.log.Warn("classification endpoint or API key not configured, skipping MCC lookup")
		return results
	}
	if len(merchants) == 0 {
		return results
	}

	conv := &conversation{}
	for start := 0; start < len(merchants); start += c.config.BatchSize {
		end := start + c.config.BatchSize
		if end > len(merchants) {
			end = len(merchants)
		}
		batch := merchants[start:end]
		c.log.Infof("classifying merchant batch %d (%d merchants)",
			start/c.config.BatchSize+1, len(batch))

		batchResults, err := c.classifyBatch(ctx, batch, conv)
		if err != nil {
			c.log.WithError(err).Warn("merchant classification batch failed")
			continue
		}
		for merchant, entry := range batchResults {
			results[merchant] = entry
		}
	}

	c.log.Infof("merchant classification finished: %d results", len(results))
	return results
}

// classifyBatch submits one batch and polls for its response.
func (c *Client) classifyBatch(ctx context.Context, merchants []string, conv *conversation) (map[string]Entry, error) {
	payload := map[string]interface{}{
		"text": strings.Join(merchants, "\n"),
		"mode": "chat",
	}
	if conv.ConversationID != "" {
		payload["conversationId"] = conv.ConversationID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode classification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.Endpoint+"/conversation", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classification request returned status %d", resp.StatusCode)
	}

	var submitted conversation
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return nil, fmt.Errorf("failed to decode classification response: %w", err)
	}
	if submitted.ConversationID != "" {
		conv.ConversationID = submitted.ConversationID
	}
	if submitted.MessageID != "" {
		conv.MessageID = submitted.MessageID
	}

	return c.pollResponse(ctx, conv)
}

// pollResponse polls the conversation endpoint until content arrives or the
// configured timeout elapses. A timeout yields empty results, not an error.
func (c *Client) pollResponse(ctx context.Context, conv *conversation) (map[string]Entry, error) {
	deadline := time.Now().Add(c.config.Timeout)

	for time.Now().Before(deadline) {
		content, err := c.fetchContent(ctx, conv)
		if err != nil {
			return nil, err
		}
		if content != "" {
			return ParseEntries(content), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.config.PollInterval):
		}
	}

	c.log.Warn("merchant classification polling timed out")
	return map[string]Entry{}, nil
}

// fetchContent retrieves the conversation message content, empty when the
// response is not ready yet.
func (c *Client) fetchContent(ctx context.Context, conv *conversation) (string, error) {
	url := fmt.Sprintf("%s/conversation/%s/%s",
		c.config.Endpoint, conv.ConversationID, conv.MessageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("classification poll failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var reply struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("failed to decode poll response: %w", err)
	}
	return reply.Message.Content, nil
}

// ParseEntries extracts classification entries from the service's response
// text. Entries that fail to parse are dropped.
func ParseEntries(content string) map[string]Entry {
	results := make(map[string]Entry)
	for _, match := range entryPattern.FindAllStringSubmatch(content, -1) {
		name, code := match[1], match[2]
		var certainty float64
		fmt.Sscanf(match[3], "%f", &certainty)
		results[name] = Entry{IndustryCode: code, Certainty: certainty}
	}
	return results
}
