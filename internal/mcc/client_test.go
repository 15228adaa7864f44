package mcc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseEntries(t *testing.T) {
	content := `Here are the classifications:
{
  "starbucks": {"industry_code": "5462", "certainty": 0.95},
  "emart": {"industry_code": "5411", "certainty": 0.8}
}
Let me know if you need more.`

	entries := ParseEntries(content)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	starbucks, ok := entries["starbucks"]
	if !ok {
		t.Fatal("Expected starbucks entry")
	}
	if starbucks.IndustryCode != "5462" || starbucks.Certainty != 0.95 {
		t.Errorf("Expected {5462 0.95}, got %+v", starbucks)
	}
}

func TestParseEntriesNoMatches(t *testing.T) {
	entries := ParseEntries("I could not classify any of these merchants.")
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestLookupCodesDisabled(t *testing.T) {
	client := NewClient(DefaultClientConfig())
	results := client.LookupCodes(context.Background(), []string{"starbucks"})
	if len(results) != 0 {
		t.Errorf("Expected no results without endpoint configuration, got %d", len(results))
	}
}

func TestLookupCodesEmptyInput(t *testing.T) {
	config := DefaultClientConfig()
	config.Endpoint = "http://localhost:1"
	config.APIKey = "test-key"

	client := NewClient(config)
	results := client.LookupCodes(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("Expected no results for empty input, got %d", len(results))
	}
}

func TestLookupCodesConversationFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/conversation":
			json.NewEncoder(w).Encode(map[string]string{
				"conversationId": "conv-1",
				"messageId":      "msg-1",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/conversation/conv-1/msg-1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message": map[string]string{
					"content": `{"starbucks": {"industry_code": "5462", "certainty": 0.95}}`,
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	config := DefaultClientConfig()
	config.Endpoint = server.URL
	config.APIKey = "test-key"
	config.PollInterval = 10 * time.Millisecond

	client := NewClient(config)
	results := client.LookupCodes(context.Background(), []string{"starbucks"})

	entry, ok := results["starbucks"]
	if !ok {
		t.Fatal("Expected starbucks to be classified")
	}
	if entry.IndustryCode != "5462" {
		t.Errorf("Expected industry code 5462, got %s", entry.IndustryCode)
	}
}

func TestLookupCodesBatchFailureIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := DefaultClientConfig()
	config.Endpoint = server.URL
	config.APIKey = "test-key"

	client := NewClient(config)
	results := client.LookupCodes(context.Background(), []string{"starbucks"})
	if len(results) != 0 {
		t.Errorf("Expected empty results on server failure, got %d", len(results))
	}
}

func TestLookupCodesPollingTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{
				"conversationId": "conv-1",
				"messageId":      "msg-1",
			})
			return
		}
		// Never ready.
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	config := DefaultClientConfig()
	config.Endpoint = server.URL
	config.APIKey = "test-key"
	config.Timeout = 50 * time.Millisecond
	config.PollInterval = 10 * time.Millisecond

	client := NewClient(config)
	results := client.LookupCodes(context.Background(), []string{"starbucks"})
	if len(results) != 0 {
		t.Errorf("Expected a timed-out lookup to yield no results, got %d", len(results))
	}
}
