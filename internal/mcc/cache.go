// Package mcc maintains the merchant category code (MCC) classification
// cache and the client for the external industry classification service.
//
// The cache is an explicit key-value store passed by reference into a run
// and persisted at the end; it is never global. Access during a run is
// sequential, so no locking is needed.
package mcc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Entry is one cached classification result for a merchant.
type Entry struct {
	IndustryCode string  `json:"industry_code"`
	Certainty    float64 `json:"certainty"`
}

// Cache holds merchant name to classification mappings backed by a JSON file.
type Cache struct {
	path    string
	entries map[string]Entry
	dirty   bool
}

// LoadCache reads the cache file at path. A missing or unreadable file
// yields an empty cache: classification is an enrichment, never a gate.
func LoadCache(path string) *Cache {
	cache := &Cache{
		path:    path,
		entries: make(map[string]Entry),
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return cache
	}
	// A corrupt cache file is treated the same as a missing one.
	_ = json.Unmarshal(content, &cache.entries)

	return cache
}

// Get returns the cached entry for a merchant.
func (c *Cache) Get(merchant string) (Entry, bool) {
	entry, ok := c.entries[merchant]
	return entry, ok
}

// Len returns the number of cached merchants.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Missing returns the merchants from the given list that have no cache
// entry, sorted for deterministic lookup batches.
func (c *Cache) Missing(merchants []string) []string {
	seen := make(map[string]bool)
	var missing []string
	for _, merchant := range merchants {
		if merchant == "" || seen[merchant] {
			continue
		}
		seen[merchant] = true
		if _, ok := c.entries[merchant]; !ok {
			missing = append(missing, merchant)
		}
	}
	sort.Strings(missing)
	return missing
}

// Update merges lookup results into the cache.
func (c *Cache) Update(results map[string]Entry) {
	for merchant, entry := range results {
		c.entries[merchant] = entry
		c.dirty = true
	}
}

// Save persists the cache back to its file when it changed. Saving with no
// configured path is a no-op.
func (c *Cache) Save() error {
	if c.path == "" || !c.dirty {
		return nil
	}

	content, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode classification cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(c.path, content, 0644); err != nil {
		return fmt.Errorf("failed to write classification cache: %w", err)
	}

	c.dirty = false
	return nil
}

// ServiceMerchants collects the distinct merchants referenced by a benefit
// list, in first-seen order.
func ServiceMerchants(merchantLists [][]string) []string {
	seen := make(map[string]bool)
	var merchants []string
	for _, list := range merchantLists {
		for _, merchant := range list {
			if merchant == "" || seen[merchant] {
				continue
			}
			seen[merchant] = true
			merchants = append(merchants, merchant)
		}
	}
	return merchants
}
