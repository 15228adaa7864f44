// Package matcher implements benefit matching: deciding which single benefit,
// if any, a transaction qualifies for.
//
// Benefits are tried strictly in the card product's declared mapping order
// and the first match wins. There is no best-rate selection among multiple
// eligible benefits; a transaction that matches nothing is not an error.
package matcher

import (
	"fmt"
	"strings"

	"card-profitability-service/internal/models"
)

// Engine matches transactions against a card's ordered benefit list.
type Engine struct {
	Config   *Config
	order    []string
	services map[string]*models.Benefit
}

// NewEngine creates a matching engine for one card product. The order slice
// is the product's service mapping; services maps service IDs to benefits.
func NewEngine(config *Config, order []string, services map[string]*models.Benefit) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher configuration: %w", err)
	}

	return &Engine{
		Config:   config,
		order:    append([]string(nil), order...),
		services: services,
	}, nil
}

// Match returns the first benefit, in declared order, whose merchant criteria
// match the record. Service IDs in the mapping with no service definition are
// skipped, as are benefits without a merchant list.
func (e *Engine) Match(rec models.Record) (*models.Benefit, bool) {
	name, ok := rec.MerchantName()
	if !ok {
		return nil, false
	}

	for _, serviceID := range e.order {
		benefit, ok := e.services[serviceID]
		if !ok || len(benefit.Merchants) == 0 {
			continue
		}
		if e.matchesBenefit(name, rec, benefit) {
			return benefit, true
		}
	}

	return nil, false
}

// matchesBenefit checks one benefit's merchant criteria against a record.
// The substring test is bidirectional on purpose: benefit catalogs abbreviate
// merchant names and acquirer feeds append branch suffixes, so either side
// may be the longer string.
func (e *Engine) matchesBenefit(merchantName string, rec models.Record, benefit *models.Benefit) bool {
	for _, merchant := range benefit.Merchants {
		if merchant == "" {
			continue
		}
		if strings.Contains(merchantName, merchant) || strings.Contains(merchant, merchantName) {
			return true
		}
		if merchant == e.Config.CafeToken && e.IsCafeTransaction(merchantName, rec) {
			return true
		}
	}
	return false
}

// IsCafeTransaction applies the built-in cafe heuristic: the merchant name
// contains a known cafe brand keyword, or the record's category code equals
// the cafe MCC.
func (e *Engine) IsCafeTransaction(merchantName string, rec models.Record) bool {
	lowered := strings.ToLower(merchantName)
	for _, keyword := range e.Config.CafeKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}

	if code, ok := rec.CategoryCode(); ok && code == e.Config.CafeCategoryCode {
		return true
	}

	return false
}

// Order returns the engine's benefit match order.
func (e *Engine) Order() []string {
	return append([]string(nil), e.order...)
}
