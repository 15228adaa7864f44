// Package parsers loads the JSON interchange files consumed by the analyzer:
// the card data file (products + services), per-customer transaction batches,
// and the customer group directory layout.
//
// Card data problems are terminal: a run without products or benefits would
// only produce misleading zeros. Transaction batch problems are recoverable:
// the affected customer is skipped and excluded from aggregates.
package parsers

import (
	stderrors "errors"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"card-profitability-service/internal/models"
	"card-profitability-service/pkg/errors"
)

// Recoverable batch conditions. A customer whose batch fails with one of
// these is skipped, never fatal.
var (
	ErrBatchUnreadable = stderrors.New("transaction batch is unreadable")
	ErrBatchNotArray   = stderrors.New("transaction batch is not a JSON array")
	ErrBatchEmpty      = stderrors.New("transaction batch is empty")
	ErrBatchShape      = stderrors.New("transaction batch first record lacks amount and merchant fields")
)

// LoadCardData loads and validates the card data file. The file must contain
// at least one card product; services may be empty (every transaction then
// simply matches nothing).
func LoadCardData(path string) (*models.CardData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return nil, errors.FileError(errors.CodeFileUnreadable, path, err)
	}

	var cardData models.CardData
	if err := json.Unmarshal(content, &cardData); err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, path, err)
	}

	if len(cardData.Products) == 0 {
		return nil, errors.AnalysisFailure(errors.CodeNoCardProducts,
			fmt.Sprintf("card data file declares no products: %s", path), nil)
	}

	return &cardData, nil
}

// LoadTransactionBatch loads one customer's transaction batch. The batch must
// be a non-empty JSON array whose first record exposes at least one accepted
// amount field and the merchant name field; anything else is a recoverable
// shape error and the customer is skipped by the caller.
func LoadTransactionBatch(path string) ([]models.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBatchUnreadable, path, err)
	}

	var records []models.Record
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBatchNotArray, path, err)
	}

	if err := validateBatchShape(records); err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}

	return records, nil
}

// validateBatchShape applies the first-record shape check: the batch is usable
// when its first record carries an accepted amount field and a merchant name
// field. Later records may still be individually malformed; those are skipped
// one by one during analysis.
func validateBatchShape(records []models.Record) error {
	if len(records) == 0 {
		return ErrBatchEmpty
	}
	first := records[0]
	if !first.HasAmountField() || !first.HasMerchantField() {
		return ErrBatchShape
	}
	return nil
}

// ListGroups returns the customer group directories under dir, sorted by name
// for deterministic processing order. A missing directory or an empty group
// list is terminal: the run would otherwise return misleading zeros.
func ListGroups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.FileError(errors.CodeDirectoryError, dir, err)
	}

	var groups []string
	for _, entry := range entries {
		if entry.IsDir() {
			groups = append(groups, entry.Name())
		}
	}
	sort.Strings(groups)

	if len(groups) == 0 {
		return nil, errors.AnalysisFailure(errors.CodeNoGroups,
			fmt.Sprintf("no customer groups found under: %s", dir), nil)
	}

	return groups, nil
}

// ListBatchFiles returns the *.json transaction batch files in a group
// directory, sorted by name. An unreadable group directory is recoverable;
// the caller decides whether to skip the group.
func ListBatchFiles(groupDir string) ([]string, error) {
	entries, err := os.ReadDir(groupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read group directory %s: %w", groupDir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			files = append(files, filepath.Join(groupDir, entry.Name()))
		}
	}
	sort.Strings(files)

	return files, nil
}

// CustomerName derives the customer identifier from a batch file path:
// the base name without the .json extension.
func CustomerName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
