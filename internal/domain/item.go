package domain

import (
	"fmt"
	"time"
)

// Category classifies a knowledge item for intent-aware ranking.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryFAQ         Category = "faq"
	CategoryProductInfo Category = "product_info"
	CategoryPricing     Category = "pricing"
	CategorySupport     Category = "support"
)

// KnowledgeItem is the unit of retrieval. Items are immutable once stored;
// a content change produces a replacement record with a new LastUpdated.
type KnowledgeItem struct {
	ID          string
	Title       string
	Content     string
	Category    Category
	Tags        []string
	Source      string
	SourceURL   string
	ContentHash string
	Embedding   []float32
	LastUpdated time.Time
}

// RelevanceResult annotates a knowledge item with a score computed for one
// specific query. Scores are never written back to the stored item.
type RelevanceResult struct {
	Item  KnowledgeItem
	Score float64
}

// ItemValidation reports the validation failures of a single item within a
// batch. Batch validation never aborts on the first bad item.
type ItemValidation struct {
	ItemID string
	Errors []string
}

// ValidateKnowledgeItem validates a KnowledgeItem instance
func ValidateKnowledgeItem(item *KnowledgeItem) error {
	if item == nil {
		return fmt.Errorf("knowledge item cannot be nil")
	}

	if item.ID == "" {
		return fmt.Errorf("knowledge item ID is required")
	}

	if item.Title == "" {
		return fmt.Errorf("knowledge item Title is required")
	}

	if item.Content == "" {
		return fmt.Errorf("knowledge item Content is required")
	}

	if !isValidCategory(item.Category) {
		return fmt.Errorf("knowledge item Category is invalid: %s", item.Category)
	}

	if item.LastUpdated.After(time.Now().UTC().Add(time.Minute)) {
		return fmt.Errorf("knowledge item LastUpdated cannot be in the future")
	}

	return nil
}

// ValidateKnowledgeItems validates a batch and reports per-item failures
// instead of failing the whole batch.
func ValidateKnowledgeItems(items []KnowledgeItem) []ItemValidation {
	var report []ItemValidation
	for i := range items {
		item := &items[i]
		var errs []string

		if item.ID == "" {
			errs = append(errs, "missing id")
		}
		if item.Title == "" {
			errs = append(errs, "missing title")
		}
		if item.Content == "" {
			errs = append(errs, "missing content")
		}
		if !isValidCategory(item.Category) {
			errs = append(errs, fmt.Sprintf("invalid category %q", item.Category))
		}
		if item.LastUpdated.After(time.Now().UTC().Add(time.Minute)) {
			errs = append(errs, "last updated is in the future")
		}

		if len(errs) > 0 {
			report = append(report, ItemValidation{ItemID: item.ID, Errors: errs})
		}
	}
	return report
}

// isValidCategory checks if a Category is valid
func isValidCategory(c Category) bool {
	switch c {
	case CategoryGeneral, CategoryFAQ, CategoryProductInfo, CategoryPricing, CategorySupport:
		return true
	}
	return false
}
