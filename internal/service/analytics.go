package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/quillbase-ai/quillbase/internal/domain"
)

// HealthConfig controls corpus analytics thresholds and weights.
type HealthConfig struct {
	StaleAfter       time.Duration
	CompletenessWt   float64
	FreshnessWt      float64
	StructureWt      float64
	TagCoverageWt    float64
	DuplicatePenalty float64
}

// DefaultHealthConfig provides the default analytics settings.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		StaleAfter:       90 * 24 * time.Hour,
		CompletenessWt:   0.35,
		FreshnessWt:      0.25,
		StructureWt:      0.2,
		TagCoverageWt:    0.2,
		DuplicatePenalty: 0.5,
	}
}

// HealthReport holds corpus-level quality metrics. Advisory only: it never
// blocks ingestion or retrieval.
type HealthReport struct {
	ItemCount             int
	Completeness          float64
	Freshness             float64
	StructuralConsistency float64
	TagCoverage           float64
	DuplicateRate         float64
	HealthScore           float64
	StaleItemIDs          []string
	Alerts                []string
	Recommendations       []string
}

var structureRe = regexp.MustCompile(`(?m)(^#{1,6}\s|^[-*•]\s|^\d+[.)]\s)`)

// AnalyzeCorpus computes corpus health metrics for maintenance, not for
// per-query ranking.
func AnalyzeCorpus(items []domain.KnowledgeItem, now time.Time, cfg HealthConfig) HealthReport {
	if cfg.StaleAfter <= 0 {
		cfg = DefaultHealthConfig()
	}

	report := HealthReport{ItemCount: len(items)}
	if len(items) == 0 {
		report.Alerts = append(report.Alerts, "corpus is empty")
		return report
	}

	complete := 0
	fresh := 0
	structured := 0
	tagged := 0

	for _, item := range items {
		if item.Title != "" && strings.TrimSpace(item.Content) != "" && len(item.Tags) > 0 {
			complete++
		}
		if !item.LastUpdated.IsZero() && now.Sub(item.LastUpdated) <= cfg.StaleAfter {
			fresh++
		} else {
			report.StaleItemIDs = append(report.StaleItemIDs, item.ID)
		}
		if structureRe.MatchString(item.Content) {
			structured++
		}
		if len(item.Tags) > 0 {
			tagged++
		}
	}

	n := float64(len(items))
	report.Completeness = float64(complete) / n
	report.Freshness = float64(fresh) / n
	report.StructuralConsistency = float64(structured) / n
	report.TagCoverage = float64(tagged) / n

	duplicated := 0
	for _, group := range FindExactDuplicates(items) {
		duplicated += len(group.Items) - 1
	}
	report.DuplicateRate = float64(duplicated) / n

	base := cfg.CompletenessWt*report.Completeness +
		cfg.FreshnessWt*report.Freshness +
		cfg.StructureWt*report.StructuralConsistency +
		cfg.TagCoverageWt*report.TagCoverage
	report.HealthScore = clamp01(base * (1 - cfg.DuplicatePenalty*report.DuplicateRate))

	report.Alerts, report.Recommendations = adviseOnHealth(report, cfg)
	return report
}

func adviseOnHealth(report HealthReport, cfg HealthConfig) (alerts, recommendations []string) {
	staleDays := int(cfg.StaleAfter.Hours() / 24)

	if report.Freshness < 0.5 {
		alerts = append(alerts, fmt.Sprintf("over half the corpus is older than %d days", staleDays))
	}
	if report.DuplicateRate > 0.1 {
		alerts = append(alerts, "duplicate rate exceeds 10%")
	}
	if report.Completeness < 0.7 {
		recommendations = append(recommendations, "add titles and tags to incomplete items")
	}
	if len(report.StaleItemIDs) > 0 {
		recommendations = append(recommendations, fmt.Sprintf("review %d stale items", len(report.StaleItemIDs)))
	}
	if report.TagCoverage < 0.5 {
		recommendations = append(recommendations, "tag coverage is low; retrieval ranking loses a secondary signal")
	}
	return alerts, recommendations
}
