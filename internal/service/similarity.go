package service

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/quillbase-ai/quillbase/internal/domain"
)

const (
	contentJaccardWeight = 0.6
	titleJaccardWeight   = 0.25
	tagJaccardWeight     = 0.15

	// DefaultNearDuplicateThreshold flags pairs for review.
	DefaultNearDuplicateThreshold = 0.7
	// DefaultClusterThreshold is looser, grouping related content.
	DefaultClusterThreshold = 0.6
)

// DuplicateGroup holds items sharing an exact content hash.
type DuplicateGroup struct {
	ContentHash string
	Items       []domain.KnowledgeItem
}

// NearDuplicatePair reports two items whose combined similarity met the
// threshold.
type NearDuplicatePair struct {
	A          domain.KnowledgeItem
	B          domain.KnowledgeItem
	Similarity float64
}

// Cluster groups related items. By convention a cluster has at least two
// members; solo items are not reported.
type Cluster struct {
	Items      []domain.KnowledgeItem
	AvgPairSim float64
}

// ContentHash computes the dedup hash over the order-stable field
// concatenation title|content|source. Collision resistance is not a
// security concern here, only dedup quality.
func ContentHash(title, content, source string) string {
	h := fnv.New64a()
	h.Write([]byte(title))
	h.Write([]byte{'|'})
	h.Write([]byte(content))
	h.Write([]byte{'|'})
	h.Write([]byte(source))
	return fmt.Sprintf("%016x", h.Sum64())
}

// FindExactDuplicates groups items by content hash. Only groups with two or
// more members are returned, in first-seen order.
func FindExactDuplicates(items []domain.KnowledgeItem) []DuplicateGroup {
	byHash := make(map[string][]domain.KnowledgeItem, len(items))
	var order []string
	for _, item := range items {
		hash := item.ContentHash
		if hash == "" {
			hash = ContentHash(item.Title, item.Content, item.Source)
		}
		if _, ok := byHash[hash]; !ok {
			order = append(order, hash)
		}
		byHash[hash] = append(byHash[hash], item)
	}

	var groups []DuplicateGroup
	for _, hash := range order {
		if members := byHash[hash]; len(members) >= 2 {
			groups = append(groups, DuplicateGroup{ContentHash: hash, Items: members})
		}
	}
	return groups
}

// FindNearDuplicates runs the O(n²) pairwise comparison. Acceptable because
// a single organization's corpus is hundreds to low thousands of items.
func FindNearDuplicates(items []domain.KnowledgeItem, threshold float64) []NearDuplicatePair {
	if threshold <= 0 {
		threshold = DefaultNearDuplicateThreshold
	}

	var pairs []NearDuplicatePair
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			sim := CombinedSimilarity(items[i], items[j])
			if sim >= threshold {
				pairs = append(pairs, NearDuplicatePair{A: items[i], B: items[j], Similarity: sim})
			}
		}
	}
	return pairs
}

// ClusterItems performs greedy single-pass clustering in input order: each
// unclustered item pulls in every other unclustered item meeting the
// threshold. Clusters of size 1 are excluded from the output.
func ClusterItems(items []domain.KnowledgeItem, threshold float64) []Cluster {
	if threshold <= 0 {
		threshold = DefaultClusterThreshold
	}

	assigned := make([]bool, len(items))
	var clusters []Cluster

	for i := range items {
		if assigned[i] {
			continue
		}
		members := []int{i}
		assigned[i] = true

		var simSum float64
		for j := i + 1; j < len(items); j++ {
			if assigned[j] {
				continue
			}
			sim := CombinedSimilarity(items[i], items[j])
			if sim >= threshold {
				members = append(members, j)
				assigned[j] = true
				simSum += sim
			}
		}

		if len(members) < 2 {
			continue
		}

		cluster := Cluster{AvgPairSim: simSum / float64(len(members)-1)}
		for _, idx := range members {
			cluster.Items = append(cluster.Items, items[idx])
		}
		clusters = append(clusters, cluster)
	}

	return clusters
}

// CombinedSimilarity blends content, title and tag Jaccard scores.
func CombinedSimilarity(a, b domain.KnowledgeItem) float64 {
	content := jaccard(wordSet(a.Content), wordSet(b.Content))
	title := jaccard(wordSet(a.Title), wordSet(b.Title))
	tags := jaccard(tagSet(a.Tags), tagSet(b.Tags))
	return contentJaccardWeight*content + titleJaccardWeight*title + tagJaccardWeight*tags
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// wordSet tokenizes into lowercase words longer than two characters with
// punctuation stripped.
func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		word := strings.ToLower(field)
		if len(word) > 2 {
			set[word] = struct{}{}
		}
	}
	return set
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		clean := strings.ToLower(strings.TrimSpace(tag))
		if clean != "" {
			set[clean] = struct{}{}
		}
	}
	return set
}
