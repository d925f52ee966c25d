package vector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loomrt/loom/pkg/memory"
	"github.com/loomrt/loom/pkg/schema"
)

// Document is one retrieval hit entering the RAG context pipeline — a
// Match reshaped for ranking/windowing/compression, which no longer
// need the vector itself.
type Document struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]any
}

// MatchesToDocuments adapts Provider.Query results into pipeline input.
func MatchesToDocuments(matches []Match) []Document {
	docs := make([]Document, len(matches))
	for i, m := range matches {
		docs[i] = Document{ID: m.ID, Content: m.Content, Score: m.Score, Metadata: m.Metadata}
	}
	return docs
}

// RankingStrategy selects how retrieved documents are ordered before
// window selection, per §4.8 step 2.
type RankingStrategy struct {
	Kind RankingKind
	// Hybrid weights, used only when Kind == RankingHybrid.
	RelevanceWeight, RecencyWeight, LengthWeight float32
}

type RankingKind string

const (
	RankingRelevance RankingKind = "relevance"
	RankingRecency   RankingKind = "recency"
	RankingLength    RankingKind = "length"
	RankingHybrid    RankingKind = "hybrid"
)

// WindowStrategy selects how many (and which) ranked documents are
// admitted into the context, per §4.8 step 3. Grounded on
// original_source/lumosai_rag/src/context/window.rs's four strategies.
type WindowStrategy struct {
	Kind WindowKind
	// Sliding
	Overlap int
	// Adaptive
	MinDocuments, MaxDocuments int
	// Hierarchical
	Levels []int
}

type WindowKind string

const (
	WindowFixed       WindowKind = "fixed"
	WindowSliding     WindowKind = "sliding"
	WindowAdaptive    WindowKind = "adaptive"
	WindowHierarchical WindowKind = "hierarchical"
)

// CompressionStrategy reduces the admitted document set's size, per
// §4.8 step 4.
type CompressionStrategy struct {
	Kind CompressionKind
	// KeepTopSentences
	MaxSentences int
	// Summarization
	MaxLength int
}

type CompressionKind string

const (
	CompressionNone        CompressionKind = ""
	CompressionDedup       CompressionKind = "dedup"
	CompressionTopSentences CompressionKind = "keep_top_sentences"
	CompressionSummarize   CompressionKind = "summarize"
	CompressionHybrid      CompressionKind = "hybrid"
)

// ContextConfig parameterizes BuildContext, mirroring the original
// implementation's ContextConfig (lumosai_rag context/mod.rs).
type ContextConfig struct {
	MaxDocuments    int
	MaxTokens       int
	Ranking         RankingStrategy
	Window          WindowStrategy
	Compression     CompressionStrategy
	MinRelevanceScore *float32
	Estimator       memory.TokenEstimator
}

// ManagedContext is the post-retrieval, post-ranking, post-compression
// document set injected into the message list before the executor's
// Initial step (§4.8 step 5).
type ManagedContext struct {
	Documents        []Document
	TotalTokens       int
	CompressionRatio float32
}

// ToPromptBlock serializes the managed context as a single text block
// for insertion into the message list.
func (c ManagedContext) ToPromptBlock() string {
	parts := make([]string, len(c.Documents))
	for i, d := range c.Documents {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}

// BuildContext runs the full §4.8 pipeline: minimum-score filter,
// ranking, window selection, optional compression.
func BuildContext(cfg ContextConfig, documents []Document) (ManagedContext, error) {
	estimator := cfg.Estimator
	if estimator == nil {
		estimator = memory.NewTiktokenEstimator()
	}

	original := documents
	filtered := documents
	if cfg.MinRelevanceScore != nil {
		filtered = make([]Document, 0, len(documents))
		for _, d := range documents {
			if d.Score >= *cfg.MinRelevanceScore {
				filtered = append(filtered, d)
			}
		}
	}

	ranked := rank(cfg.Ranking, filtered)

	windowed, err := applyWindow(cfg.Window, ranked, cfg.MaxDocuments, cfg.MaxTokens, estimator)
	if err != nil {
		return ManagedContext{}, err
	}

	compressed := compress(cfg.Compression, windowed)

	totalTokens := countTokens(estimator, compressed)
	ratio := compressionRatio(estimator, original, compressed)

	return ManagedContext{Documents: compressed, TotalTokens: totalTokens, CompressionRatio: ratio}, nil
}

func countTokens(estimator memory.TokenEstimator, docs []Document) int {
	total := 0
	for _, d := range docs {
		total += estimator.CountMessage(schema.Message{Content: d.Content})
	}
	return total
}

func compressionRatio(estimator memory.TokenEstimator, original, compressed []Document) float32 {
	originalTokens := countTokens(estimator, original)
	if originalTokens == 0 {
		return 1.0
	}
	return float32(countTokens(estimator, compressed)) / float32(originalTokens)
}

// rank orders documents by the configured strategy, highest first.
func rank(s RankingStrategy, docs []Document) []Document {
	out := make([]Document, len(docs))
	copy(out, docs)

	var key func(Document) float64
	switch s.Kind {
	case RankingRecency:
		key = recencyScore
	case RankingLength:
		key = func(d Document) float64 { return float64(len(d.Content)) }
	case RankingHybrid:
		maxLen := 1.0
		for _, d := range docs {
			if l := float64(len(d.Content)); l > maxLen {
				maxLen = l
			}
		}
		key = func(d Document) float64 {
			return float64(s.RelevanceWeight)*float64(d.Score) +
				float64(s.RecencyWeight)*recencyScore(d) +
				float64(s.LengthWeight)*(float64(len(d.Content))/maxLen)
		}
	default: // RankingRelevance
		key = func(d Document) float64 { return float64(d.Score) }
	}

	sort.SliceStable(out, func(i, j int) bool { return key(out[i]) > key(out[j]) })
	return out
}

// recencyScore extracts a "timestamp" metadata field (RFC3339 string
// or unix seconds) and maps it onto [0,1], newest highest. Documents
// without a timestamp sort last.
func recencyScore(d Document) float64 {
	ts, ok := d.Metadata["timestamp"]
	if !ok {
		return 0
	}
	var t time.Time
	switch v := ts.(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return 0
		}
		t = parsed
	case int64:
		t = time.Unix(v, 0)
	case float64:
		t = time.Unix(int64(v), 0)
	default:
		return 0
	}
	age := time.Since(t).Hours()
	if age < 0 {
		age = 0
	}
	return 1.0 / (1.0 + age)
}

// applyWindow admits a bounded subset of ranked documents, grounded on
// original_source/lumosai_rag/src/context/window.rs's four strategies.
func applyWindow(s WindowStrategy, docs []Document, maxDocs, maxTokens int, estimator memory.TokenEstimator) ([]Document, error) {
	if maxDocs <= 0 {
		maxDocs = len(docs)
	}

	switch s.Kind {
	case WindowSliding:
		return slidingWindow(docs, maxDocs, maxTokens, s.Overlap, estimator), nil
	case WindowAdaptive:
		return adaptiveWindow(docs, maxDocs, maxTokens, s.MinDocuments, s.MaxDocuments, estimator), nil
	case WindowHierarchical:
		return hierarchicalWindow(docs, maxDocs, maxTokens, s.Levels, estimator), nil
	default:
		return fixedWindow(docs, maxDocs, maxTokens, estimator), nil
	}
}

func fixedWindow(docs []Document, maxDocs, maxTokens int, estimator memory.TokenEstimator) []Document {
	if len(docs) > maxDocs {
		docs = docs[:maxDocs]
	}
	out := make([]Document, 0, len(docs))
	total := 0
	for _, d := range docs {
		n := estimator.CountMessage(schema.Message{Content: d.Content})
		if total+n > maxTokens {
			break
		}
		total += n
		out = append(out, d)
	}
	return out
}

func slidingWindow(docs []Document, maxDocs, maxTokens, overlap int, estimator memory.TokenEstimator) []Document {
	if len(docs) <= maxDocs {
		return fixedWindow(docs, maxDocs, maxTokens, estimator)
	}
	if overlap >= maxDocs {
		overlap = maxDocs - 1
	}

	out := make([]Document, 0, maxDocs)
	total := 0
	stride := maxDocs - overlap
	if stride <= 0 {
		stride = 1
	}

	for i, d := range docs {
		if i > 0 && i%stride == 0 {
			keepFrom := len(out)
			if keepFrom > overlap {
				keepFrom = len(out) - overlap
			} else {
				keepFrom = 0
			}
			out = out[:keepFrom]
			total = countTokens(estimator, out)
		}
		n := estimator.CountMessage(schema.Message{Content: d.Content})
		if total+n > maxTokens {
			break
		}
		total += n
		out = append(out, d)
	}
	return out
}

func adaptiveWindow(docs []Document, maxDocs, maxTokens, minSize, maxSize int, estimator memory.TokenEstimator) []Document {
	if maxSize <= 0 {
		maxSize = maxDocs
	}

	var avg float64
	for _, d := range docs {
		avg += float64(d.Score)
	}
	if len(docs) > 0 {
		avg /= float64(len(docs))
	}
	threshold := avg * 0.8

	out := make([]Document, 0, maxSize)
	total := 0
	for _, d := range docs {
		n := estimator.CountMessage(schema.Message{Content: d.Content})

		var admit bool
		if float64(d.Score) >= threshold {
			admit = len(out) < maxSize && total+n <= maxTokens*2
		} else {
			admit = len(out) < maxDocs && total+n <= maxTokens
		}

		if admit {
			total += n
			out = append(out, d)
		} else if len(out) >= minSize {
			break
		}
	}
	return out
}

func hierarchicalWindow(docs []Document, maxDocs, maxTokens int, levels []int, estimator memory.TokenEstimator) []Document {
	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	out := make([]Document, 0, maxDocs)
	total := 0
	level := 0
	for _, d := range sorted {
		for level < len(levels) && len(out) >= levels[level] {
			level++
		}
		if level >= len(levels) || len(out) >= maxDocs {
			break
		}
		n := estimator.CountMessage(schema.Message{Content: d.Content})
		if total+n > maxTokens {
			break
		}
		total += n
		out = append(out, d)
	}
	return out
}

// compress reduces the admitted document set, per §4.8 step 4.
func compress(s CompressionStrategy, docs []Document) []Document {
	switch s.Kind {
	case CompressionDedup:
		return dedupe(docs)
	case CompressionTopSentences:
		return keepTopSentences(docs, s.MaxSentences)
	case CompressionSummarize:
		return summarize(docs, s.MaxLength)
	case CompressionHybrid:
		return keepTopSentences(dedupe(docs), s.MaxSentences)
	default:
		return docs
	}
}

// dedupe drops documents whose content is a near-duplicate (identical
// after whitespace normalization) of one already kept.
func dedupe(docs []Document) []Document {
	seen := make(map[string]bool, len(docs))
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		key := strings.Join(strings.Fields(strings.ToLower(d.Content)), " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

func keepTopSentences(docs []Document, maxSentences int) []Document {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		sentences := splitSentences(d.Content)
		if len(sentences) > maxSentences {
			sentences = sentences[:maxSentences]
		}
		out[i] = Document{ID: d.ID, Score: d.Score, Metadata: d.Metadata, Content: strings.Join(sentences, " ")}
	}
	return out
}

func summarize(docs []Document, maxLength int) []Document {
	if maxLength <= 0 {
		maxLength = 200
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		content := d.Content
		if len(content) > maxLength {
			content = strings.TrimSpace(content[:maxLength]) + "…"
		}
		out[i] = Document{ID: d.ID, Score: d.Score, Metadata: d.Metadata, Content: content}
	}
	return out
}

func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '!' || r == '?' })
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, fmt.Sprintf("%s.", s))
		}
	}
	return out
}
