package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mtl-refine-api/internal/domain/repository"
	"mtl-refine-api/pkg/errors"
	"mtl-refine-api/pkg/logger"
	"mtl-refine-api/pkg/metrics"
)

var tracer = otel.Tracer("analysis")

// SuggestionTypeCharacter 人名一致性建议类型
const SuggestionTypeCharacter = "character_name"

// SuggestionTypePlace 地名一致性建议类型
const SuggestionTypePlace = "place_name"

// ConsistencySuggestion 一致性建议
type ConsistencySuggestion struct {
	Type               string   `json:"type"`
	OriginalVariations []string `json:"original_variations"`
	SuggestedCanonical string   `json:"suggested_canonical"`
	Frequency          int      `json:"frequency"`
}

// ContextAnalysis 跨章节上下文分析结果
type ContextAnalysis struct {
	NovelID                int64                   `json:"novel_id"`
	CharacterNames         map[string]EntityInfo   `json:"character_names"`
	PlaceNames             map[string]EntityInfo   `json:"place_names"`
	ConsistencySuggestions []ConsistencySuggestion `json:"consistency_suggestions"`
	TotalUniqueTerms       int                     `json:"total_unique_terms"`
	ChaptersAnalyzed       int                     `json:"chapters_analyzed"`
}

// Analyzer 一致性分析器
// 只读操作，不修改词汇表
type Analyzer struct {
	novelRepo    repository.NovelRepository
	chapterRepo  repository.ChapterRepository
	glossaryRepo repository.GlossaryRepository
	extractor    *Extractor
	clusterer    *Clusterer
	maxEntities  int
}

// NewAnalyzer 创建一致性分析器
func NewAnalyzer(
	novelRepo repository.NovelRepository,
	chapterRepo repository.ChapterRepository,
	glossaryRepo repository.GlossaryRepository,
	extractor *Extractor,
	clusterer *Clusterer,
	maxEntities int,
) *Analyzer {
	if maxEntities <= 0 {
		maxEntities = 20
	}
	return &Analyzer{
		novelRepo:    novelRepo,
		chapterRepo:  chapterRepo,
		glossaryRepo: glossaryRepo,
		extractor:    extractor,
		clusterer:    clusterer,
		maxEntities:  maxEntities,
	}
}

// Analyze 分析小说全部章节的实体一致性
func (a *Analyzer) Analyze(ctx context.Context, novelID int64) (*ContextAnalysis, error) {
	ctx, span := tracer.Start(ctx, "analysis.Analyzer.Analyze")
	span.SetAttributes(attribute.Int64("novel_id", novelID))
	defer span.End()

	novel, err := a.novelRepo.GetByID(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if novel == nil {
		return nil, errors.ErrNovelNotFound
	}

	chapters, err := a.chapterRepo.ListByNovel(ctx, novelID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	var occurrences []EntityOccurrence
	for _, ch := range chapters {
		occurrences = append(occurrences, a.extractor.Extract(ch.OriginalContent, ch.ChapterNumber)...)
	}

	clusters := a.clusterer.Cluster(occurrences)

	terms, err := a.glossaryRepo.ListByNovel(ctx, novelID, repository.GlossaryFilter{ActiveOnly: true})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list glossary terms: %w", err)
	}

	// 活跃词条映射：小写 original_term -> preferred_term
	preferred := make(map[string]string, len(terms))
	for _, t := range terms {
		preferred[strings.ToLower(t.OriginalTerm)] = t.PreferredTerm
	}

	result := &ContextAnalysis{
		NovelID:          novelID,
		CharacterNames:   make(map[string]EntityInfo),
		PlaceNames:       make(map[string]EntityInfo),
		TotalUniqueTerms: len(clusters),
		ChaptersAnalyzed: len(chapters),
	}

	for _, cluster := range clusters {
		switch cluster.Label {
		case LabelPlace:
			result.PlaceNames[Normalize(cluster.CanonicalForm)] = cluster
		default:
			result.CharacterNames[Normalize(cluster.CanonicalForm)] = cluster
		}

		if len(cluster.Variations) < 2 {
			continue
		}
		if coveredByGlossary(cluster.Variations, preferred) {
			continue
		}

		suggestionType := SuggestionTypeCharacter
		if cluster.Label == LabelPlace {
			suggestionType = SuggestionTypePlace
		}
		result.ConsistencySuggestions = append(result.ConsistencySuggestions, ConsistencySuggestion{
			Type:               suggestionType,
			OriginalVariations: cluster.Variations,
			SuggestedCanonical: cluster.CanonicalForm,
			Frequency:          cluster.Frequency,
		})
	}

	sort.Slice(result.ConsistencySuggestions, func(i, j int) bool {
		si, sj := result.ConsistencySuggestions[i], result.ConsistencySuggestions[j]
		if si.Frequency != sj.Frequency {
			return si.Frequency > sj.Frequency
		}
		return si.SuggestedCanonical < sj.SuggestedCanonical
	})

	result.CharacterNames = topEntities(result.CharacterNames, a.maxEntities)
	result.PlaceNames = topEntities(result.PlaceNames, a.maxEntities)

	metrics.AnalysisTotal.Inc()
	metrics.AnalysisSuggestions.Observe(float64(len(result.ConsistencySuggestions)))

	logger.FromContext(ctx).Info("context analysis completed",
		"novel_id", novelID,
		"chapters", result.ChaptersAnalyzed,
		"unique_terms", result.TotalUniqueTerms,
		"suggestions", len(result.ConsistencySuggestions),
	)

	return result, nil
}

// coveredByGlossary 判断聚类的所有变体是否已映射到同一个首选词
func coveredByGlossary(variations []string, preferred map[string]string) bool {
	var target string
	for i, v := range variations {
		p, ok := preferred[strings.ToLower(v)]
		if !ok {
			return false
		}
		if i == 0 {
			target = p
			continue
		}
		if p != target {
			return false
		}
	}
	return true
}

// topEntities 按频率保留前 n 个条目
func topEntities(entities map[string]EntityInfo, n int) map[string]EntityInfo {
	if len(entities) <= n {
		return entities
	}

	keys := make([]string, 0, len(entities))
	for k := range entities {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if entities[keys[i]].Frequency != entities[keys[j]].Frequency {
			return entities[keys[i]].Frequency > entities[keys[j]].Frequency
		}
		return keys[i] < keys[j]
	})

	trimmed := make(map[string]EntityInfo, n)
	for _, k := range keys[:n] {
		trimmed[k] = entities[k]
	}
	return trimmed
}
