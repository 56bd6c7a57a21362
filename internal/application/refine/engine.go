package refine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/pkg/errors"
	"mtl-refine-api/pkg/metrics"
)

var tracer = otel.Tracer("refine")

// ChangeTypeGlossary 词汇表替换类修改
const ChangeTypeGlossary = "glossary_substitution"

// ChangeTypeStyle 改写服务未报告类别时的默认修改类型
const ChangeTypeStyle = "style_correction"

// Change 润色过程中的单项修改记录
type Change struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// RefinementResult 润色结果，产出后不可变
type RefinementResult struct {
	OriginalText    string   `json:"original_text"`
	RefinedText     string   `json:"refined_text"`
	Changes         []Change `json:"changes_made"`
	ConfidenceScore float64  `json:"confidence_score"`
	ProcessingTime  float64  `json:"processing_time"`
}

// Engine 润色引擎：词汇表替换 + 外部改写
type Engine struct {
	rewriter Rewriter
	minLen   int
	maxLen   int
}

// NewEngine 创建润色引擎
func NewEngine(rewriter Rewriter, minLen, maxLen int) *Engine {
	if minLen <= 0 {
		minLen = 10
	}
	if maxLen <= 0 {
		maxLen = 50000
	}
	return &Engine{
		rewriter: rewriter,
		minLen:   minLen,
		maxLen:   maxLen,
	}
}

// validateText 文本长度校验，在调用外部服务前执行
func (e *Engine) validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.ErrValidationFailed.WithDetail("text is empty")
	}
	n := utf8.RuneCountInString(text)
	if n < e.minLen {
		return errors.ErrValidationFailed.WithDetail(
			fmt.Sprintf("text is shorter than %d characters", e.minLen))
	}
	if n > e.maxLen {
		return errors.ErrValidationFailed.WithDetail(
			fmt.Sprintf("text exceeds %d characters", e.maxLen))
	}
	return nil
}

// Refine 润色一段文本
// terms 为活跃词条，为空表示不做词汇表替换
// 返回结果与各词条的替换次数
func (e *Engine) Refine(ctx context.Context, novelID int64, text string, terms []*entity.GlossaryTerm) (*RefinementResult, map[int64]int, error) {
	ctx, span := tracer.Start(ctx, "refine.Engine.Refine")
	span.SetAttributes(
		attribute.Int64("novel_id", novelID),
		attribute.Int("text_length", utf8.RuneCountInString(text)),
		attribute.Int("glossary_terms", len(terms)),
	)
	defer span.End()

	if err := e.validateText(text); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	original := text
	var changes []Change

	adjusted, glossaryChanges, termUsage := applyGlossary(text, terms)
	changes = append(changes, glossaryChanges...)

	rewritten, err := e.rewriter.Rewrite(ctx, novelID, adjusted)
	if err != nil {
		span.RecordError(err)
		return nil, nil, errors.ErrRewriteFailed.WithError(err)
	}

	for _, edit := range rewritten.Edits {
		category := edit.Category
		if category == "" {
			category = ChangeTypeStyle
		}
		changes = append(changes, Change{Type: category, Description: edit.Description})
	}

	confidence := confidenceScore(original, rewritten.Text, rewritten.Confidence)
	metrics.RefinementConfidence.Observe(confidence)

	result := &RefinementResult{
		OriginalText:    original,
		RefinedText:     rewritten.Text,
		Changes:         changes,
		ConfidenceScore: confidence,
		ProcessingTime:  time.Since(start).Seconds(),
	}
	return result, termUsage, nil
}

// applyGlossary 按最长匹配优先做词汇表替换
// 专有名词启用词边界，所有匹配大小写不敏感
func applyGlossary(text string, terms []*entity.GlossaryTerm) (string, []Change, map[int64]int) {
	var changes []Change
	usage := make(map[int64]int)

	applicable := make([]*entity.GlossaryTerm, 0, len(terms))
	for _, t := range terms {
		if !t.IsActive || t.OriginalTerm == "" || t.OriginalTerm == t.PreferredTerm {
			continue
		}
		applicable = append(applicable, t)
	}
	// 长词优先，避免短词破坏长词的匹配
	sort.SliceStable(applicable, func(i, j int) bool {
		return utf8.RuneCountInString(applicable[i].OriginalTerm) > utf8.RuneCountInString(applicable[j].OriginalTerm)
	})

	for _, t := range applicable {
		pattern := `(?i)` + regexp.QuoteMeta(t.OriginalTerm)
		if t.IsProperNoun() {
			pattern = `(?i)\b` + regexp.QuoteMeta(t.OriginalTerm) + `\b`
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}

		count := len(re.FindAllStringIndex(text, -1))
		if count == 0 {
			continue
		}

		text = re.ReplaceAllString(text, t.PreferredTerm)
		usage[t.ID] += count
		changes = append(changes, Change{
			Type:        ChangeTypeGlossary,
			Description: fmt.Sprintf("replaced '%s' with '%s'", t.OriginalTerm, t.PreferredTerm),
		})
		metrics.GlossarySubstitutionsTotal.Add(float64(count))
	}

	return text, changes, usage
}

// confidenceScore 计算置信度
// 优先采用服务自报分值，否则按保留词比例推算，最终限制在 [0,1]
func confidenceScore(original, refined string, reported *float64) float64 {
	if reported != nil {
		return clamp01(*reported)
	}

	originalTokens := strings.Fields(original)
	refinedTokens := strings.Fields(refined)
	if len(refinedTokens) == 0 {
		return 0
	}

	counts := make(map[string]int, len(originalTokens))
	for _, tok := range originalTokens {
		counts[strings.ToLower(tok)]++
	}

	retained := 0
	for _, tok := range refinedTokens {
		key := strings.ToLower(tok)
		if counts[key] > 0 {
			counts[key]--
			retained++
		}
	}

	total := len(refinedTokens)
	if len(originalTokens) > total {
		total = len(originalTokens)
	}
	return clamp01(float64(retained) / float64(total))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
