package refine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/pkg/errors"
)

// stubRewriter 回显输入，可注入自定义行为
type stubRewriter struct {
	fn func(ctx context.Context, novelID int64, text string) (*RewriteResult, error)
}

func (s *stubRewriter) Rewrite(ctx context.Context, novelID int64, text string) (*RewriteResult, error) {
	if s.fn != nil {
		return s.fn(ctx, novelID, text)
	}
	return &RewriteResult{Text: text}, nil
}

func echoEngine() *Engine {
	return NewEngine(&stubRewriter{}, 10, 50000)
}

func term(id int64, original, preferred, termType string) *entity.GlossaryTerm {
	return &entity.GlossaryTerm{
		ID:            id,
		NovelID:       1,
		OriginalTerm:  original,
		PreferredTerm: preferred,
		TermType:      termType,
		IsActive:      true,
	}
}

func TestEngine_Refine_Validation(t *testing.T) {
	ctx := context.Background()
	e := echoEngine()

	t.Run("empty text", func(t *testing.T) {
		_, _, err := e.Refine(ctx, 1, "   ", nil)
		assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))
	})

	t.Run("below minimum", func(t *testing.T) {
		_, _, err := e.Refine(ctx, 1, strings.Repeat("a", 9), nil)
		assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))
	})

	t.Run("exactly minimum", func(t *testing.T) {
		_, _, err := e.Refine(ctx, 1, strings.Repeat("a", 10), nil)
		assert.NoError(t, err)
	})

	t.Run("exactly maximum", func(t *testing.T) {
		_, _, err := e.Refine(ctx, 1, strings.Repeat("a", 50000), nil)
		assert.NoError(t, err)
	})

	t.Run("above maximum", func(t *testing.T) {
		_, _, err := e.Refine(ctx, 1, strings.Repeat("a", 50001), nil)
		assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))
	})

	t.Run("rune count not byte count", func(t *testing.T) {
		// 10 个多字节字符满足最小长度
		_, _, err := e.Refine(ctx, 1, strings.Repeat("雪", 10), nil)
		assert.NoError(t, err)
	})
}

func TestEngine_Refine_Glossary(t *testing.T) {
	ctx := context.Background()
	e := echoEngine()

	t.Run("substitutes case-insensitively", func(t *testing.T) {
		result, usage, err := e.Refine(ctx, 1, "that night JON SNOW and jon snow met", []*entity.GlossaryTerm{
			term(7, "Jon Snow", "John Snow", "character"),
		})
		require.NoError(t, err)
		assert.Equal(t, "that night John Snow and John Snow met", result.RefinedText)
		assert.Equal(t, 2, usage[7])
		require.Len(t, result.Changes, 1)
		assert.Equal(t, ChangeTypeGlossary, result.Changes[0].Type)
	})

	t.Run("proper noun respects word boundaries", func(t *testing.T) {
		result, usage, err := e.Refine(ctx, 1, "Jonathan walked while Jon slept", []*entity.GlossaryTerm{
			term(1, "Jon", "John", "character"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Jonathan walked while John slept", result.RefinedText)
		assert.Equal(t, 1, usage[1])
	})

	t.Run("general term matches inside words", func(t *testing.T) {
		result, _, err := e.Refine(ctx, 1, "the qi flowed and qigong stirred", []*entity.GlossaryTerm{
			term(1, "qi", "chi", "general"),
		})
		require.NoError(t, err)
		assert.Equal(t, "the chi flowed and chigong stirred", result.RefinedText)
	})

	t.Run("longest match wins", func(t *testing.T) {
		result, usage, err := e.Refine(ctx, 1, "they feared Jon Snow above all", []*entity.GlossaryTerm{
			term(1, "Jon", "John", "character"),
			term(2, "Jon Snow", "The White Wolf", "character"),
		})
		require.NoError(t, err)
		assert.Equal(t, "they feared The White Wolf above all", result.RefinedText)
		assert.Equal(t, 1, usage[2])
		assert.Zero(t, usage[1])
	})

	t.Run("inactive and identity terms skipped", func(t *testing.T) {
		inactive := term(1, "Jon", "John", "character")
		inactive.IsActive = false
		result, usage, err := e.Refine(ctx, 1, "and then Jon and Arya left", []*entity.GlossaryTerm{
			inactive,
			term(2, "Arya", "Arya", "character"),
		})
		require.NoError(t, err)
		assert.Equal(t, "and then Jon and Arya left", result.RefinedText)
		assert.Empty(t, usage)
	})

	t.Run("no terms leaves text unchanged", func(t *testing.T) {
		result, usage, err := e.Refine(ctx, 1, "nothing to replace here", nil)
		require.NoError(t, err)
		assert.Equal(t, "nothing to replace here", result.RefinedText)
		assert.Empty(t, usage)
		assert.Empty(t, result.Changes)
	})
}

func TestEngine_Refine_Rewriter(t *testing.T) {
	ctx := context.Background()

	t.Run("rewriter failure wraps service error", func(t *testing.T) {
		e := NewEngine(&stubRewriter{fn: func(_ context.Context, _ int64, _ string) (*RewriteResult, error) {
			return nil, fmt.Errorf("connection refused")
		}}, 10, 50000)

		_, _, err := e.Refine(ctx, 1, "some text long enough", nil)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeRewriteFailed))
	})

	t.Run("external edits recorded with default category", func(t *testing.T) {
		e := NewEngine(&stubRewriter{fn: func(_ context.Context, _ int64, text string) (*RewriteResult, error) {
			return &RewriteResult{
				Text: text,
				Edits: []Edit{
					{Category: "grammar", Description: "fixed tense"},
					{Description: "smoothed phrasing"},
				},
			}, nil
		}}, 10, 50000)

		result, _, err := e.Refine(ctx, 1, "some text long enough", nil)
		require.NoError(t, err)
		require.Len(t, result.Changes, 2)
		assert.Equal(t, "grammar", result.Changes[0].Type)
		assert.Equal(t, ChangeTypeStyle, result.Changes[1].Type)
	})

	t.Run("glossary applied before rewrite", func(t *testing.T) {
		var seen string
		e := NewEngine(&stubRewriter{fn: func(_ context.Context, _ int64, text string) (*RewriteResult, error) {
			seen = text
			return &RewriteResult{Text: text}, nil
		}}, 10, 50000)

		_, _, err := e.Refine(ctx, 1, "and so Jon marched north", []*entity.GlossaryTerm{
			term(1, "Jon", "John", "character"),
		})
		require.NoError(t, err)
		assert.Equal(t, "and so John marched north", seen)
	})
}

func TestConfidenceScore(t *testing.T) {
	t.Run("reported score clamped", func(t *testing.T) {
		high := 1.4
		assert.Equal(t, 1.0, confidenceScore("a", "b", &high))

		low := -0.2
		assert.Equal(t, 0.0, confidenceScore("a", "b", &low))

		mid := 0.87
		assert.Equal(t, 0.87, confidenceScore("a", "b", &mid))
	})

	t.Run("identical text scores one", func(t *testing.T) {
		assert.Equal(t, 1.0, confidenceScore("the quick brown fox", "the quick brown fox", nil))
	})

	t.Run("empty refined scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, confidenceScore("the quick brown fox", "", nil))
	})

	t.Run("partial retention", func(t *testing.T) {
		// 4 个词中保留 2 个
		got := confidenceScore("the quick brown fox", "the slow green fox", nil)
		assert.InDelta(t, 0.5, got, 1e-9)
	})

	t.Run("case-insensitive token match", func(t *testing.T) {
		assert.Equal(t, 1.0, confidenceScore("The Quick", "the quick", nil))
	})
}
