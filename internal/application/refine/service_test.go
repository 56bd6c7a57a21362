package refine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtl-refine-api/internal/application/glossary"
	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/internal/domain/repository"
	"mtl-refine-api/pkg/errors"
)

type fakeNovelRepo struct {
	novels map[int64]*entity.Novel
}

func (f *fakeNovelRepo) Create(_ context.Context, _ *entity.Novel) error { return nil }
func (f *fakeNovelRepo) GetByID(_ context.Context, id int64) (*entity.Novel, error) {
	return f.novels[id], nil
}
func (f *fakeNovelRepo) List(_ context.Context, _ repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	return &repository.PagedResult[*entity.Novel]{}, nil
}
func (f *fakeNovelRepo) Update(_ context.Context, _ *entity.Novel) error { return nil }
func (f *fakeNovelRepo) Delete(_ context.Context, _ int64) error         { return nil }

type fakeChapterRepo struct {
	mu       sync.Mutex
	chapters map[int64]*entity.Chapter
}

func newFakeChapterRepo(chapters ...*entity.Chapter) *fakeChapterRepo {
	m := make(map[int64]*entity.Chapter, len(chapters))
	for _, ch := range chapters {
		m[ch.ID] = ch
	}
	return &fakeChapterRepo{chapters: m}
}

func (f *fakeChapterRepo) Create(_ context.Context, ch *entity.Chapter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chapters[ch.ID] = ch
	return nil
}

func (f *fakeChapterRepo) GetByID(_ context.Context, id int64) (*entity.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chapters[id], nil
}

func (f *fakeChapterRepo) ListByNovel(_ context.Context, novelID int64) ([]*entity.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Chapter
	for _, ch := range f.chapters {
		if ch.NovelID == novelID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeChapterRepo) ListByIDs(_ context.Context, novelID int64, ids []int64) ([]*entity.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Chapter
	for _, id := range ids {
		if ch, ok := f.chapters[id]; ok && ch.NovelID == novelID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeChapterRepo) ListUnprocessed(_ context.Context, novelID int64) ([]*entity.Chapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Chapter
	for _, ch := range f.chapters {
		if ch.NovelID == novelID && !ch.IsProcessed {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (f *fakeChapterRepo) Update(_ context.Context, ch *entity.Chapter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chapters[ch.ID] = ch
	return nil
}

func (f *fakeChapterRepo) UpdateRefined(_ context.Context, id int64, refined string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.chapters[id]; ok {
		ch.MarkRefined(refined)
	}
	return nil
}

func (f *fakeChapterRepo) CountByNovel(_ context.Context, novelID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, ch := range f.chapters {
		if ch.NovelID == novelID {
			n++
		}
	}
	return n, nil
}

func (f *fakeChapterRepo) CountProcessedByNovel(_ context.Context, novelID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, ch := range f.chapters {
		if ch.NovelID == novelID && ch.IsProcessed {
			n++
		}
	}
	return n, nil
}

type fakeGlossaryRepo struct {
	mu    sync.Mutex
	terms map[int64]*entity.GlossaryTerm
}

func newFakeGlossaryRepo(terms ...*entity.GlossaryTerm) *fakeGlossaryRepo {
	m := make(map[int64]*entity.GlossaryTerm, len(terms))
	for _, t := range terms {
		m[t.ID] = t
	}
	return &fakeGlossaryRepo{terms: m}
}

func (f *fakeGlossaryRepo) Create(_ context.Context, t *entity.GlossaryTerm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms[t.ID] = t
	return nil
}

func (f *fakeGlossaryRepo) GetByID(_ context.Context, id int64) (*entity.GlossaryTerm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terms[id], nil
}

func (f *fakeGlossaryRepo) GetActiveByOriginalTerm(_ context.Context, _ int64, _ string) (*entity.GlossaryTerm, error) {
	return nil, nil
}

func (f *fakeGlossaryRepo) ListByNovel(_ context.Context, novelID int64, filter repository.GlossaryFilter) ([]*entity.GlossaryTerm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.GlossaryTerm
	for _, t := range f.terms {
		if t.NovelID != novelID {
			continue
		}
		if filter.ActiveOnly && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeGlossaryRepo) Update(_ context.Context, t *entity.GlossaryTerm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms[t.ID] = t
	return nil
}

func (f *fakeGlossaryRepo) IncrementFrequency(_ context.Context, id int64, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.terms[id]; ok {
		t.Frequency += delta
	}
	return nil
}

func (f *fakeGlossaryRepo) CountActiveByType(_ context.Context, _ int64) (map[string]int64, error) {
	return nil, nil
}

type fakeLogRepo struct {
	mu   sync.Mutex
	logs []*entity.ProcessingLog
}

func (f *fakeLogRepo) Append(_ context.Context, log *entity.ProcessingLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeLogRepo) ListRecentByNovel(_ context.Context, novelID int64, limit int) ([]*entity.ProcessingLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ProcessingLog
	for i := len(f.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.logs[i].NovelID == novelID {
			out = append(out, f.logs[i])
		}
	}
	return out, nil
}

func (f *fakeLogRepo) byChapter(chapterID int64) []*entity.ProcessingLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ProcessingLog
	for _, l := range f.logs {
		if l.ChapterID == chapterID {
			out = append(out, l)
		}
	}
	return out
}

func newTestService(chapters *fakeChapterRepo, terms *fakeGlossaryRepo, logs *fakeLogRepo, rw Rewriter) *Service {
	novels := &fakeNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1, Title: "Test"}}}
	glossarySvc := glossary.NewService(novels, terms, nil, 0)
	engine := NewEngine(rw, 10, 50000)
	return NewService(chapters, terms, logs, glossarySvc, engine)
}

func TestService_RefineText(t *testing.T) {
	ctx := context.Background()

	t.Run("glossary requires novel id", func(t *testing.T) {
		svc := newTestService(newFakeChapterRepo(), newFakeGlossaryRepo(), &fakeLogRepo{}, &stubRewriter{})

		_, err := svc.RefineText(ctx, "some long enough text", true, 0)
		assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))
	})

	t.Run("applies glossary and counts usage", func(t *testing.T) {
		terms := newFakeGlossaryRepo(term(1, "Jon", "John", "character"))
		svc := newTestService(newFakeChapterRepo(), terms, &fakeLogRepo{}, &stubRewriter{})

		result, err := svc.RefineText(ctx, "and then Jon went north with Jon", true, 1)
		require.NoError(t, err)
		assert.Equal(t, "and then John went north with John", result.RefinedText)

		stored, err := terms.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Frequency)
	})

	t.Run("without glossary leaves terms untouched", func(t *testing.T) {
		terms := newFakeGlossaryRepo(term(1, "Jon", "John", "character"))
		svc := newTestService(newFakeChapterRepo(), terms, &fakeLogRepo{}, &stubRewriter{})

		result, err := svc.RefineText(ctx, "and then Jon went north again", false, 1)
		require.NoError(t, err)
		assert.Equal(t, "and then Jon went north again", result.RefinedText)

		stored, err := terms.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, stored.Frequency)
	})
}

func TestService_RefineChapter(t *testing.T) {
	ctx := context.Background()

	t.Run("chapter not found", func(t *testing.T) {
		svc := newTestService(newFakeChapterRepo(), newFakeGlossaryRepo(), &fakeLogRepo{}, &stubRewriter{})

		_, err := svc.RefineChapter(ctx, 404, false, entity.ProcessingTypeRefinement)
		assert.True(t, errors.IsCode(err, errors.CodeChapterNotFound))
	})

	t.Run("success persists refined content and log", func(t *testing.T) {
		chapter := entity.NewChapter(1, 1, "Chapter One", "and then Jon went to Winterfell alone")
		chapter.ID = 10
		chapters := newFakeChapterRepo(chapter)
		terms := newFakeGlossaryRepo(term(1, "Jon", "John", "character"))
		logs := &fakeLogRepo{}
		svc := newTestService(chapters, terms, logs, &stubRewriter{})

		outcome, err := svc.RefineChapter(ctx, 10, true, entity.ProcessingTypeRefinement)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		require.NotNil(t, outcome.Result)
		assert.Equal(t, "and then John went to Winterfell alone", outcome.Result.RefinedText)

		stored, err := chapters.GetByID(ctx, 10)
		require.NoError(t, err)
		assert.True(t, stored.IsProcessed)
		assert.Equal(t, "and then John went to Winterfell alone", stored.RefinedContent)

		chapterLogs := logs.byChapter(10)
		require.Len(t, chapterLogs, 1)
		assert.True(t, chapterLogs[0].Success)
		assert.Equal(t, entity.ProcessingTypeRefinement, chapterLogs[0].ProcessingType)
	})

	t.Run("engine failure reports outcome without error", func(t *testing.T) {
		chapter := entity.NewChapter(1, 1, "Chapter One", "and then the night fell slowly")
		chapter.ID = 10
		chapters := newFakeChapterRepo(chapter)
		logs := &fakeLogRepo{}
		failing := &stubRewriter{fn: func(_ context.Context, _ int64, _ string) (*RewriteResult, error) {
			return nil, fmt.Errorf("rewrite backend down")
		}}
		svc := newTestService(chapters, newFakeGlossaryRepo(), logs, failing)

		outcome, err := svc.RefineChapter(ctx, 10, false, entity.ProcessingTypeBatchRefinement)
		require.NoError(t, err)
		assert.False(t, outcome.Success)
		assert.NotEmpty(t, outcome.ErrorMessage)

		// 失败不覆盖章节内容
		stored, err := chapters.GetByID(ctx, 10)
		require.NoError(t, err)
		assert.False(t, stored.IsProcessed)
		assert.Empty(t, stored.RefinedContent)

		chapterLogs := logs.byChapter(10)
		require.Len(t, chapterLogs, 1)
		assert.False(t, chapterLogs[0].Success)
		assert.NotEmpty(t, chapterLogs[0].ErrorMessage)
	})
}
