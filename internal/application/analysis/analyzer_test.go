package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
	chapters []*entity.Chapter
}

func (f *fakeChapterRepo) Create(_ context.Context, _ *entity.Chapter) error { return nil }
func (f *fakeChapterRepo) GetByID(_ context.Context, id int64) (*entity.Chapter, error) {
	for _, ch := range f.chapters {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, nil
}
func (f *fakeChapterRepo) ListByNovel(_ context.Context, novelID int64) ([]*entity.Chapter, error) {
	var out []*entity.Chapter
	for _, ch := range f.chapters {
		if ch.NovelID == novelID {
			out = append(out, ch)
		}
	}
	return out, nil
}
func (f *fakeChapterRepo) ListByIDs(_ context.Context, novelID int64, ids []int64) ([]*entity.Chapter, error) {
	return nil, nil
}
func (f *fakeChapterRepo) ListUnprocessed(_ context.Context, novelID int64) ([]*entity.Chapter, error) {
	return nil, nil
}
func (f *fakeChapterRepo) Update(_ context.Context, _ *entity.Chapter) error       { return nil }
func (f *fakeChapterRepo) UpdateRefined(_ context.Context, _ int64, _ string) error { return nil }
func (f *fakeChapterRepo) CountByNovel(_ context.Context, _ int64) (int64, error)  { return 0, nil }
func (f *fakeChapterRepo) CountProcessedByNovel(_ context.Context, _ int64) (int64, error) {
	return 0, nil
}

type fakeGlossaryRepo struct {
	terms []*entity.GlossaryTerm
}

func (f *fakeGlossaryRepo) Create(_ context.Context, _ *entity.GlossaryTerm) error { return nil }
func (f *fakeGlossaryRepo) GetByID(_ context.Context, _ int64) (*entity.GlossaryTerm, error) {
	return nil, nil
}
func (f *fakeGlossaryRepo) GetActiveByOriginalTerm(_ context.Context, _ int64, _ string) (*entity.GlossaryTerm, error) {
	return nil, nil
}
func (f *fakeGlossaryRepo) ListByNovel(_ context.Context, novelID int64, _ repository.GlossaryFilter) ([]*entity.GlossaryTerm, error) {
	var out []*entity.GlossaryTerm
	for _, t := range f.terms {
		if t.NovelID == novelID {
			out = append(out, t)
		}
	}
	return out, nil
}
func (f *fakeGlossaryRepo) Update(_ context.Context, _ *entity.GlossaryTerm) error      { return nil }
func (f *fakeGlossaryRepo) IncrementFrequency(_ context.Context, _ int64, _ int) error  { return nil }
func (f *fakeGlossaryRepo) CountActiveByType(_ context.Context, _ int64) (map[string]int64, error) {
	return nil, nil
}

func newTestAnalyzer(novels *fakeNovelRepo, chapters *fakeChapterRepo, terms *fakeGlossaryRepo) *Analyzer {
	return NewAnalyzer(
		novels, chapters, terms,
		NewExtractor(NewRuleTagger()),
		NewClusterer(0.82),
		20,
	)
}

func TestAnalyzer_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("novel not found", func(t *testing.T) {
		a := newTestAnalyzer(&fakeNovelRepo{novels: map[int64]*entity.Novel{}}, &fakeChapterRepo{}, &fakeGlossaryRepo{})

		_, err := a.Analyze(ctx, 404)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeNovelNotFound))
	})

	t.Run("suggests canonical form for variants", func(t *testing.T) {
		novels := &fakeNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1, Title: "Test Novel"}}}
		chapters := &fakeChapterRepo{chapters: []*entity.Chapter{
			{ID: 1, NovelID: 1, ChapterNumber: 1, OriginalContent: "that night John Snow fought alone and John Snow won"},
			{ID: 2, NovelID: 1, ChapterNumber: 2, OriginalContent: "later Jon Snow rested by the fire"},
		}}
		a := newTestAnalyzer(novels, chapters, &fakeGlossaryRepo{})

		result, err := a.Analyze(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, 2, result.ChaptersAnalyzed)
		require.Len(t, result.ConsistencySuggestions, 1)
		s := result.ConsistencySuggestions[0]
		assert.Equal(t, SuggestionTypeCharacter, s.Type)
		assert.Equal(t, "John Snow", s.SuggestedCanonical)
		assert.ElementsMatch(t, []string{"John Snow", "Jon Snow"}, s.OriginalVariations)
		assert.Equal(t, 3, s.Frequency)

		info, ok := result.CharacterNames["john snow"]
		require.True(t, ok)
		assert.Equal(t, 3, info.Frequency)
	})

	t.Run("glossary covered cluster produces no suggestion", func(t *testing.T) {
		novels := &fakeNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1}}}
		chapters := &fakeChapterRepo{chapters: []*entity.Chapter{
			{ID: 1, NovelID: 1, ChapterNumber: 1, OriginalContent: "that night John Snow met Jon Snow in a dream"},
		}}
		terms := &fakeGlossaryRepo{terms: []*entity.GlossaryTerm{
			{ID: 1, NovelID: 1, OriginalTerm: "John Snow", PreferredTerm: "Jon Snow", TermType: "character", IsActive: true},
			{ID: 2, NovelID: 1, OriginalTerm: "Jon Snow", PreferredTerm: "Jon Snow", TermType: "character", IsActive: true},
		}}
		a := newTestAnalyzer(novels, chapters, terms)

		result, err := a.Analyze(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, result.ConsistencySuggestions)
	})

	t.Run("single variation never suggested", func(t *testing.T) {
		novels := &fakeNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1}}}
		chapters := &fakeChapterRepo{chapters: []*entity.Chapter{
			{ID: 1, NovelID: 1, ChapterNumber: 1, OriginalContent: "again and again Arya trained in the dark"},
		}}
		a := newTestAnalyzer(novels, chapters, &fakeGlossaryRepo{})

		result, err := a.Analyze(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, result.ConsistencySuggestions)
		assert.Contains(t, result.CharacterNames, "arya")
	})

	t.Run("place names land in place map", func(t *testing.T) {
		novels := &fakeNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1}}}
		chapters := &fakeChapterRepo{chapters: []*entity.Chapter{
			{ID: 1, NovelID: 1, ChapterNumber: 1, OriginalContent: "far away lay Azure Cloud City shining"},
		}}
		a := newTestAnalyzer(novels, chapters, &fakeGlossaryRepo{})

		result, err := a.Analyze(ctx, 1)
		require.NoError(t, err)
		assert.Contains(t, result.PlaceNames, "azure cloud city")
		assert.Empty(t, result.CharacterNames)
	})

	t.Run("no chapters yields empty analysis", func(t *testing.T) {
		novels := &fakeNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1}}}
		a := newTestAnalyzer(novels, &fakeChapterRepo{}, &fakeGlossaryRepo{})

		result, err := a.Analyze(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, result.ChaptersAnalyzed)
		assert.Zero(t, result.TotalUniqueTerms)
		assert.Empty(t, result.CharacterNames)
		assert.Empty(t, result.PlaceNames)
	})
}
