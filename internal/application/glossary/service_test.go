package glossary

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/internal/domain/repository"
	"mtl-refine-api/pkg/errors"
)

type memNovelRepo struct {
	novels map[int64]*entity.Novel
}

func (m *memNovelRepo) Create(_ context.Context, _ *entity.Novel) error { return nil }
func (m *memNovelRepo) GetByID(_ context.Context, id int64) (*entity.Novel, error) {
	return m.novels[id], nil
}
func (m *memNovelRepo) List(_ context.Context, _ repository.Pagination) (*repository.PagedResult[*entity.Novel], error) {
	return &repository.PagedResult[*entity.Novel]{}, nil
}
func (m *memNovelRepo) Update(_ context.Context, _ *entity.Novel) error { return nil }
func (m *memNovelRepo) Delete(_ context.Context, _ int64) error         { return nil }

type memGlossaryRepo struct {
	terms  map[int64]*entity.GlossaryTerm
	nextID int64
}

func newMemGlossaryRepo() *memGlossaryRepo {
	return &memGlossaryRepo{terms: make(map[int64]*entity.GlossaryTerm), nextID: 1}
}

func (m *memGlossaryRepo) Create(_ context.Context, term *entity.GlossaryTerm) error {
	term.ID = m.nextID
	m.nextID++
	m.terms[term.ID] = term
	return nil
}

func (m *memGlossaryRepo) GetByID(_ context.Context, id int64) (*entity.GlossaryTerm, error) {
	return m.terms[id], nil
}

func (m *memGlossaryRepo) GetActiveByOriginalTerm(_ context.Context, novelID int64, originalTerm string) (*entity.GlossaryTerm, error) {
	for _, t := range m.terms {
		if t.NovelID == novelID && t.IsActive && strings.EqualFold(t.OriginalTerm, originalTerm) {
			return t, nil
		}
	}
	return nil, nil
}

func (m *memGlossaryRepo) ListByNovel(_ context.Context, novelID int64, filter repository.GlossaryFilter) ([]*entity.GlossaryTerm, error) {
	var out []*entity.GlossaryTerm
	for _, t := range m.terms {
		if t.NovelID != novelID {
			continue
		}
		if filter.ActiveOnly && !t.IsActive {
			continue
		}
		if filter.TermType != "" && t.TermType != filter.TermType {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memGlossaryRepo) Update(_ context.Context, term *entity.GlossaryTerm) error {
	m.terms[term.ID] = term
	return nil
}

func (m *memGlossaryRepo) IncrementFrequency(_ context.Context, id int64, delta int) error {
	if t, ok := m.terms[id]; ok {
		t.Frequency += delta
	}
	return nil
}

func (m *memGlossaryRepo) CountActiveByType(_ context.Context, novelID int64) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, t := range m.terms {
		if t.NovelID == novelID && t.IsActive {
			counts[t.TermType]++
		}
	}
	return counts, nil
}

func newTestService(novels *memNovelRepo, terms *memGlossaryRepo) *Service {
	return NewService(novels, terms, nil, 0)
}

func validInput() TermInput {
	return TermInput{
		OriginalTerm:  "Jon Snow",
		PreferredTerm: "Jon Snow",
		TermType:      "character",
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	novels := &memNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1, Title: "Test"}}}

	t.Run("creates active term with frequency one", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())

		term, err := svc.Create(ctx, 1, validInput())
		require.NoError(t, err)
		assert.True(t, term.IsActive)
		assert.Equal(t, 1, term.Frequency)
		assert.NotZero(t, term.ID)
	})

	t.Run("rejects duplicate case-insensitively", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())

		_, err := svc.Create(ctx, 1, validInput())
		require.NoError(t, err)

		in := validInput()
		in.OriginalTerm = "JON SNOW"
		_, err = svc.Create(ctx, 1, in)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeDuplicateTerm))
	})

	t.Run("allows re-create after deactivation", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())

		term, err := svc.Create(ctx, 1, validInput())
		require.NoError(t, err)

		_, err = svc.Deactivate(ctx, term.ID)
		require.NoError(t, err)

		_, err = svc.Create(ctx, 1, validInput())
		assert.NoError(t, err)
	})

	t.Run("validates required fields", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())

		in := validInput()
		in.OriginalTerm = "   "
		_, err := svc.Create(ctx, 1, in)
		assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))

		in = validInput()
		in.PreferredTerm = ""
		_, err = svc.Create(ctx, 1, in)
		assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))

		in = validInput()
		in.TermType = ""
		_, err = svc.Create(ctx, 1, in)
		assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))
	})

	t.Run("rejects overlong term", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())

		in := validInput()
		in.OriginalTerm = strings.Repeat("x", entity.MaxTermLength+1)
		_, err := svc.Create(ctx, 1, in)
		assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))
	})

	t.Run("unknown novel", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())

		_, err := svc.Create(ctx, 404, validInput())
		assert.True(t, errors.IsCode(err, errors.CodeNovelNotFound))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	novels := &memNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1}}}

	t.Run("updates only provided fields", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())
		term, err := svc.Create(ctx, 1, validInput())
		require.NoError(t, err)

		preferred := "King Jon"
		updated, err := svc.Update(ctx, term.ID, UpdateInput{PreferredTerm: &preferred})
		require.NoError(t, err)
		assert.Equal(t, "King Jon", updated.PreferredTerm)
		assert.Equal(t, "Jon Snow", updated.OriginalTerm)
		assert.Equal(t, "character", updated.TermType)
	})

	t.Run("rejects blank preferred term", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())
		term, err := svc.Create(ctx, 1, validInput())
		require.NoError(t, err)

		blank := "  "
		_, err = svc.Update(ctx, term.ID, UpdateInput{PreferredTerm: &blank})
		assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))
	})

	t.Run("rejects negative frequency", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())
		term, err := svc.Create(ctx, 1, validInput())
		require.NoError(t, err)

		neg := -1
		_, err = svc.Update(ctx, term.ID, UpdateInput{Frequency: &neg})
		assert.True(t, errors.IsCode(err, errors.CodeValidationFailed))
	})

	t.Run("unknown term", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())

		_, err := svc.Update(ctx, 999, UpdateInput{})
		assert.True(t, errors.IsCode(err, errors.CodeTermNotFound))
	})
}

func TestService_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	novels := &memNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1}}}
	svc := newTestService(novels, newMemGlossaryRepo())

	term, err := svc.Create(ctx, 1, validInput())
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(ctx, term.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	activated, err := svc.Activate(ctx, term.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)
}

func TestService_BulkImport(t *testing.T) {
	ctx := context.Background()
	novels := &memNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1}}}

	t.Run("creates new and updates existing", func(t *testing.T) {
		repo := newMemGlossaryRepo()
		svc := newTestService(novels, repo)

		existing, err := svc.Create(ctx, 1, validInput())
		require.NoError(t, err)

		result, err := svc.BulkImport(ctx, 1, []TermInput{
			{OriginalTerm: "jon snow", PreferredTerm: "King Jon", TermType: "character"},
			{OriginalTerm: "Winterfell", PreferredTerm: "Winterfell", TermType: "place"},
			{OriginalTerm: "Night Watch", PreferredTerm: "The Watch", TermType: "organization"},
		})
		require.NoError(t, err)

		assert.Equal(t, 2, result.CreatedCount)
		assert.Equal(t, 1, result.UpdatedCount)
		assert.Equal(t, 3, result.TotalProcessed)
		assert.Empty(t, result.Errors)

		updated, err := svc.Get(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "King Jon", updated.PreferredTerm)
		assert.Equal(t, 2, updated.Frequency)
	})

	t.Run("collects per-term errors without aborting", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())

		result, err := svc.BulkImport(ctx, 1, []TermInput{
			{OriginalTerm: "", PreferredTerm: "x", TermType: "character"},
			{OriginalTerm: "Winterfell", PreferredTerm: "Winterfell", TermType: "place"},
		})
		require.NoError(t, err)

		assert.Equal(t, 1, result.CreatedCount)
		assert.Equal(t, 2, result.TotalProcessed)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "term 1")
	})

	t.Run("unknown novel", func(t *testing.T) {
		svc := newTestService(novels, newMemGlossaryRepo())

		_, err := svc.BulkImport(ctx, 404, []TermInput{validInput()})
		assert.True(t, errors.IsCode(err, errors.CodeNovelNotFound))
	})
}

func TestService_Export(t *testing.T) {
	ctx := context.Background()
	novels := &memNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1, Title: "Test Novel"}}}
	svc := newTestService(novels, newMemGlossaryRepo())

	_, err := svc.BulkImport(ctx, 1, []TermInput{
		{OriginalTerm: "Winterfell", PreferredTerm: "Winterfell", TermType: "place"},
		{OriginalTerm: "arya", PreferredTerm: "Arya", TermType: "character"},
		{OriginalTerm: "Jon Snow", PreferredTerm: "Jon Snow", TermType: "character"},
	})
	require.NoError(t, err)

	export, err := svc.Export(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, "Test Novel", export.NovelTitle)
	assert.Equal(t, 3, export.TotalTerms)
	require.Len(t, export.Terms, 3)
	// 按类型再按原词（大小写不敏感）排序
	assert.Equal(t, "arya", export.Terms[0].OriginalTerm)
	assert.Equal(t, "Jon Snow", export.Terms[1].OriginalTerm)
	assert.Equal(t, "Winterfell", export.Terms[2].OriginalTerm)
}

func TestService_ListActive_NoCache(t *testing.T) {
	ctx := context.Background()
	novels := &memNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1}}}
	svc := newTestService(novels, newMemGlossaryRepo())

	term, err := svc.Create(ctx, 1, validInput())
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, term.ID)
	require.NoError(t, err)

	in := validInput()
	in.OriginalTerm = "Winterfell"
	in.TermType = "place"
	_, err = svc.Create(ctx, 1, in)
	require.NoError(t, err)

	active, err := svc.ListActive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Winterfell", active[0].OriginalTerm)
}

func TestService_TermTypes(t *testing.T) {
	ctx := context.Background()
	novels := &memNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1}}}
	svc := newTestService(novels, newMemGlossaryRepo())

	_, err := svc.BulkImport(ctx, 1, []TermInput{
		{OriginalTerm: "Jon", PreferredTerm: "Jon", TermType: "character"},
		{OriginalTerm: "Arya", PreferredTerm: "Arya", TermType: "character"},
		{OriginalTerm: "Winterfell", PreferredTerm: "Winterfell", TermType: "place"},
	})
	require.NoError(t, err)

	counts, err := svc.TermTypes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["character"])
	assert.Equal(t, int64(1), counts["place"])
}
