package refine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtl-refine-api/internal/domain/entity"
	"mtl-refine-api/pkg/errors"
)

type fakeJobRepo struct {
	mu       sync.Mutex
	jobs     map[int64]*entity.RefineJob
	nextID   int64
	getCalls int
	// cancelAtGet 在第 N 次 GetByID 时置取消标记，0 表示不触发
	cancelAtGet int
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[int64]*entity.RefineJob), nextID: 1}
}

func (f *fakeJobRepo) CreateIfNoActive(_ context.Context, job *entity.RefineJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.NovelID == job.NovelID && !j.Status.IsTerminal() {
			return errors.ErrBatchConflict
		}
	}
	job.ID = f.nextID
	f.nextID++
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id int64) (*entity.RefineJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	job := f.jobs[id]
	if job != nil && f.cancelAtGet > 0 && f.getCalls >= f.cancelAtGet {
		job.CancelRequested = true
	}
	return job, nil
}

func (f *fakeJobRepo) GetActiveByNovel(_ context.Context, novelID int64) (*entity.RefineJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.NovelID == novelID && !j.Status.IsTerminal() {
			return j, nil
		}
	}
	return nil, nil
}

func (f *fakeJobRepo) Update(_ context.Context, job *entity.RefineJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobRepo) RequestCancel(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok && !j.Status.IsTerminal() {
		j.CancelRequested = true
	}
	return nil
}

func seedChapters(novelID int64, contents ...string) *fakeChapterRepo {
	repo := newFakeChapterRepo()
	for i, content := range contents {
		ch := entity.NewChapter(novelID, i+1, fmt.Sprintf("Chapter %d", i+1), content)
		ch.ID = int64(i + 1)
		repo.chapters[ch.ID] = ch
	}
	return repo
}

func newTestOrchestrator(chapters *fakeChapterRepo, jobs *fakeJobRepo, logs *fakeLogRepo, rw Rewriter) *Orchestrator {
	novels := &fakeNovelRepo{novels: map[int64]*entity.Novel{1: {ID: 1, Title: "Test"}}}
	svc := newTestService(chapters, newFakeGlossaryRepo(), logs, rw)
	return NewOrchestrator(novels, chapters, jobs, logs, svc, nil, 1, 10)
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("job not found", func(t *testing.T) {
		o := newTestOrchestrator(newFakeChapterRepo(), newFakeJobRepo(), &fakeLogRepo{}, &stubRewriter{})

		err := o.Run(ctx, 404)
		assert.True(t, errors.IsCode(err, errors.CodeJobNotFound))
	})

	t.Run("terminal job is a no-op", func(t *testing.T) {
		jobs := newFakeJobRepo()
		job := entity.NewRefineJob(1, []int64{1}, false)
		require.NoError(t, jobs.CreateIfNoActive(ctx, job))
		job.Complete()

		o := newTestOrchestrator(newFakeChapterRepo(), jobs, &fakeLogRepo{}, &stubRewriter{})
		assert.NoError(t, o.Run(ctx, job.ID))
		assert.Equal(t, entity.JobStatusCompleted, job.Status)
	})

	t.Run("processes all chapters to completion", func(t *testing.T) {
		chapters := seedChapters(1,
			"and then the first chapter unfolded slowly",
			"and then the second chapter unfolded slowly",
			"and then the third chapter unfolded slowly",
		)
		jobs := newFakeJobRepo()
		job := entity.NewRefineJob(1, []int64{1, 2, 3}, false)
		require.NoError(t, jobs.CreateIfNoActive(ctx, job))

		o := newTestOrchestrator(chapters, jobs, &fakeLogRepo{}, &stubRewriter{})
		require.NoError(t, o.Run(ctx, job.ID))

		assert.Equal(t, entity.JobStatusCompleted, job.Status)
		assert.Equal(t, 3, job.SucceededCount)
		assert.Zero(t, job.FailedCount)
		assert.Equal(t, 100, job.Progress)
		assert.NotNil(t, job.CompletedAt)

		processed, err := chapters.CountProcessedByNovel(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(3), processed)
	})

	t.Run("single chapter failure does not abort the batch", func(t *testing.T) {
		chapters := seedChapters(1,
			"and then the first chapter unfolded slowly",
			"BROKEN and then the second chapter unfolded",
			"and then the third chapter unfolded slowly",
		)
		jobs := newFakeJobRepo()
		job := entity.NewRefineJob(1, []int64{1, 2, 3}, false)
		require.NoError(t, jobs.CreateIfNoActive(ctx, job))

		failing := &stubRewriter{fn: func(_ context.Context, _ int64, text string) (*RewriteResult, error) {
			if strings.Contains(text, "BROKEN") {
				return nil, fmt.Errorf("rewrite backend rejected input")
			}
			return &RewriteResult{Text: text}, nil
		}}
		logs := &fakeLogRepo{}
		o := newTestOrchestrator(chapters, jobs, logs, failing)
		require.NoError(t, o.Run(ctx, job.ID))

		assert.Equal(t, entity.JobStatusCompleted, job.Status)
		assert.Equal(t, 2, job.SucceededCount)
		assert.Equal(t, 1, job.FailedCount)
		assert.Equal(t, 100, job.Progress)

		failureLogs := logs.byChapter(2)
		require.Len(t, failureLogs, 1)
		assert.False(t, failureLogs[0].Success)
	})

	t.Run("cancel requested before start", func(t *testing.T) {
		chapters := seedChapters(1, "and then the first chapter unfolded slowly")
		jobs := newFakeJobRepo()
		job := entity.NewRefineJob(1, []int64{1}, false)
		require.NoError(t, jobs.CreateIfNoActive(ctx, job))
		job.CancelRequested = true

		o := newTestOrchestrator(chapters, jobs, &fakeLogRepo{}, &stubRewriter{})
		require.NoError(t, o.Run(ctx, job.ID))

		assert.Equal(t, entity.JobStatusCancelled, job.Status)
		assert.Zero(t, job.SucceededCount)

		processed, err := chapters.CountProcessedByNovel(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, processed)
	})

	t.Run("cancel between chapters stops remaining work", func(t *testing.T) {
		chapters := seedChapters(1,
			"and then the first chapter unfolded slowly",
			"and then the second chapter unfolded slowly",
			"and then the third chapter unfolded slowly",
		)
		jobs := newFakeJobRepo()
		job := entity.NewRefineJob(1, []int64{1, 2, 3}, false)
		require.NoError(t, jobs.CreateIfNoActive(ctx, job))
		// 第 1 次读取发生在启动时，第 2 次是首章调度前检查，
		// 第 3 次检查时置取消标记
		jobs.cancelAtGet = 3

		o := newTestOrchestrator(chapters, jobs, &fakeLogRepo{}, &stubRewriter{})
		require.NoError(t, o.Run(ctx, job.ID))

		assert.Equal(t, entity.JobStatusCancelled, job.Status)
		assert.Equal(t, 1, job.SucceededCount+job.FailedCount)
	})
}

func TestOrchestrator_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("job not found", func(t *testing.T) {
		o := newTestOrchestrator(newFakeChapterRepo(), newFakeJobRepo(), &fakeLogRepo{}, &stubRewriter{})

		_, err := o.Cancel(ctx, 404)
		assert.True(t, errors.IsCode(err, errors.CodeJobNotFound))
	})

	t.Run("sets cancel flag on pending job", func(t *testing.T) {
		jobs := newFakeJobRepo()
		job := entity.NewRefineJob(1, []int64{1}, false)
		require.NoError(t, jobs.CreateIfNoActive(ctx, job))

		o := newTestOrchestrator(newFakeChapterRepo(), jobs, &fakeLogRepo{}, &stubRewriter{})
		got, err := o.Cancel(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, got.CancelRequested)
	})

	t.Run("terminal job returned unchanged", func(t *testing.T) {
		jobs := newFakeJobRepo()
		job := entity.NewRefineJob(1, []int64{1}, false)
		require.NoError(t, jobs.CreateIfNoActive(ctx, job))
		job.Complete()

		o := newTestOrchestrator(newFakeChapterRepo(), jobs, &fakeLogRepo{}, &stubRewriter{})
		got, err := o.Cancel(ctx, job.ID)
		require.NoError(t, err)
		assert.False(t, got.CancelRequested)
		assert.Equal(t, entity.JobStatusCompleted, got.Status)
	})
}

func TestOrchestrator_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("novel not found", func(t *testing.T) {
		o := newTestOrchestrator(newFakeChapterRepo(), newFakeJobRepo(), &fakeLogRepo{}, &stubRewriter{})

		_, err := o.Status(ctx, 404)
		assert.True(t, errors.IsCode(err, errors.CodeNovelNotFound))
	})

	t.Run("reports progress and active job", func(t *testing.T) {
		chapters := seedChapters(1,
			"and then the first chapter unfolded slowly",
			"and then the second chapter unfolded slowly",
			"and then the third chapter unfolded slowly",
			"and then the fourth chapter unfolded slowly",
		)
		chapters.chapters[1].MarkRefined("refined one")
		chapters.chapters[2].MarkRefined("refined two")

		jobs := newFakeJobRepo()
		job := entity.NewRefineJob(1, []int64{3, 4}, false)
		require.NoError(t, jobs.CreateIfNoActive(ctx, job))

		logs := &fakeLogRepo{}
		require.NoError(t, logs.Append(ctx, entity.NewSuccessLog(1, 1, entity.ProcessingTypeRefinement, "[]", 0.5)))

		o := newTestOrchestrator(chapters, jobs, logs, &stubRewriter{})
		status, err := o.Status(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, "Test", status.NovelTitle)
		assert.Equal(t, int64(4), status.TotalChapters)
		assert.Equal(t, int64(2), status.ProcessedChapters)
		assert.InDelta(t, 50.0, status.CompletionPercentage, 1e-9)
		assert.Len(t, status.RecentLogs, 1)
		require.NotNil(t, status.ActiveJob)
		assert.Equal(t, job.ID, status.ActiveJob.ID)
	})
}
