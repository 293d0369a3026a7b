package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/testutil"
)

func TestDispatcher_ShouldRunSynchronously(t *testing.T) {
	ctx := context.Background()

	t.Run("clear flag and empty queue", func(t *testing.T) {
		env := newTestEnv()
		assert.True(t, env.dispatcher.ShouldRunSynchronously(ctx))
	})

	t.Run("flag raised until ttl elapses", func(t *testing.T) {
		env := newTestEnv()
		require.NoError(t, env.limiter.SetRateLimited(ctx, 60*time.Second))
		assert.False(t, env.dispatcher.ShouldRunSynchronously(ctx))

		env.clock.Advance(59 * time.Second)
		assert.False(t, env.dispatcher.ShouldRunSynchronously(ctx))

		env.clock.Advance(2 * time.Second)
		assert.True(t, env.dispatcher.ShouldRunSynchronously(ctx))
	})

	t.Run("queue at threshold", func(t *testing.T) {
		env := newTestEnv()
		for i := 0; i < 3; i++ {
			require.NoError(t, env.queue.Enqueue(ctx, &model.Job{ID: "j"}))
		}
		assert.False(t, env.dispatcher.ShouldRunSynchronously(ctx))
	})

	t.Run("queue below threshold", func(t *testing.T) {
		env := newTestEnv()
		require.NoError(t, env.queue.Enqueue(ctx, &model.Job{ID: "j"}))
		assert.True(t, env.dispatcher.ShouldRunSynchronously(ctx))
	})

	t.Run("unreadable depth counts as idle", func(t *testing.T) {
		env := newTestEnv()
		env.queue.LenErr = testutil.ErrBoom
		assert.True(t, env.dispatcher.ShouldRunSynchronously(ctx))
	})

	t.Run("unreadable flag counts as clear", func(t *testing.T) {
		env := newTestEnv()
		env.limiter.Err = testutil.ErrBoom
		assert.True(t, env.dispatcher.ShouldRunSynchronously(ctx))
	})
}

func TestDispatcher_DispatchCreate_Synchronous(t *testing.T) {
	env := newTestEnv()
	env.templates.Put(cropTemplate())

	res, err := env.dispatcher.DispatchCreate(context.Background(), 7, cropTokens, "")
	require.NoError(t, err)

	assert.False(t, res.Queued)
	require.NotNil(t, res.Parent)
	assert.Equal(t, 4, res.Count)
	assert.Empty(t, env.queue.Jobs())
}

func TestDispatcher_DispatchCreate_QueuedWhenRateLimited(t *testing.T) {
	env := newTestEnv()
	env.templates.Put(cropTemplate())
	ctx := context.Background()
	require.NoError(t, env.limiter.SetRateLimited(ctx, time.Minute))

	res, err := env.dispatcher.DispatchCreate(ctx, 7, cropTokens, "note")
	require.NoError(t, err)

	assert.Equal(t, &DispatchResult{Queued: true}, res)
	assert.Zero(t, env.provider.CallCount())

	jobs := env.queue.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobCreateTasks, jobs[0].Name)
	assert.NotEmpty(t, jobs[0].ID)
	assert.Equal(t, testNow, jobs[0].EnqueuedAt)

	var payload model.CreateTasksPayload
	require.NoError(t, json.Unmarshal(jobs[0].Payload, &payload))
	assert.Equal(t, int64(7), payload.TemplateID)
	assert.Equal(t, "note", payload.Description)
	assert.Equal(t, cropTokens, payload.Tokens)
}

func TestDispatcher_DispatchCreate_RateLimitMidCallRaisesFlag(t *testing.T) {
	env := newTestEnv()
	env.templates.Put(cropTemplate())
	ctx := context.Background()
	env.provider.FailNext(testutil.RateLimited(0))

	res, err := env.dispatcher.DispatchCreate(ctx, 7, cropTokens, "")
	require.NoError(t, err)

	assert.True(t, res.Queued)
	assert.Nil(t, res.Parent)
	assert.Zero(t, res.Count)
	assert.Len(t, env.queue.Jobs(), 1)
	assert.Equal(t, 60*time.Second, env.limiter.LastTTL)
	assert.False(t, env.dispatcher.ShouldRunSynchronously(ctx))
}

func TestDispatcher_RetryAfterExtendsFlag(t *testing.T) {
	env := newTestEnv()
	env.provider.FailNext(testutil.RateLimited(2 * time.Minute))

	require.NoError(t, env.dispatcher.DispatchMove(context.Background(), "ext-9", "sec-1"))
	assert.Equal(t, 2*time.Minute, env.limiter.LastTTL)
}

func TestDispatcher_DispatchCreate_FatalErrorPropagates(t *testing.T) {
	env := newTestEnv()
	env.templates.Put(cropTemplate())
	env.provider.FailNext(testutil.Fatal())

	_, err := env.dispatcher.DispatchCreate(context.Background(), 7, cropTokens, "")
	require.Error(t, err)
	assert.Empty(t, env.queue.Jobs())

	limited, _ := env.limiter.IsRateLimited(context.Background())
	assert.False(t, limited)
}

func TestDispatcher_DispatchCreate_UnknownTemplate(t *testing.T) {
	env := newTestEnv()

	_, err := env.dispatcher.DispatchCreate(context.Background(), 404, nil, "")
	assert.ErrorIs(t, err, domainErrors.ErrTemplateNotFound)
}

func TestDispatcher_DispatchMove(t *testing.T) {
	ctx := context.Background()

	t.Run("synchronous", func(t *testing.T) {
		env := newTestEnv()
		require.NoError(t, env.dispatcher.DispatchMove(ctx, "ext-9", "sec-1"))
		assert.Equal(t, []testutil.MoveCall{{ExternalID: "ext-9", SectionID: "sec-1"}}, env.provider.Moves)
	})

	t.Run("queued under load", func(t *testing.T) {
		env := newTestEnv()
		for i := 0; i < 3; i++ {
			require.NoError(t, env.queue.Enqueue(ctx, &model.Job{ID: "j"}))
		}
		require.NoError(t, env.dispatcher.DispatchMove(ctx, "ext-9", "sec-1"))
		assert.Empty(t, env.provider.Moves)

		jobs := env.queue.Jobs()
		require.Len(t, jobs, 4)
		assert.Equal(t, model.JobMoveTask, jobs[3].Name)
	})
}

func TestDispatcher_Execute(t *testing.T) {
	ctx := context.Background()
	movePayload, _ := json.Marshal(model.MoveTaskPayload{ExternalID: "ext-9", SectionID: "sec-1"})
	createPayload, _ := json.Marshal(model.CreateTasksPayload{TemplateID: 7, Tokens: cropTokens})

	t.Run("runs create job", func(t *testing.T) {
		env := newTestEnv()
		env.templates.Put(cropTemplate())

		err := env.dispatcher.Execute(ctx, &model.Job{ID: "1", Name: model.JobCreateTasks, Payload: createPayload})
		require.NoError(t, err)
		assert.Equal(t, 4, env.provider.CallCount())
	})

	t.Run("runs move job", func(t *testing.T) {
		env := newTestEnv()

		err := env.dispatcher.Execute(ctx, &model.Job{ID: "1", Name: model.JobMoveTask, Payload: movePayload})
		require.NoError(t, err)
		assert.Len(t, env.provider.Moves, 1)
	})

	t.Run("rate limited job is re-queued", func(t *testing.T) {
		env := newTestEnv()
		env.provider.FailNext(testutil.RateLimited(0))

		err := env.dispatcher.Execute(ctx, &model.Job{ID: "1", Name: model.JobMoveTask, Payload: movePayload})
		assert.ErrorIs(t, err, domainErrors.ErrJobDeferred)

		jobs := env.queue.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, "1", jobs[0].ID)
		assert.Equal(t, 1, jobs[0].Attempts)

		limited, _ := env.limiter.IsRateLimited(ctx)
		assert.True(t, limited)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		env := newTestEnv()
		env.provider.FailNext(testutil.RateLimited(0))

		err := env.dispatcher.Execute(ctx, &model.Job{ID: "1", Name: model.JobMoveTask, Payload: movePayload, Attempts: 2})
		require.Error(t, err)
		assert.Empty(t, env.queue.Jobs())
	})

	t.Run("raised flag defers without calling or counting", func(t *testing.T) {
		env := newTestEnv()
		require.NoError(t, env.limiter.SetRateLimited(ctx, time.Minute))

		err := env.dispatcher.Execute(ctx, &model.Job{ID: "1", Name: model.JobMoveTask, Payload: movePayload, Attempts: 1})
		assert.ErrorIs(t, err, domainErrors.ErrJobDeferred)
		assert.Zero(t, env.provider.CallCount())
		assert.Empty(t, env.provider.Moves)

		jobs := env.queue.Jobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, 1, jobs[0].Attempts)
	})

	t.Run("job survives a rate limit window", func(t *testing.T) {
		env := newTestEnv()
		env.provider.FailNext(testutil.RateLimited(0))
		job := &model.Job{ID: "1", Name: model.JobMoveTask, Payload: movePayload}

		// the worker keeps popping the job while the flag stays raised
		for i := 0; i < 10; i++ {
			err := env.dispatcher.Execute(ctx, job)
			require.ErrorIs(t, err, domainErrors.ErrJobDeferred)
			next, err := env.queue.Dequeue(ctx, time.Second)
			require.NoError(t, err)
			require.NotNil(t, next, "job dropped on pass %d", i)
			job = next
			env.clock.Advance(5 * time.Second)
		}
		assert.Equal(t, 1, job.Attempts)
		assert.Empty(t, env.provider.Moves)

		env.clock.Advance(15 * time.Second)
		require.NoError(t, env.dispatcher.Execute(ctx, job))
		assert.Equal(t, []testutil.MoveCall{{ExternalID: "ext-9", SectionID: "sec-1"}}, env.provider.Moves)
		assert.Empty(t, env.queue.Jobs())
	})

	t.Run("unknown job", func(t *testing.T) {
		env := newTestEnv()

		err := env.dispatcher.Execute(ctx, &model.Job{ID: "1", Name: "reticulate"})
		assert.ErrorIs(t, err, domainErrors.ErrUnknownJob)
	})

	t.Run("bad payload", func(t *testing.T) {
		env := newTestEnv()

		err := env.dispatcher.Execute(ctx, &model.Job{ID: "1", Name: model.JobMoveTask, Payload: json.RawMessage(`"nope"`)})
		assert.Error(t, err)
	})
}
