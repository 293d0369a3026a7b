package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wekeepgrowing/todosync/internal/domain/dto"
	domainErrors "github.com/wekeepgrowing/todosync/internal/domain/errors"
	"github.com/wekeepgrowing/todosync/internal/testutil"
)

func newTaskGroupService(env *testEnv) *TaskGroupService {
	return NewTaskGroupService(env.templates, env.expander, env.dispatcher)
}

func TestTaskGroupService_Create(t *testing.T) {
	env := newTestEnv()
	env.templates.Put(cropTemplate())
	svc := newTaskGroupService(env)

	res, err := svc.Create(context.Background(), &dto.CreateTaskGroupRequest{TemplateID: 7, Tokens: cropTokens})
	require.NoError(t, err)

	assert.False(t, res.Queued)
	require.NotNil(t, res.ParentTaskID)
	assert.Equal(t, "ext-1", res.ExternalID)
	assert.Equal(t, 4, res.TaskCount)
}

func TestTaskGroupService_Create_Queued(t *testing.T) {
	env := newTestEnv()
	env.templates.Put(cropTemplate())
	require.NoError(t, env.limiter.SetRateLimited(context.Background(), time.Minute))
	svc := newTaskGroupService(env)

	res, err := svc.Create(context.Background(), &dto.CreateTaskGroupRequest{TemplateID: 7, Tokens: cropTokens})
	require.NoError(t, err)

	assert.Equal(t, &dto.TaskGroupResponse{Queued: true}, res)
}

func TestTaskGroupService_Create_Deferred(t *testing.T) {
	env := newTestEnv()
	env.templates.Put(cropTemplate())
	svc := newTaskGroupService(env)
	ctx := context.Background()

	res, err := svc.Create(ctx, &dto.CreateTaskGroupRequest{TemplateID: 7, Tokens: cropTokens, Deferred: true})
	require.NoError(t, err)

	require.NotNil(t, res.ParentTaskID)
	assert.Empty(t, res.ExternalID)
	assert.Equal(t, 4, res.TaskCount)
	assert.Zero(t, env.provider.CallCount())

	pushed, err := svc.Push(ctx, *res.ParentTaskID)
	require.NoError(t, err)
	assert.True(t, pushed.Created)
	assert.Equal(t, "ext-1", pushed.ExternalID)

	again, err := svc.Push(ctx, *res.ParentTaskID)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, 1, env.provider.CallCount())
}

func TestTaskGroupService_Create_UnknownTemplate(t *testing.T) {
	env := newTestEnv()
	svc := newTaskGroupService(env)

	for _, deferred := range []bool{false, true} {
		_, err := svc.Create(context.Background(), &dto.CreateTaskGroupRequest{TemplateID: 99, Deferred: deferred})
		assert.ErrorIs(t, err, domainErrors.ErrTemplateNotFound)
	}
}

func TestTaskGroupService_Create_ProviderFailure(t *testing.T) {
	env := newTestEnv()
	env.templates.Put(cropTemplate())
	env.provider.FailNext(testutil.Fatal())
	svc := newTaskGroupService(env)

	_, err := svc.Create(context.Background(), &dto.CreateTaskGroupRequest{TemplateID: 7, Tokens: cropTokens})
	assert.Error(t, err)
}
