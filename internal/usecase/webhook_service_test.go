package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/dto"
	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/testutil"
)

type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) Route(ctx context.Context, child *model.Task, parentExternalID string, labels []string) (bool, error) {
	args := m.Called(ctx, child, parentExternalID, labels)
	return args.Bool(0), args.Error(1)
}

func strPtr(s string) *string { return &s }

func seedTrackedTask(t *testing.T, tasks *testutil.TaskRepo) *model.Task {
	t.Helper()
	due := time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC)
	task := &model.Task{
		ExternalID: "ext-42",
		Title:      "Transplant Nantes",
		DueDate:    &due,
		SectionID:  "sec-a",
	}
	require.NoError(t, tasks.Create(context.Background(), task))
	return task
}

func TestWebhookService_Process_Completed(t *testing.T) {
	tasks := testutil.NewTaskRepo()
	task := seedTrackedTask(t, tasks)
	router := new(MockRouter)
	svc := NewWebhookService(tasks, router, nil, zap.NewNop())

	out, err := svc.Process(context.Background(), &dto.WebhookPayload{
		EventName: dto.EventItemCompleted,
		EventData: dto.TodoistItem{ID: "ext-42", Checked: true},
	})
	require.NoError(t, err)

	assert.True(t, out.Tracked)
	assert.Equal(t, []string{"completed"}, out.Updated)
	assert.False(t, out.Routed)

	stored, _ := tasks.GetByID(context.Background(), task.ID)
	assert.True(t, stored.Completed)
	router.AssertNotCalled(t, "Route", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_Process_IsIdempotent(t *testing.T) {
	tasks := testutil.NewTaskRepo()
	seedTrackedTask(t, tasks)
	svc := NewWebhookService(tasks, new(MockRouter), nil, zap.NewNop())
	payload := &dto.WebhookPayload{
		EventName: dto.EventItemCompleted,
		EventData: dto.TodoistItem{ID: "ext-42"},
	}

	_, err := svc.Process(context.Background(), payload)
	require.NoError(t, err)
	out, err := svc.Process(context.Background(), payload)
	require.NoError(t, err)

	assert.Empty(t, out.Updated)
	assert.Equal(t, 1, tasks.Writes)
}

func TestWebhookService_Process_Updated(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		item    dto.TodoistItem
		want    []string
		checkFn func(t *testing.T, task *model.Task)
	}{
		{
			name: "due date moved",
			item: dto.TodoistItem{ID: "ext-42", Due: &dto.Due{Date: "2025-04-01"}},
			want: []string{"due_date"},
			checkFn: func(t *testing.T, task *model.Task) {
				require.NotNil(t, task.DueDate)
				assert.Equal(t, "2025-04-01", task.DueDate.Format("2006-01-02"))
			},
		},
		{
			name: "due date with time keeps calendar day",
			item: dto.TodoistItem{ID: "ext-42", Due: &dto.Due{Date: "2025-03-24T09:00:00"}},
		},
		{
			name: "due date cleared",
			item: dto.TodoistItem{ID: "ext-42"},
			want: []string{"due_date"},
			checkFn: func(t *testing.T, task *model.Task) {
				assert.Nil(t, task.DueDate)
			},
		},
		{
			name: "section changed and checked",
			item: dto.TodoistItem{ID: "ext-42", Checked: true, SectionID: strPtr("sec-b"), Due: &dto.Due{Date: "2025-03-24"}},
			want: []string{"completed", "section_id"},
			checkFn: func(t *testing.T, task *model.Task) {
				assert.True(t, task.Completed)
				assert.Equal(t, "sec-b", task.SectionID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := testutil.NewTaskRepo()
			task := seedTrackedTask(t, tasks)
			svc := NewWebhookService(tasks, new(MockRouter), nil, zap.NewNop())

			out, err := svc.Process(ctx, &dto.WebhookPayload{EventName: dto.EventItemUpdated, EventData: tt.item})
			require.NoError(t, err)

			assert.Equal(t, tt.want, out.Updated)
			if len(tt.want) == 0 {
				assert.Zero(t, tasks.Writes)
			} else {
				assert.Equal(t, 1, tasks.Writes)
			}
			if tt.checkFn != nil {
				stored, _ := tasks.GetByID(ctx, task.ID)
				tt.checkFn(t, stored)
			}
		})
	}
}

func TestWebhookService_Process_Uncompleted(t *testing.T) {
	ctx := context.Background()
	tasks := testutil.NewTaskRepo()
	task := seedTrackedTask(t, tasks)
	require.NoError(t, tasks.UpdateFields(ctx, task.ID, map[string]interface{}{"completed": true}))
	svc := NewWebhookService(tasks, new(MockRouter), nil, zap.NewNop())

	out, err := svc.Process(ctx, &dto.WebhookPayload{
		EventName: dto.EventItemUncompleted,
		EventData: dto.TodoistItem{ID: "ext-42"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"completed"}, out.Updated)
	stored, _ := tasks.GetByID(ctx, task.ID)
	assert.False(t, stored.Completed)
}

func TestWebhookService_Process_UnknownItem(t *testing.T) {
	tasks := testutil.NewTaskRepo()
	seedTrackedTask(t, tasks)
	router := new(MockRouter)
	svc := NewWebhookService(tasks, router, nil, zap.NewNop())

	out, err := svc.Process(context.Background(), &dto.WebhookPayload{
		EventName: dto.EventItemCompleted,
		EventData: dto.TodoistItem{ID: "someone-else", ParentID: strPtr("p"), Labels: []string{"harvested"}},
	})
	require.NoError(t, err)

	assert.False(t, out.Tracked)
	assert.Zero(t, tasks.Writes)
	router.AssertNotCalled(t, "Route", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookService_Process_RoutesCompletedChild(t *testing.T) {
	ctx := context.Background()
	tasks := testutil.NewTaskRepo()
	seedTrackedTask(t, tasks)
	router := new(MockRouter)
	router.On("Route", ctx, mock.MatchedBy(func(task *model.Task) bool { return task.ExternalID == "ext-42" }),
		"parent-ext", []string{"harvested"}).Return(true, nil).Once()
	svc := NewWebhookService(tasks, router, nil, zap.NewNop())

	out, err := svc.Process(ctx, &dto.WebhookPayload{
		EventName: dto.EventItemCompleted,
		EventData: dto.TodoistItem{ID: "ext-42", ParentID: strPtr("parent-ext"), Labels: []string{"harvested"}},
	})
	require.NoError(t, err)

	assert.True(t, out.Routed)
	router.AssertExpectations(t)
}

func TestWebhookService_Process_RouteFailureKeepsUpdate(t *testing.T) {
	ctx := context.Background()
	tasks := testutil.NewTaskRepo()
	task := seedTrackedTask(t, tasks)
	router := new(MockRouter)
	router.On("Route", ctx, mock.Anything, "parent-ext", []string{"harvested"}).Return(false, testutil.ErrBoom)
	svc := NewWebhookService(tasks, router, nil, zap.NewNop())

	out, err := svc.Process(ctx, &dto.WebhookPayload{
		EventName: dto.EventItemCompleted,
		EventData: dto.TodoistItem{ID: "ext-42", ParentID: strPtr("parent-ext"), Labels: []string{"harvested"}},
	})
	require.NoError(t, err)

	assert.False(t, out.Routed)
	stored, _ := tasks.GetByID(ctx, task.ID)
	assert.True(t, stored.Completed)
}

func TestWebhookService_Process_NoRoutingWithoutLabels(t *testing.T) {
	tasks := testutil.NewTaskRepo()
	seedTrackedTask(t, tasks)
	router := new(MockRouter)
	svc := NewWebhookService(tasks, router, nil, zap.NewNop())

	_, err := svc.Process(context.Background(), &dto.WebhookPayload{
		EventName: dto.EventItemCompleted,
		EventData: dto.TodoistItem{ID: "ext-42", ParentID: strPtr("parent-ext")},
	})
	require.NoError(t, err)

	router.AssertNotCalled(t, "Route", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
