package usecase

import (
	"time"

	"go.uber.org/zap"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
	"github.com/wekeepgrowing/todosync/internal/testutil"
)

var testNow = time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)

type testEnv struct {
	tasks      *testutil.TaskRepo
	templates  *testutil.TemplateRepo
	sections   *testutil.SectionRepo
	labels     *testutil.LabelRepo
	rules      *testutil.RuleRepo
	provider   *testutil.Provider
	clock      *testutil.Clock
	limiter    *testutil.RateLimitStore
	queue      *testutil.JobQueue
	expander   *Expander
	dispatcher *Dispatcher
}

func newTestEnv() *testEnv {
	env := &testEnv{
		tasks:     testutil.NewTaskRepo(),
		templates: testutil.NewTemplateRepo(),
		sections:  testutil.NewSectionRepo(),
		labels:    testutil.NewLabelRepo(),
		rules:     testutil.NewRuleRepo(),
		provider:  testutil.NewProvider(),
		clock:     testutil.NewClock(testNow),
		queue:     testutil.NewJobQueue(),
	}
	env.limiter = testutil.NewRateLimitStore(env.clock)

	logger := zap.NewNop()
	env.expander = NewExpander(env.tasks, env.provider, ExpanderConfig{
		DefaultProjectID: "default-project",
		HiddenPriority:   1,
		HiddenLabel:      "hidden",
	}, logger)
	env.expander.now = env.clock.Now

	env.dispatcher = NewDispatcher(env.templates, env.expander, env.provider, env.limiter, env.queue, DispatcherConfig{
		QueueThreshold: 3,
		RateLimitTTL:   60 * time.Second,
		MaxAttempts:    3,
	}, nil, logger)
	env.dispatcher.now = env.clock.Now
	return env
}

func intPtr(v int) *int { return &v }

// cropTemplate has three entries: sow, transplant after sow, and a hidden
// harvest reminder after transplant.
func cropTemplate() *model.Template {
	return &model.Template{
		ID:          7,
		Title:       "Carrots",
		TaskType:    "crop",
		Description: "Seed lot {sku}",
		Tags:        model.StringList{"crop"},
		Tasks: []model.TemplateTask{
			{ID: 11, TemplateID: 7, Title: "Sow {variety_name}", Order: 1, DueOffsetDays: intPtr(0), Tags: model.StringList{"sowing"}},
			{ID: 12, TemplateID: 7, Title: "Transplant {variety_name} to {bed} ({unknown})", Order: 2, DueOffsetDays: intPtr(14), DependsOnID: int64Ptr(11)},
			{ID: 13, TemplateID: 7, Title: "Check {sku}", Order: 3, Hide: true, DependsOnID: int64Ptr(12)},
		},
	}
}

// bed is not a crop token field: it is substituted but not stored on the parent.
var cropTokens = map[string]string{"sku": "CAR-001", "variety_name": "Nantes", "bed": "B3"}
