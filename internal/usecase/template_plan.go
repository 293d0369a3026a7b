package usecase

import (
	"fmt"
	"sort"

	"github.com/gammazero/toposort"

	"github.com/wekeepgrowing/todosync/internal/domain/model"
)

// PlannedTask is one template entry in expansion order. Predecessor is the
// plan index of the entry it depends on, or -1 when there is none or the
// predecessor comes later in the plan.
type PlannedTask struct {
	Task        *model.TemplateTask
	Predecessor int
}

// BuildPlan orders template tasks by (order, id) and resolves dependencies
// into plan indexes.
func BuildPlan(tasks []model.TemplateTask) []PlannedTask {
	ordered := make([]*model.TemplateTask, len(tasks))
	for i := range tasks {
		ordered[i] = &tasks[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].ID < ordered[j].ID
	})

	index := make(map[int64]int, len(ordered))
	plan := make([]PlannedTask, len(ordered))
	for i, t := range ordered {
		pred := -1
		if t.DependsOnID != nil {
			if j, ok := index[*t.DependsOnID]; ok {
				pred = j
			}
		}
		plan[i] = PlannedTask{Task: t, Predecessor: pred}
		index[t.ID] = i
	}
	return plan
}

// dependencyNode is a template entry seen by the graph check.
type dependencyNode struct {
	Key       string
	DependsOn string
}

// validateDependencies checks that every dependency names another entry of
// the same template and that the graph has no cycle. Problems are keyed by
// the failing entry.
func validateDependencies(nodes []dependencyNode) map[string]string {
	problems := make(map[string]string)
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if known[n.Key] {
			problems[n.Key] = fmt.Sprintf("duplicate reference %q", n.Key)
		}
		known[n.Key] = true
	}

	edges := make([]toposort.Edge, 0, len(nodes))
	for _, n := range nodes {
		switch {
		case n.DependsOn == "":
			edges = append(edges, toposort.Edge{nil, n.Key})
		case n.DependsOn == n.Key:
			problems[n.Key] = "task cannot depend on itself"
		case !known[n.DependsOn]:
			problems[n.Key] = fmt.Sprintf("depends on unknown task %q", n.DependsOn)
		default:
			edges = append(edges, toposort.Edge{n.DependsOn, n.Key})
		}
	}

	if len(problems) > 0 {
		return problems
	}

	if _, err := toposort.Toposort(edges); err != nil {
		problems["tasks"] = fmt.Sprintf("dependencies form a cycle: %v", err)
	}
	return problems
}
