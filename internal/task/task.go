// Package task implements BuildGraph: a DAG of Tasks with acceptance
// criteria, dependency ids, and expected files, plus the scheduler that
// selects the next runnable task. Grounded on the teacher's
// internal/graph.DepGraph/FilterUnblockedOpen, generalized from a
// priority/estimate-ordered cortex Task queue to the build runtime's
// declaration-ordered BuildGraph.
package task

// Status is a Task's lifecycle state within one BuildGraph.
type Status string

const (
	StatusTodo    Status = "todo"
	StatusDoing   Status = "doing"
	StatusDone    Status = "done"
	StatusBlocked Status = "blocked"
)

// Task is one unit of work in a BuildGraph.
type Task struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Goal          string   `json:"goal"`
	Acceptance    []string `json:"acceptance"`
	DependsOn     []string `json:"depends_on"`
	FilesExpected []string `json:"files_expected"`
	Status        Status   `json:"status"`
}

// Graph is a BuildGraph: an ordered list of Tasks whose DependsOn relation
// forms a DAG.
type Graph struct {
	Tasks []Task `json:"tasks"`
}

// byID indexes tasks for O(1) lookup while preserving Tasks' declared order
// for scheduling ties.
func (g *Graph) byID() map[string]*Task {
	m := make(map[string]*Task, len(g.Tasks))
	for i := range g.Tasks {
		m[g.Tasks[i].ID] = &g.Tasks[i]
	}
	return m
}

// Find returns a pointer to the task with the given id, or nil.
func (g *Graph) Find(id string) *Task {
	for i := range g.Tasks {
		if g.Tasks[i].ID == id {
			return &g.Tasks[i]
		}
	}
	return nil
}

// HasCycle reports whether the dependency relation contains a cycle,
// detected via depth-first traversal with a recursion stack — the in-memory
// analogue of the teacher's WITH RECURSIVE cycle-check query.
func (g *Graph) HasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Tasks))
	byID := g.byID()

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		t := byID[id]
		if t != nil {
			for _, dep := range t.DependsOn {
				switch color[dep] {
				case gray:
					return true
				case white:
					if visit(dep) {
						return true
					}
				}
			}
		}
		color[id] = black
		return false
	}

	for _, t := range g.Tasks {
		if color[t.ID] == white {
			if visit(t.ID) {
				return true
			}
		}
	}
	return false
}

// NextRunnable returns the first todo task whose dependencies are all done,
// in declaration order, or nil if none is runnable. This is the scheduler
// spec.md §3/§4.4 names: "the scheduler selects the first todo task whose
// dependencies are all done."
func (g *Graph) NextRunnable() *Task {
	done := make(map[string]bool, len(g.Tasks))
	for _, t := range g.Tasks {
		if t.Status == StatusDone {
			done[t.ID] = true
		}
	}
	for i := range g.Tasks {
		t := &g.Tasks[i]
		if t.Status != StatusTodo {
			continue
		}
		allDone := true
		for _, dep := range t.DependsOn {
			if !done[dep] {
				allDone = false
				break
			}
		}
		if allDone {
			return t
		}
	}
	return nil
}

// AllDone reports whether every task in the graph is in the done state.
func (g *Graph) AllDone() bool {
	for _, t := range g.Tasks {
		if t.Status != StatusDone {
			return false
		}
	}
	return true
}
