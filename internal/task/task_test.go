package task

import "testing"

func TestNextRunnablePicksFirstUnblockedInOrder(t *testing.T) {
	g := &Graph{Tasks: []Task{
		{ID: "a", Status: StatusDone},
		{ID: "b", Status: StatusTodo, DependsOn: []string{"a"}},
		{ID: "c", Status: StatusTodo, DependsOn: []string{"z"}},
	}}

	next := g.NextRunnable()
	if next == nil || next.ID != "b" {
		t.Fatalf("expected task b to be runnable, got %+v", next)
	}
}

func TestNextRunnableNilWhenNoneReady(t *testing.T) {
	g := &Graph{Tasks: []Task{
		{ID: "a", Status: StatusTodo, DependsOn: []string{"b"}},
		{ID: "b", Status: StatusTodo, DependsOn: []string{"a"}},
	}}
	if next := g.NextRunnable(); next != nil {
		t.Fatalf("expected no runnable task, got %+v", next)
	}
}

func TestHasCycleDetectsSelfAndIndirectCycles(t *testing.T) {
	cases := []struct {
		name  string
		tasks []Task
		want  bool
	}{
		{"acyclic", []Task{{ID: "a"}, {ID: "b", DependsOn: []string{"a"}}}, false},
		{"self", []Task{{ID: "a", DependsOn: []string{"a"}}}, true},
		{"indirect", []Task{
			{ID: "a", DependsOn: []string{"c"}},
			{ID: "b", DependsOn: []string{"a"}},
			{ID: "c", DependsOn: []string{"b"}},
		}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := &Graph{Tasks: c.tasks}
			if got := g.HasCycle(); got != c.want {
				t.Fatalf("HasCycle() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestAllDone(t *testing.T) {
	g := &Graph{Tasks: []Task{{ID: "a", Status: StatusDone}, {ID: "b", Status: StatusDone}}}
	if !g.AllDone() {
		t.Fatal("expected AllDone true")
	}
	g.Tasks[1].Status = StatusTodo
	if g.AllDone() {
		t.Fatal("expected AllDone false")
	}
}
