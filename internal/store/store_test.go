package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tensorscope/internal/conn"
	"github.com/vk/tensorscope/internal/layout"
	"github.com/vk/tensorscope/internal/model"
)

func summary(id string, mean float64) model.TensorSummary {
	return model.TensorSummary{ID: id, Kind: model.KindVector, Stats: map[string]any{"mean": mean}}
}

func scenario(id string, defaults ...any) *model.ScenarioDetail {
	d := &model.ScenarioDetail{
		ID: id,
		Graph: &model.Graph{
			Nodes: []model.GraphNode{{ID: "A"}, {ID: "B"}},
			Edges: []model.GraphEdge{{FromNode: "A", FromOutput: "out", ToNode: "B", ToInput: "x"}},
		},
		Probes: []model.Probe{{Key: "A.out"}},
	}
	for i := 0; i+1 < len(defaults); i += 2 {
		d.Parameters = append(d.Parameters, model.Parameter{Name: defaults[i].(string), Default: defaults[i+1]})
	}
	return d
}

// loaded returns a state with scenario id installed and one run applied.
func loaded(t *testing.T, id string) State {
	t.Helper()
	s := Reduce(Initial(), ScenarioRequested{ID: id})
	detail := scenario(id, "n", 1.0)
	s = Reduce(s, ScenarioLoaded{Scenario: detail, Layout: layout.Compute(detail.GraphOrEmpty())})
	s = Reduce(s, RunRequested{})
	s = Reduce(s, RunSucceeded{ScenarioID: id, Seq: s.RunSeq, Result: &model.RunResult{
		Tensors: map[string]model.TensorSummary{"A.out": summary("A.out", 1)},
	}})
	require.False(t, s.Busy())
	return s
}

func TestReduce_Catalog(t *testing.T) {
	s := Reduce(Initial(), ScenariosRequested{})
	assert.True(t, s.IsLoadingScenarios)

	loadedState := Reduce(s, ScenariosLoaded{Scenarios: []model.ScenarioInfo{{ID: "ls"}}})
	assert.False(t, loadedState.IsLoadingScenarios)
	assert.Len(t, loadedState.Scenarios, 1)

	failed := Reduce(s, ScenariosFailed{Err: "connection refused"})
	assert.False(t, failed.IsLoadingScenarios, "loading flags clear on failure")
	assert.Equal(t, "connection refused", failed.Error)
}

func TestReduce_ScenarioSwitch(t *testing.T) {
	s := loaded(t, "first")
	s = Reduce(s, TensorSelected{ID: "A.out"})
	s = Reduce(s, ParameterUpdated{Name: "n", Value: 7.0})
	staleSeq := s.RunSeq

	s = Reduce(s, ScenarioRequested{ID: "second"})
	assert.Equal(t, "second", s.CurrentScenarioID)
	assert.True(t, s.IsLoadingScenario)
	assert.Greater(t, s.RunSeq, staleSeq)
	assert.Nil(t, s.Scenario, "the previous scenario is dropped with the request")
	assert.Nil(t, s.Layout)
	assert.Empty(t, s.Graph.Nodes)
	assert.Empty(t, s.Parameters)
	assert.Empty(t, s.Tensors)
	assert.Empty(t, s.SelectedTensorID)

	t.Run("pushes are ignored while loading", func(t *testing.T) {
		after := Reduce(s, TensorUpdated{ID: "A.out", Summary: summary("A.out", 3)})
		after = Reduce(after, TensorsReplaced{Tensors: map[string]model.TensorSummary{"A.out": summary("A.out", 4)}})
		after = Reduce(after, GraphUpdated{Graph: model.Graph{Nodes: []model.GraphNode{{ID: "Z"}}}})
		assert.Equal(t, s, after)
	})

	t.Run("failed switch keeps nothing of the previous scenario", func(t *testing.T) {
		after := Reduce(s, ScenarioFailed{ID: "second", Err: "404: not found"})
		assert.Equal(t, "404: not found", after.Error)
		assert.False(t, after.IsLoadingScenario)
		assert.Equal(t, "second", after.CurrentScenarioID)
		assert.Nil(t, after.Scenario)
		assert.Empty(t, after.Parameters)
		assert.Empty(t, after.Tensors)
	})

	detail := scenario("second", "k", "qr")
	s = Reduce(s, ScenarioLoaded{Scenario: detail})
	assert.Same(t, detail, s.Scenario)
	assert.Equal(t, map[string]any{"k": "qr"}, s.Parameters, "parameters are replaced by defaults")
	assert.Empty(t, s.Tensors)
	assert.Empty(t, s.SelectedTensorID)
	assert.False(t, s.IsLoadingScenario)
	assert.Len(t, s.Graph.Nodes, 2)

	t.Run("late detail for the old scenario is ignored", func(t *testing.T) {
		after := Reduce(s, ScenarioLoaded{Scenario: scenario("first", "n", 1.0)})
		assert.Equal(t, s, after)
		after = Reduce(s, ScenarioFailed{ID: "first", Err: "boom"})
		assert.Empty(t, after.Error)
	})

	t.Run("late run for the old scenario is ignored", func(t *testing.T) {
		late := RunSucceeded{ScenarioID: "first", Seq: staleSeq, Result: &model.RunResult{
			Tensors: map[string]model.TensorSummary{"stale": summary("stale", 0)},
		}}
		assert.Equal(t, s, Reduce(s, late))
		assert.Equal(t, s, Reduce(s, RunFailed{ScenarioID: "first", Seq: staleSeq, Err: "x"}))
	})
}

func TestReduce_Runs(t *testing.T) {
	s := loaded(t, "ls")

	s = Reduce(s, RunRequested{})
	first := s.RunSeq
	s = Reduce(s, RunRequested{})
	second := s.RunSeq
	assert.True(t, s.IsRunningScenario)

	t.Run("superseded run is ignored", func(t *testing.T) {
		after := Reduce(s, RunSucceeded{ScenarioID: "ls", Seq: first, Result: &model.RunResult{}})
		assert.Equal(t, s, after)
	})

	t.Run("failure keeps previous tensors", func(t *testing.T) {
		after := Reduce(s, RunFailed{ScenarioID: "ls", Seq: second, Err: "400: bad"})
		assert.False(t, after.IsRunningScenario)
		assert.Equal(t, "400: bad", after.Error)
		assert.Contains(t, after.Tensors, "A.out")
	})

	t.Run("success replaces tensors", func(t *testing.T) {
		after := Reduce(s, RunSucceeded{ScenarioID: "ls", Seq: second, Result: &model.RunResult{
			Tensors: map[string]model.TensorSummary{"B.out": summary("B.out", 2)},
		}})
		assert.False(t, after.IsRunningScenario)
		assert.Equal(t, []string{"B.out"}, keys(after.Tensors))
	})
}

func TestReduce_MergeLaw(t *testing.T) {
	base := loaded(t, "ls")
	single := TensorUpdated{ID: "A.out", Summary: summary("A.out", 5)}
	bulk := TensorsReplaced{Tensors: map[string]model.TensorSummary{
		"A.out": summary("A.out", 9),
		"B.out": summary("B.out", 9),
	}}

	t.Run("single then bulk equals bulk", func(t *testing.T) {
		s := Reduce(Reduce(base, single), bulk)
		assert.Equal(t, bulk.Tensors, s.Tensors)
	})

	t.Run("bulk then single overwrites one key", func(t *testing.T) {
		s := Reduce(Reduce(base, bulk), single)
		assert.Equal(t, summary("A.out", 5), s.Tensors["A.out"])
		assert.Equal(t, summary("B.out", 9), s.Tensors["B.out"])
	})

	t.Run("inputs are never mutated", func(t *testing.T) {
		s := Reduce(base, single)
		assert.Equal(t, summary("A.out", 1), base.Tensors["A.out"])
		s = Reduce(s, bulk)
		s = Reduce(s, TensorUpdated{ID: "C.out", Summary: summary("C.out", 0)})
		assert.NotContains(t, bulk.Tensors, "C.out")
	})
}

func TestReduce_Misc(t *testing.T) {
	s := loaded(t, "ls")

	before := s.Parameters
	s = Reduce(s, ParameterUpdated{Name: "n", Value: 3.0})
	assert.Equal(t, 3.0, s.Parameters["n"])
	assert.Equal(t, 1.0, before["n"])

	s = Reduce(s, TensorSelected{ID: "A.out"})
	sel, ok := s.SelectedTensor()
	require.True(t, ok)
	assert.Equal(t, "A.out", sel.ID)

	s = Reduce(s, ServerError{Message: "Unknown scenario"})
	assert.Equal(t, "Unknown scenario", s.Notice)
	assert.Contains(t, s.Tensors, "A.out", "application errors change nothing else")

	s = Reduce(s, ConnectionChanged{State: conn.Reconnecting})
	assert.Equal(t, conn.Reconnecting, s.Connection)

	g := model.Graph{Nodes: []model.GraphNode{{ID: "Z"}}}
	s = Reduce(s, GraphUpdated{Graph: g, Layout: layout.Compute(g)})
	assert.Equal(t, g, s.Graph)
	assert.Contains(t, s.Layout.Positions, "Z")

	s = Reduce(s, ErrorCleared{})
	assert.Empty(t, s.Notice)
	assert.Empty(t, s.Error)
}

func TestStore(t *testing.T) {
	st := New(Initial())

	var mu sync.Mutex
	var seen []Action
	unsubscribe := st.Subscribe(func(s State, a Action) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, a)
	})

	next := st.Dispatch(ScenariosRequested{})
	assert.True(t, next.IsLoadingScenarios)
	assert.Equal(t, next, st.Snapshot())

	unsubscribe()
	st.Dispatch(ScenariosFailed{Err: "x"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Action{ScenariosRequested{}}, seen)
	assert.Equal(t, "x", st.Snapshot().Error)
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	st := New(Initial())
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Dispatch(TensorUpdated{ID: string(rune('a' + i%26)), Summary: summary("x", float64(i))})
			_ = st.Snapshot()
		}()
	}
	wg.Wait()
	assert.Len(t, st.Snapshot().Tensors, 26)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
