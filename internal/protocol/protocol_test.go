package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tensorscope/internal/model"
)

func TestEncode(t *testing.T) {
	testCases := []struct {
		name string
		msg  ClientMessage
		want string
	}{
		{
			name: "subscribe",
			msg:  Subscribe{TensorID: "solve.x"},
			want: `{"type":"subscribe","tensor_id":"solve.x"}`,
		},
		{
			name: "subscribe with view",
			msg:  &Subscribe{TensorID: "A.out", View: "heatmap"},
			want: `{"type":"subscribe","tensor_id":"A.out","view":"heatmap"}`,
		},
		{
			name: "unsubscribe",
			msg:  Unsubscribe{TensorID: "A.out"},
			want: `{"type":"unsubscribe","tensor_id":"A.out"}`,
		},
		{
			name: "update_param",
			msg:  UpdateParam{ScenarioID: "least_squares", Param: "noise_level", Value: 0.25},
			want: `{"type":"update_param","scenario_id":"least_squares","param":"noise_level","value":0.25}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))
		})
	}
}

type bogus struct{}

func (bogus) Type() string { return "bogus" }

func TestEncode_Unknown(t *testing.T) {
	_, err := Encode(bogus{})
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	t.Run("tensor_update", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"tensor_update","tensor_id":"A.out","summary":{"id":"A.out","name":"A","kind":"matrix","shape":[3,2],"dtype":"float64","stats":{"mean":1.5},"tags":["x"],"recommended_views":["heatmap"]}}`))
		require.NoError(t, err)
		upd, ok := msg.(TensorUpdate)
		require.True(t, ok)
		assert.Equal(t, "A.out", upd.TensorID)
		assert.Equal(t, model.KindMatrix, upd.Summary.Kind)
		assert.Equal(t, []int{3, 2}, upd.Summary.Shape)
		assert.Equal(t, []string{"heatmap"}, upd.Summary.RecommendedViews)
		mean, ok := upd.Summary.Stat("mean")
		require.True(t, ok)
		assert.Equal(t, 1.5, mean)
	})

	t.Run("tensors_update", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"tensors_update","tensors":{"A.out":{"id":"A.out"},"B.out":{"id":"B.out"}}}`))
		require.NoError(t, err)
		upd := msg.(TensorsUpdate)
		assert.Len(t, upd.Tensors, 2)
		assert.Equal(t, "B.out", upd.Tensors["B.out"].ID)
	})

	t.Run("tensors_update with empty set", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"tensors_update","tensors":{}}`))
		require.NoError(t, err)
		upd := msg.(TensorsUpdate)
		assert.NotNil(t, upd.Tensors)
		assert.Empty(t, upd.Tensors)
	})

	t.Run("graph_update", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"graph_update","nodes":[{"id":"A","name":"a","inputs":[],"outputs":["out"],"tags":[]}],"edges":[{"from_node":"A","from_output":"out","to_node":"A","to_input":"x"}]}`))
		require.NoError(t, err)
		upd := msg.(GraphUpdate)
		require.Len(t, upd.Graph.Nodes, 1)
		require.Len(t, upd.Graph.Edges, 1)
		assert.True(t, upd.Graph.Edges[0].IsSelfLoop())
	})

	t.Run("error", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"error","message":"Unknown scenario"}`))
		require.NoError(t, err)
		assert.Equal(t, ErrorMessage{Message: "Unknown scenario"}, msg)
	})
}

func TestDecode_Malformed(t *testing.T) {
	testCases := map[string]string{
		"invalid json":        `{"type":`,
		"not an object":       `[1,2]`,
		"missing type":        `{"tensor_id":"A.out"}`,
		"unknown type":        `{"type":"ping"}`,
		"tensor without id":   `{"type":"tensor_update","summary":{}}`,
		"tensor without body": `{"type":"tensor_update","tensor_id":"A.out"}`,
		"tensors missing":     `{"type":"tensors_update"}`,
		"graph without nodes": `{"type":"graph_update","edges":[]}`,
		"error without text":  `{"type":"error"}`,
	}

	for name, payload := range testCases {
		t.Run(name, func(t *testing.T) {
			msg, err := Decode([]byte(payload))
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
