package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/tensorscope/internal/model"
)

const scenarioJSON = `{
  "id": "least_squares",
  "name": "Least Squares",
  "description": "Fit a line",
  "parameters": [
    {"name": "noise_level", "display_name": "Noise", "type": "continuous", "default": 0.1, "description": "", "min": 0, "max": 1, "step": 0.05, "options": null},
    {"name": "solver", "display_name": "Solver", "type": "discrete", "default": "qr", "description": "", "options": ["qr", "svd"]}
  ],
  "probes": [{"key": "solve.x", "display_name": "Solution", "description": ""}],
  "graph": {
    "nodes": [{"id": "solve", "name": "Solve", "inputs": ["A", "b"], "outputs": ["x"], "tags": []}],
    "edges": [{"from_node": "_input", "from_output": "A", "to_node": "solve", "to_input": "A"}]
  }
}`

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("GET /api/scenarios", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":"least_squares","name":"Least Squares","description":"Fit a line"}]`)
	})
	mux.HandleFunc("GET /api/scenarios/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "least_squares" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"detail":"Scenario 'nope' not found"}`)
			return
		}
		io.WriteString(w, scenarioJSON)
	})
	mux.HandleFunc("POST /api/scenarios/{id}/run", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Parameters map[string]any `json:"parameters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Parameters == nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			io.WriteString(w, `{"detail":[{"loc":["body"],"msg":"field required"}]}`)
			return
		}
		if v, ok := body.Parameters["noise_level"].(float64); ok && v > 1 {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"detail":"noise_level out of range"}`)
			return
		}
		resp := map[string]any{
			"scenario_id": r.PathValue("id"),
			"parameters":  body.Parameters,
			"tensors": map[string]any{
				"solve.x": map[string]any{"id": "solve.x", "name": "x", "kind": "vector", "tags": []string{}, "shape": []int{2}, "dtype": "float64", "stats": map[string]any{"norm": 1.5}, "recommended_views": []string{"bar"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("GET /api/tensors/{id}/summary", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"`+r.PathValue("id")+`","name":"x","kind":"vector","tags":[],"shape":[2],"dtype":"float64","stats":{},"recommended_views":[]}`)
	})
	mux.HandleFunc("GET /api/tensors/{id}/data", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("max_size") != "4" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"detail":"Tensor too large (6 elements). Use /slice endpoint."}`)
			return
		}
		io.WriteString(w, `{"id":"A.out","name":"A","shape":[2,2],"dtype":"float64","data":[[1,2],[3,4]]}`)
	})
	mux.HandleFunc("GET /api/tensors/{id}/slice", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("row_start"))
		assert.Equal(t, "3", q.Get("row_end"))
		assert.Equal(t, "0", q.Get("col_start"))
		assert.False(t, q.Has("col_end"))
		io.WriteString(w, `{"id":"A.out","name":"A","full_shape":[4,2],"slice_shape":[2,2],"row_range":[1,3],"col_range":[0,2],"data":[[3,4],[5,6]]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", time.Second)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return srv, c
}

func TestNew(t *testing.T) {
	_, err := New("ws://localhost:8000", time.Second)
	assert.Error(t, err)
	_, err = New("http://localhost:8000", time.Second)
	assert.NoError(t, err)
}

func TestClient_Scenarios(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	list, err := c.ListScenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ScenarioInfo{{ID: "least_squares", Name: "Least Squares", Description: "Fit a line"}}, list)

	detail, err := c.GetScenario(ctx, "least_squares")
	require.NoError(t, err)
	require.Len(t, detail.Parameters, 2)
	assert.Equal(t, model.ParamContinuous, detail.Parameters[0].Type)
	require.NotNil(t, detail.Parameters[0].Max)
	assert.Equal(t, 1.0, *detail.Parameters[0].Max)
	assert.Equal(t, []any{"qr", "svd"}, detail.Parameters[1].Options)
	assert.Equal(t, []string{"solve.x"}, detail.ProbeKeys())
	require.NotNil(t, detail.Graph)
	assert.Len(t, detail.Graph.Edges, 1)

	_, err = c.GetScenario(ctx, "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Scenario 'nope' not found", apiErr.Detail)
}

func TestClient_Run(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	res, err := c.RunScenario(ctx, "least_squares", map[string]any{"noise_level": 0.3})
	require.NoError(t, err)
	assert.Equal(t, "least_squares", res.ScenarioID)
	assert.Equal(t, 0.3, res.Parameters["noise_level"])
	require.Contains(t, res.Tensors, "solve.x")
	norm, ok := res.Tensors["solve.x"].Stat("norm")
	require.True(t, ok)
	assert.Equal(t, 1.5, norm)

	res, err = c.RunScenario(ctx, "least_squares", nil)
	require.NoError(t, err, "nil parameters are sent as an empty object")
	assert.Empty(t, res.Parameters)

	_, err = c.RunScenario(ctx, "least_squares", map[string]any{"noise_level": 5})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "noise_level out of range")
}

func TestClient_Tensors(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	summary, err := c.TensorSummary(ctx, "solve.x")
	require.NoError(t, err)
	assert.Equal(t, "solve.x", summary.ID)

	data, err := c.TensorData(ctx, "A.out", 4)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, data.Shape)
	assert.Len(t, data.Data, 2)

	_, err = c.TensorData(ctx, "A.out", 0)
	assert.ErrorContains(t, err, "Use /slice endpoint")

	end := 3
	slice, err := c.TensorSlice(ctx, "A.out", model.SliceRequest{RowStart: 1, RowEnd: &end})
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 3}, slice.RowRange)
	assert.Equal(t, []int{4, 2}, slice.FullShape)
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "plain", detail([]byte(`{"detail":"plain"}`)))
	assert.Equal(t, `[{"msg":"field required"}]`, detail([]byte(`{"detail":[{"msg":"field required"}]}`)))
	assert.Equal(t, "Internal Server Error", detail([]byte("Internal Server Error\n")))
}
