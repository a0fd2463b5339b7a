package snapshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sushant-115/pagesim/core/instructions"
	"github.com/sushant-115/pagesim/core/memory/mmu"
	"github.com/sushant-115/pagesim/core/memory/replacer"
	"github.com/sushant-115/pagesim/core/simulation"
)

func get(t *testing.T, h http.Handler, target string) (int, APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestServer_BeforeFirstStep(t *testing.T) {
	s := NewServer(zaptest.NewLogger(t))
	h := s.Handler()

	code, resp := get(t, h, "/snapshot")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NOT_FOUND", resp.Status)

	code, resp = get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "idle", resp.Message)
}

func TestServer_ServesRunnerSteps(t *testing.T) {
	s := NewServer(zaptest.NewLogger(t))
	h := s.Handler()

	runner, err := simulation.NewRunner(mmu.Config{PageSize: 100, TotalFrames: 2, Policy: replacer.SecondChance},
		simulation.Options{CompareOptimal: true}, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	ops, err := instructions.ParseString("new(1,250)\nuse(1)\n")
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), ops, s.Observe)
	require.NoError(t, err)

	code, resp := get(t, h, "/snapshot")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "OK", resp.Status)
	var step simulation.Step
	require.NoError(t, json.Unmarshal(resp.Data, &step))
	require.Equal(t, 1, step.Index)
	require.Equal(t, instructions.Use(1), step.Op)
	require.Len(t, step.Results, 2)
	require.Equal(t, 2, step.Results[0].Snapshot.Stats.ResidentPages)
	require.Equal(t, 1, step.Results[0].Snapshot.Stats.SwappedPages)

	code, resp = get(t, h, "/snapshot?policy=opt")
	require.Equal(t, http.StatusOK, code)
	var res simulation.EngineResult
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	require.Equal(t, replacer.Optimal, res.Policy)

	code, resp = get(t, h, "/snapshot?policy=MRU")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NOT_FOUND", resp.Status)

	code, resp = get(t, h, "/snapshot?policy=LRU")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "ERROR", resp.Status)

	code, resp = get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "finished", resp.Message)
}
