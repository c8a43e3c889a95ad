package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptloom/promptloom/pkg/loader"
	httpadapter "github.com/promptloom/promptloom/pkg/adapters/http"
	"github.com/promptloom/promptloom/pkg/adapters/memory"
	"github.com/promptloom/promptloom/pkg/session"
)

func testDefinition(t *testing.T) *loader.ChainFile {
	t.Helper()
	cfg, err := loader.Parse([]byte(`
name: greeting
context:
  name: Ada
agents:
  - name: greeter
    responses: ["Hello Ada"]
  - name: closer
matrix:
  - ["Greet {name}", ""]
  - ["", "Say goodbye to {name}"]
`), ".yaml")
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	manager := session.NewManager(memory.NewStore())
	server := httpadapter.NewServer(testDefinition(t), manager)
	ts := httptest.NewServer(httpadapter.Handler(server))
	t.Cleanup(ts.Close)
	return ts
}

func decode(t *testing.T, resp *http.Response) httpadapter.ChainResponse {
	t.Helper()
	defer resp.Body.Close()
	var out httpadapter.ChainResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateAndRunChain(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/chains", "application/json",
		bytes.NewBufferString(`{"session_id": "demo"}`))
	require.NoError(t, err)
	created := decode(t, resp)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "demo", created.SessionID)
	assert.Equal(t, "built", created.Status)
	assert.Equal(t, 2, created.Steps)

	resp, err = http.Post(ts.URL+"/chains/demo/run", "application/json", nil)
	require.NoError(t, err)
	ran := decode(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, ran.Done)
	assert.Equal(t, "complete", ran.Status)
	assert.Equal(t, "Hello Ada", ran.Context["Agent_0_Step_0_response"])
}

func TestStepChainAdvancesCursor(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/chains", "application/json",
		bytes.NewBufferString(`{"session_id": "stepper"}`))
	require.NoError(t, err)
	decode(t, resp)

	resp, err = http.Post(ts.URL+"/chains/stepper/step", "application/json", nil)
	require.NoError(t, err)
	first := decode(t, resp)
	assert.Equal(t, 1, first.Cursor)
	assert.False(t, first.Done)
	assert.Equal(t, "running", first.Status)

	resp, err = http.Post(ts.URL+"/chains/stepper/step", "application/json", nil)
	require.NoError(t, err)
	second := decode(t, resp)
	assert.Equal(t, 2, second.Cursor)
	assert.Equal(t, "complete", second.Status)

	// A GET reflects the persisted state.
	resp, err = http.Get(ts.URL + "/chains/stepper")
	require.NoError(t, err)
	status := decode(t, resp)
	assert.Equal(t, 2, status.Cursor)
	assert.True(t, status.Done)
}

func TestChainNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/chains/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteChain(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/chains", "application/json",
		bytes.NewBufferString(`{"session_id": "doomed"}`))
	require.NoError(t, err)
	decode(t, resp)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/chains/doomed", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/chains/doomed")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListChains(t *testing.T) {
	ts := newTestServer(t)

	for _, id := range []string{"a", "b"} {
		resp, err := http.Post(ts.URL+"/chains", "application/json",
			bytes.NewBufferString(`{"session_id": "`+id+`"}`))
		require.NoError(t, err)
		decode(t, resp)
	}

	resp, err := http.Get(ts.URL + "/chains")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		Sessions []string `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.ElementsMatch(t, []string{"a", "b"}, out.Sessions)
}
