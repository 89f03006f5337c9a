package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictionary"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/dictstore"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/filter"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/sampler"
	"github.com/sahithikokkula/Hackathon-E6Data/tabledict/pkg/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSource struct {
	calls atomic.Int32
	fail  error
}

func (s *recordingSource) Query(_ context.Context, table, attribute string, expr filter.Expression) (dictionary.Rows, error) {
	s.calls.Add(1)
	if s.fail != nil {
		return dictionary.Rows{}, s.fail
	}
	switch attribute {
	case "country":
		return dictionary.Rows{Statement: "q", Values: []dictionary.ValueCount{{Value: "US", Count: 9}, {Value: "DE", Count: 1}}}, nil
	case "plan":
		return dictionary.Rows{Statement: "q", Values: []dictionary.ValueCount{{Value: "free", Count: 2}}}, nil
	}
	return dictionary.Rows{Statement: "q"}, nil
}

func newServer(t *testing.T, fail error) (*httptest.Server, *recordingSource) {
	t.Helper()
	src := &recordingSource{fail: fail}
	store := dictstore.New(storage.NewMemoryStore(), dictstore.WithDictionaryOptions(
		dictionary.WithRowSource(src),
		dictionary.WithRandomSource(sampler.NewSeeded(3)),
	))
	r := mux.NewRouter()
	RegisterRoutes(r, store, zap.NewNop())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, src
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t, nil)
	status, body := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestGenerateThenReadAndSample(t *testing.T) {
	srv, src := newServer(t, nil)

	status, body := do(t, http.MethodPost, srv.URL+"/dictionaries/users/generate",
		`{"attributes": ["country", "plan"], "filters": {"active": 1}}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, int32(2), src.calls.Load())
	assert.Len(t, body["attributes"], 2)

	status, body = do(t, http.MethodGet, srv.URL+"/dictionaries/users", "")
	require.Equal(t, http.StatusOK, status)
	attrs := body["attributes"].([]any)
	require.Len(t, attrs, 2)
	first := attrs[0].(map[string]any)
	assert.Equal(t, "country", first["attribute"])
	assert.Equal(t, float64(10), first["total_count"])
	assert.Equal(t, "active = 1", first["filter"])

	status, body = do(t, http.MethodGet, srv.URL+"/dictionaries/users/country", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(10), body["total_count"])

	status, body = do(t, http.MethodGet, srv.URL+"/dictionaries/users/country/sample?n=20", "")
	require.Equal(t, http.StatusOK, status)
	values := body["values"].([]any)
	assert.Len(t, values, 20)
	for _, v := range values {
		assert.Contains(t, []any{"US", "DE"}, v)
	}
}

func TestGenerateRejectsNonStringAttribute(t *testing.T) {
	srv, src := newServer(t, nil)

	status, _ := do(t, http.MethodPost, srv.URL+"/dictionaries/users/generate", `{"attributes": ["country", 42]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Zero(t, src.calls.Load())

	status, body := do(t, http.MethodGet, srv.URL+"/dictionaries/users", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["attributes"])
}

func TestGenerateBadRequests(t *testing.T) {
	srv, _ := newServer(t, nil)
	for _, body := range []string{`{`, `{"attributes": []}`, `{"attributes": ["bad name"]}`} {
		status, _ := do(t, http.MethodPost, srv.URL+"/dictionaries/users/generate", body)
		assert.Equal(t, http.StatusBadRequest, status, body)
	}
	status, _ := do(t, http.MethodPost, srv.URL+"/dictionaries/bad-table/generate", `{"attributes": ["a"]}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGenerateSourceFailure(t *testing.T) {
	srv, _ := newServer(t, errors.New("db down"))

	status, body := do(t, http.MethodPost, srv.URL+"/dictionaries/users/generate", `{"attributes": ["country"]}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body["error"], "db down")
}

func TestUnknownAndEmptyAttributes(t *testing.T) {
	srv, _ := newServer(t, nil)

	status, _ := do(t, http.MethodGet, srv.URL+"/dictionaries/users/country", "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, http.MethodGet, srv.URL+"/dictionaries/users/country/sample", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, http.MethodPost, srv.URL+"/dictionaries/users/generate", `{"attributes": ["nickname"]}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = do(t, http.MethodGet, srv.URL+"/dictionaries/users/nickname/sample", "")
	assert.Equal(t, http.StatusConflict, status)
}

func TestSampleSizeBounds(t *testing.T) {
	srv, _ := newServer(t, nil)
	for _, n := range []string{"0", "-1", "abc", "10001"} {
		status, _ := do(t, http.MethodGet, srv.URL+"/dictionaries/users/country/sample?n="+n, "")
		assert.Equal(t, http.StatusBadRequest, status, n)
	}
}
