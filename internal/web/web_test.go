package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minikv/minikv/internal/protocol"
	"github.com/minikv/minikv/internal/store"
)

func TestStats(t *testing.T) {
	st := store.New()
	st.Set("a", protocol.BulkString("1"))
	st.Set("b", protocol.BulkString("2"))

	srv := httptest.NewServer(New("", st).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body statsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Keys)
	assert.NotEmpty(t, body.Version)
}

func TestStats_MethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(New("", store.New()).routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/stats", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	srv := httptest.NewServer(New("", store.New()).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
