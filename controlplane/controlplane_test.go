package controlplane

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mocktun/mockengine"
	"mocktun/reload"
	"mocktun/tunnel"
)

func newTestServer(t *testing.T, password string) *Server {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	rules, err := mockengine.NewRuleTable(dir, nil)
	require.NoError(t, err)
	registry := tunnel.NewRegistry()
	dispatch := &reload.Dispatcher{
		ConfigPath: filepath.Join(dir, "config.json"),
		ConfigDir:  dir,
		Rules:      rules,
		Registry:   registry,
	}
	return NewServer(Config{Addr: ":0", Password: password}, registry, dispatch)
}

func TestBasicAuth_RejectsMissingCredentials(t *testing.T) {
	s := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/tunnel", nil)
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBasicAuth_AllowsCorrectPassword(t *testing.T) {
	s := newTestServer(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/tunnel", nil)
	req.SetBasicAuth("ignored-user", "secret")
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleTunnelList_Empty(t *testing.T) {
	s := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/tunnel", nil)
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]", string(body))
}

func TestHandleFileGet_MissingPathArg(t *testing.T) {
	s := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/file", nil)
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleFileGet_ReadsFile(t *testing.T) {
	s := newTestServer(t, "")
	cwd, err := os.Getwd()
	require.NoError(t, err)
	path := filepath.Join(cwd, "hello.txt")
	require.NoError(t, os.WriteFile(path, []byte("hi"), 0644))

	req := httptest.NewRequest(http.MethodGet, "/file?path="+path, nil)
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "hi", string(body))
}

func TestHandleTunnelAction_UnknownAction(t *testing.T) {
	s := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/tunnel?action=bogus", nil)
	resp, err := s.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
