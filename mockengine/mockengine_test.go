package mockengine

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mocktun/config"
	"mocktun/store"
)

func writeHandler(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRuleTable_DispatchMatchesAndStrips(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeHandler(t, dir, "h.lua", `
function processor(ctx)
  ctx:set_status(200)
  ctx:set_body("path=" .. ctx:path())
end
`)

	rt, err := NewRuleTable(dir, []config.MockRule{{Prefix: "/api", File: "h.lua"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/things", nil)
	st := store.New()
	defer st.Close()
	ctx := NewRequestContext(req, st)
	w := httptest.NewRecorder()
	ctx.w = w

	require.NoError(t, rt.Dispatch(ctx))
	assert.Equal(t, 200, ctx.respStatus)
	assert.Equal(t, "path=/things", string(ctx.respBody))
}

func TestRuleTable_NoMatchSets404(t *testing.T) {
	rt, err := NewRuleTable(t.TempDir(), nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	st := store.New()
	defer st.Close()
	ctx := NewRequestContext(req, st)

	require.NoError(t, rt.Dispatch(ctx))
	assert.Equal(t, 404, ctx.respStatus)
}

func TestRequestContext_FlushWritesHeadersAndBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	st := store.New()
	defer st.Close()
	ctx := NewRequestContext(req, st)
	w := httptest.NewRecorder()
	ctx.w = w

	ctx.SetStatus(201)
	ctx.SetBody("hi")
	require.NoError(t, ctx.Flush())

	resp := w.Result()
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get("Content-Length"))
}

func TestRequestContext_QueryArgumentLastValueWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?a=1&a=2", nil)
	st := store.New()
	defer st.Close()
	ctx := NewRequestContext(req, st)

	v, err := ctx.QueryArgument("a", false, "")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	_, err = ctx.QueryArgument("missing", false, "")
	assert.Error(t, err)
}

func TestRequestContext_StorePassthrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	st := store.New()
	defer st.Close()
	ctx := NewRequestContext(req, st)

	ctx.StorePut("k", "v", store.Unset)
	v, ok := ctx.StoreGet("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}
