package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCtx struct {
	method, path, uri string
	headers           map[string][]string
	status            int
	body              string
	storeData         map[string]string
}

func newFakeCtx() *fakeCtx {
	return &fakeCtx{method: "GET", path: "/hello", uri: "/hello", headers: map[string][]string{}, status: 200, storeData: map[string]string{}}
}

func (c *fakeCtx) Method() string         { return c.method }
func (c *fakeCtx) Path() string           { return c.path }
func (c *fakeCtx) SetPath(p string)       { c.path = p }
func (c *fakeCtx) URI() string            { return c.uri }
func (c *fakeCtx) SetURI(u string)        { c.uri = u }
func (c *fakeCtx) Header(n string) string { return "" }
func (c *fakeCtx) Headers() map[string][]string {
	return c.headers
}
func (c *fakeCtx) QueryArgument(name string, hasDefault bool, def string) (string, error) {
	if name == "missing" && !hasDefault {
		return "", errors.New("missing argument: " + name)
	}
	return def, nil
}
func (c *fakeCtx) BodyArgument(name string, hasDefault bool, def string) (string, error) {
	return def, nil
}
func (c *fakeCtx) RequestBody() ([]byte, error)        { return []byte("body"), nil }
func (c *fakeCtx) RequestChunk() ([]byte, bool, error) { return nil, false, nil }
func (c *fakeCtx) SetHeader(name, value string)        { c.headers[name] = []string{value} }
func (c *fakeCtx) AddHeader(name, value string)        { c.headers[name] = append(c.headers[name], value) }
func (c *fakeCtx) SetStatus(code int)                  { c.status = code }
func (c *fakeCtx) SetBody(body string)                 { c.body = body }
func (c *fakeCtx) Record()                             {}
func (c *fakeCtx) Forward(host string, port int, https, sreq, sresp bool) error { return nil }
func (c *fakeCtx) Flush() error                        { return nil }
func (c *fakeCtx) CloseSocket(noLinger bool) error     { return nil }
func (c *fakeCtx) StoreGet(key string) (string, bool) {
	v, ok := c.storeData[key]
	return v, ok
}
func (c *fakeCtx) StorePut(key, value string, expires int) { c.storeData[key] = value }
func (c *fakeCtx) StoreExpire(key string, expires int)     {}
func (c *fakeCtx) LogInfo(msg string)                      {}
func (c *fakeCtx) LogDebug(msg string)                     {}
func (c *fakeCtx) LogError(msg string)                     {}

func writeScript(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "handler.lua")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadHandler_MissingFile(t *testing.T) {
	_, err := LoadHandler("/nonexistent/handler.lua")
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadHandler_NoProcessor(t *testing.T) {
	path := writeScript(t, `x = 1`)
	_, err := LoadHandler(path)
	require.Error(t, err)
}

func TestHandler_Call_SetsStatusAndBody(t *testing.T) {
	path := writeScript(t, `
function processor(ctx)
  ctx:set_status(201)
  ctx:set_body("created: " .. ctx:path())
end
`)
	h, err := LoadHandler(path)
	require.NoError(t, err)
	defer h.Close()

	ctx := newFakeCtx()
	require.NoError(t, h.Call(ctx))
	assert.Equal(t, 201, ctx.status)
	assert.Equal(t, "created: /hello", ctx.body)
}

func TestHandler_Call_HTTPError(t *testing.T) {
	path := writeScript(t, `
function processor(ctx)
  ctx:http_error(404, "nope")
end
`)
	h, err := LoadHandler(path)
	require.NoError(t, err)
	defer h.Close()

	err = h.Call(newFakeCtx())
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 404, httpErr.Status)
}

func TestHandler_Call_MissingQueryArgumentBecomesHTTPError(t *testing.T) {
	path := writeScript(t, `
function processor(ctx)
  local v = ctx:query_argument("missing")
  ctx:set_body(v)
end
`)
	h, err := LoadHandler(path)
	require.NoError(t, err)
	defer h.Close()

	err = h.Call(newFakeCtx())
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 400, httpErr.Status)
}

func TestHandler_Call_FakeLib(t *testing.T) {
	path := writeScript(t, `
function processor(ctx)
  ctx:set_body(fake.uuid())
end
`)
	h, err := LoadHandler(path)
	require.NoError(t, err)
	defer h.Close()

	ctx := newFakeCtx()
	require.NoError(t, h.Call(ctx))
	assert.NotEmpty(t, ctx.body)
}

type fakeConn struct {
	id   string
	ip   string
	port int
	tp   int
}

func (c fakeConn) ConnID() string   { return c.id }
func (c fakeConn) PeerIP() string   { return c.ip }
func (c fakeConn) PeerPort() int    { return c.port }
func (c fakeConn) TunnelPort() int  { return c.tp }

func TestLoadController_NoController(t *testing.T) {
	path := writeScript(t, `x = 1`)
	_, err := LoadController(path)
	require.Error(t, err)
}

func TestController_Lifecycle(t *testing.T) {
	path := writeScript(t, `
Controller = {}
Controller.__index = Controller

function Controller.new(conn)
  local self = setmetatable({}, Controller)
  self.conn = conn
  self.connected = false
  self.seen = 0
  return self
end

function Controller:on_connected()
  self.connected = true
end

function Controller:on_output(data)
  self.seen = self.seen + #data
end
`)
	factory, err := LoadController(path)
	require.NoError(t, err)
	defer factory.Close()

	ctrl := factory.New(fakeConn{id: "ABC12345", ip: "127.0.0.1", port: 5000, tp: 9000})
	ctrl.OnConnected()
	ctrl.OnOutput([]byte("hello"))
	ctrl.OnInput([]byte("world"))
}
