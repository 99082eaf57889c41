// Package script loads hot-reloadable Lua artifacts (mock handlers and
// tunnel controllers) and bridges them to the rest of mocktun. It is the Go
// analogue of pymock/config.py's exec-based _load_item mechanism, using an
// embedded Lua runtime (github.com/yuin/gopher-lua) instead of exec'ing
// Python source.
package script

// ScriptContext is the Go-side surface a handler script drives through its
// "ctx" argument. mockengine.RequestContext implements this; script never
// imports mockengine, avoiding an import cycle.
//
// Method names mirror pymock/mock.py's MockMessageDelegate API.
type ScriptContext interface {
	Method() string
	Path() string
	SetPath(string)
	URI() string
	SetURI(string)
	Header(name string) string
	Headers() map[string][]string

	QueryArgument(name string, hasDefault bool, def string) (string, error)
	BodyArgument(name string, hasDefault bool, def string) (string, error)
	RequestBody() ([]byte, error)
	RequestChunk() ([]byte, bool, error)

	SetHeader(name, value string)
	AddHeader(name, value string)
	SetStatus(code int)
	SetBody(body string)

	Record()
	Forward(host string, port int, https bool, streamReq, streamResp bool) error
	Flush() error
	CloseSocket(noLinger bool) error

	StoreGet(key string) (string, bool)
	StorePut(key, value string, expiresSeconds int)
	StoreExpire(key string, expiresSeconds int)

	LogInfo(msg string)
	LogDebug(msg string)
	LogError(msg string)
}

// ConnInfo is the read-only identity of a tunnel connection, passed into a
// controller's constructor. tunnel.Connection implements this.
type ConnInfo interface {
	ConnID() string
	PeerIP() string
	PeerPort() int
	TunnelPort() int
}

// Controller receives tunnel connection lifecycle/data events. A no-op
// DefaultController is used for mappings with no controller artifact
// configured, the Go analogue of pymock/tunnel.py's ControllerBase.
//
// OnOutput/OnInput return an error when the hook itself fails (e.g. a Lua
// runtime error): hook failures propagate as connection failures, matching
// pymock's TunnelPeerError semantics, so the caller must fail and close the
// connection rather than relay past a broken hook.
type Controller interface {
	OnConnected()
	OnOutput(data []byte) error
	OnInput(data []byte) error
}

// ControllerFactory builds one Controller instance per connection.
type ControllerFactory interface {
	New(conn ConnInfo) Controller
}
