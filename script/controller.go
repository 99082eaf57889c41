package script

import (
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// LuaControllerFactory wraps a tunnel controller artifact: a Lua chunk
// defining a global "Controller" table with a "new(conn)" constructor.
// Grounded on pymock/config.py's load_tunnel_controller and
// pymock/tunnel.py's ControllerBase/Connection, where tunnel.controller_cls
// is instantiated once per Connection.
//
// One Lua VM backs every connection's controller instance for a given
// tunnel mapping; calls serialize through mu since *lua.LState is not
// goroutine-safe.
type LuaControllerFactory struct {
	mu   sync.Mutex
	L    *lua.LState
	Path string
}

// LoadController reads, compiles, and runs a Lua controller artifact, then
// verifies it defines a table global "Controller" with a "new" function.
func LoadController(path string) (*LuaControllerFactory, error) {
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return nil, newConfigError(path, "is not a file")
	}

	L := lua.NewState()
	registerFakeLib(L)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, newConfigError(path, "failed to load: %v", err)
	}

	ctrl := L.GetGlobal("Controller")
	tbl, ok := ctrl.(*lua.LTable)
	if !ok {
		L.Close()
		return nil, newConfigError(path, "no Controller table defined")
	}
	if newFn, ok := tbl.RawGetString("new").(*lua.LFunction); !ok || newFn == nil {
		L.Close()
		return nil, newConfigError(path, "Controller.new is not a function")
	}

	return &LuaControllerFactory{L: L, Path: path}, nil
}

// New implements script.ControllerFactory, instantiating one Controller
// object per tunnel connection by calling Controller.new(conn).
func (f *LuaControllerFactory) New(conn ConnInfo) Controller {
	f.mu.Lock()
	defer f.mu.Unlock()

	connTbl := f.L.NewTable()
	connTbl.RawSetString("conn_id", lua.LString(conn.ConnID()))
	connTbl.RawSetString("peer_ip", lua.LString(conn.PeerIP()))
	connTbl.RawSetString("peer_port", lua.LNumber(conn.PeerPort()))
	connTbl.RawSetString("tunnel_port", lua.LNumber(conn.TunnelPort()))

	ctrlTbl := f.L.GetGlobal("Controller").(*lua.LTable)
	newFn := ctrlTbl.RawGetString("new")

	if err := f.L.CallByParam(lua.P{Fn: newFn, NRet: 1, Protect: true}, connTbl); err != nil {
		return &DefaultController{}
	}
	instance := f.L.Get(-1)
	f.L.Pop(1)

	return &luaController{factory: f, self: instance}
}

// Close releases the Lua VM backing this controller factory.
func (f *LuaControllerFactory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.L.Close()
}

// luaController adapts one Controller.new(conn) instance to the Go
// Controller interface.
type luaController struct {
	factory *LuaControllerFactory
	self    lua.LValue
}

// callMethod invokes a named method on the Lua controller instance if it
// exists, returning any Lua runtime error so the caller can fail the
// connection instead of silently relaying past a broken hook.
func (c *luaController) callMethod(name string, args ...lua.LValue) error {
	c.factory.mu.Lock()
	defer c.factory.mu.Unlock()

	tbl, ok := c.self.(*lua.LTable)
	if !ok {
		return nil
	}
	fn := tbl.RawGetString(name)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	callArgs := append([]lua.LValue{c.self}, args...)
	if err := c.factory.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, callArgs...); err != nil {
		return fmt.Errorf("controller %s: %w", name, err)
	}
	return nil
}

func (c *luaController) OnConnected() { _ = c.callMethod("on_connected") }
func (c *luaController) OnOutput(data []byte) error {
	return c.callMethod("on_output", lua.LString(data))
}
func (c *luaController) OnInput(data []byte) error {
	return c.callMethod("on_input", lua.LString(data))
}

// DefaultController is the no-op Controller used for tunnel mappings with
// no configured controller artifact, the Go analogue of
// pymock/tunnel.py's ControllerBase default behavior.
type DefaultController struct{}

func (DefaultController) OnConnected()              {}
func (DefaultController) OnOutput(data []byte) error { return nil }
func (DefaultController) OnInput(data []byte) error  { return nil }

// DefaultControllerFactory always returns a DefaultController.
type DefaultControllerFactory struct{}

func (DefaultControllerFactory) New(conn ConnInfo) Controller { return DefaultController{} }
