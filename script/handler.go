package script

import (
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Handler wraps one loaded mock-processor artifact: a Lua chunk exposing a
// top-level "processor(ctx)" function. Grounded on pymock/config.py's
// load_mock_processor, which exec's the file and looks up a callable
// "processor" symbol.
//
// A gopher-lua *lua.LState is not goroutine-safe, so concurrent requests
// dispatched to the same Handler serialize through mu.
type Handler struct {
	mu   sync.Mutex
	L    *lua.LState
	Path string
}

// LoadHandler reads, compiles, and runs a Lua handler artifact, then
// verifies it defines a callable global "processor".
func LoadHandler(path string) (*Handler, error) {
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return nil, newConfigError(path, "is not a file")
	}

	L := lua.NewState()
	registerCtxType(L)
	registerFakeLib(L)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, newConfigError(path, "failed to load: %v", err)
	}

	processor := L.GetGlobal("processor")
	if processor.Type() != lua.LTFunction {
		L.Close()
		return nil, newConfigError(path, "no processor defined")
	}

	return &Handler{L: L, Path: path}, nil
}

// Call invokes processor(ctx) synchronously, mirroring pymock's
// "await rule.processor(ctx)" dispatch in generate_mock_processor.
func (h *Handler) Call(ctx ScriptContext) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ud := newCtxUserData(h.L, ctx)
	fn := h.L.GetGlobal("processor")
	if err := h.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, ud); err != nil {
		if httpErr, ok := asHTTPError(err); ok {
			return httpErr
		}
		return fmt.Errorf("handler %s: %w", h.Path, err)
	}
	return nil
}

// Close releases the Lua VM backing this handler.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.L.Close()
}
