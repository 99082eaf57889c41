package script

import (
	lua "github.com/yuin/gopher-lua"

	"mocktun/store"
)

const ctxTypeName = "mocktun.ctx"

// raiseHTTPError is how a handler script signals an HTTP-status failure,
// the Lua equivalent of pymock handlers raising tornado.web.HTTPError:
//
//	ctx:http_error(404, "not found")
//
// It unwinds through Lua's error mechanism carrying a table tagged with
// __mocktun_http_error, recovered by Handler.Call and turned into an
// *HTTPError.
func raiseHTTPError(L *lua.LState, status int, message string) int {
	tbl := L.NewTable()
	tbl.RawSetString("__mocktun_http_error", lua.LTrue)
	tbl.RawSetString("status", lua.LNumber(status))
	tbl.RawSetString("message", lua.LString(message))
	L.Error(tbl, 1)
	return 0
}

// asHTTPError inspects an error returned by L.PCall/CallByParam and, if it
// carries an __mocktun_http_error payload, extracts it.
func asHTTPError(err error) (*HTTPError, bool) {
	apiErr, ok := err.(*lua.ApiError)
	if !ok {
		return nil, false
	}
	tbl, ok := apiErr.Object.(*lua.LTable)
	if !ok {
		return nil, false
	}
	if tbl.RawGetString("__mocktun_http_error") != lua.LTrue {
		return nil, false
	}
	status := int(lua.LVAsNumber(tbl.RawGetString("status")))
	message := lua.LVAsString(tbl.RawGetString("message"))
	return &HTTPError{Status: status, Message: message}, true
}

// newCtxUserData wraps a ScriptContext in a Lua userdata with a metatable
// of method closures, so Lua code calls ctx:set_status(200) etc. directly
// against the Go-side RequestContext.
func newCtxUserData(L *lua.LState, ctx ScriptContext) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = ctx
	ud.Metatable = L.GetTypeMetatable(ctxTypeName)
	return ud
}

func checkCtx(L *lua.LState) ScriptContext {
	ud := L.CheckUserData(1)
	ctx, ok := ud.Value.(ScriptContext)
	if !ok {
		L.ArgError(1, "ctx expected")
		return nil
	}
	return ctx
}

func registerCtxType(L *lua.LState) {
	mt := L.NewTypeMetatable(ctxTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), ctxMethods))
}

var ctxMethods = map[string]lua.LGFunction{
	"method": func(L *lua.LState) int {
		L.Push(lua.LString(checkCtx(L).Method()))
		return 1
	},
	"path": func(L *lua.LState) int {
		ctx := checkCtx(L)
		if L.GetTop() >= 2 {
			ctx.SetPath(L.CheckString(2))
			return 0
		}
		L.Push(lua.LString(ctx.Path()))
		return 1
	},
	"uri": func(L *lua.LState) int {
		ctx := checkCtx(L)
		if L.GetTop() >= 2 {
			ctx.SetURI(L.CheckString(2))
			return 0
		}
		L.Push(lua.LString(ctx.URI()))
		return 1
	},
	"header": func(L *lua.LState) int {
		L.Push(lua.LString(checkCtx(L).Header(L.CheckString(2))))
		return 1
	},
	"headers": func(L *lua.LState) int {
		ctx := checkCtx(L)
		tbl := L.NewTable()
		for name, values := range ctx.Headers() {
			if len(values) > 0 {
				tbl.RawSetString(name, lua.LString(values[0]))
			}
		}
		L.Push(tbl)
		return 1
	},
	"query_argument": func(L *lua.LState) int {
		ctx := checkCtx(L)
		name := L.CheckString(2)
		hasDefault := L.GetTop() >= 3
		def := ""
		if hasDefault {
			def = L.CheckString(3)
		}
		val, err := ctx.QueryArgument(name, hasDefault, def)
		if err != nil {
			return raiseHTTPError(L, 400, err.Error())
		}
		L.Push(lua.LString(val))
		return 1
	},
	"body_argument": func(L *lua.LState) int {
		ctx := checkCtx(L)
		name := L.CheckString(2)
		hasDefault := L.GetTop() >= 3
		def := ""
		if hasDefault {
			def = L.CheckString(3)
		}
		val, err := ctx.BodyArgument(name, hasDefault, def)
		if err != nil {
			return raiseHTTPError(L, 400, err.Error())
		}
		L.Push(lua.LString(val))
		return 1
	},
	"request_body": func(L *lua.LState) int {
		body, err := checkCtx(L).RequestBody()
		if err != nil {
			return raiseHTTPError(L, 500, err.Error())
		}
		L.Push(lua.LString(body))
		return 1
	},
	"request_chunk": func(L *lua.LState) int {
		chunk, ok, err := checkCtx(L).RequestChunk()
		if err != nil {
			return raiseHTTPError(L, 500, err.Error())
		}
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(chunk))
		return 1
	},
	"set_header": func(L *lua.LState) int {
		checkCtx(L).SetHeader(L.CheckString(2), L.CheckString(3))
		return 0
	},
	"add_header": func(L *lua.LState) int {
		checkCtx(L).AddHeader(L.CheckString(2), L.CheckString(3))
		return 0
	},
	"set_status": func(L *lua.LState) int {
		checkCtx(L).SetStatus(L.CheckInt(2))
		return 0
	},
	"set_body": func(L *lua.LState) int {
		checkCtx(L).SetBody(L.CheckString(2))
		return 0
	},
	"http_error": func(L *lua.LState) int {
		code := L.CheckInt(2)
		msg := L.OptString(3, "")
		return raiseHTTPError(L, code, msg)
	},
	"record": func(L *lua.LState) int {
		checkCtx(L).Record()
		return 0
	},
	"forward": func(L *lua.LState) int {
		ctx := checkCtx(L)
		host := L.CheckString(2)
		port := L.OptInt(3, 80)
		https := L.OptBool(4, port == 443)
		streamReq := L.OptBool(5, false)
		streamResp := L.OptBool(6, false)
		if err := ctx.Forward(host, port, https, streamReq, streamResp); err != nil {
			return raiseHTTPError(L, 502, err.Error())
		}
		return 0
	},
	"flush": func(L *lua.LState) int {
		if err := checkCtx(L).Flush(); err != nil {
			return raiseHTTPError(L, 500, err.Error())
		}
		return 0
	},
	"close_socket": func(L *lua.LState) int {
		noLinger := L.OptBool(2, false)
		if err := checkCtx(L).CloseSocket(noLinger); err != nil {
			return raiseHTTPError(L, 500, err.Error())
		}
		return 0
	},
	"store_get": func(L *lua.LState) int {
		val, ok := checkCtx(L).StoreGet(L.CheckString(2))
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(val))
		return 1
	},
	"store_put": func(L *lua.LState) int {
		checkCtx(L).StorePut(L.CheckString(2), L.CheckString(3), L.OptInt(4, store.Unset))
		return 0
	},
	"store_expire": func(L *lua.LState) int {
		checkCtx(L).StoreExpire(L.CheckString(2), L.CheckInt(3))
		return 0
	},
	"log_info": func(L *lua.LState) int {
		checkCtx(L).LogInfo(L.CheckString(2))
		return 0
	},
	"log_debug": func(L *lua.LState) int {
		checkCtx(L).LogDebug(L.CheckString(2))
		return 0
	},
	"log_error": func(L *lua.LState) int {
		checkCtx(L).LogError(L.CheckString(2))
		return 0
	},
}
