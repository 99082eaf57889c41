package script

import (
	"github.com/brianvoe/gofakeit/v6"
	lua "github.com/yuin/gopher-lua"
)

// registerFakeLib installs a "fake" global table exposing a handful of
// gofakeit generators for handler scripts to synthesize response bodies
// (fake.name(), fake.email(), ...). The teacher used gofakeit for
// {{ gofakeit_xxx }} template substitution in its REST-mock response
// bodies (server/utils/template_process.go); scripts here call it
// directly instead of through a template placeholder.
func registerFakeLib(L *lua.LState) {
	tbl := L.NewTable()
	for name, fn := range fakeFuncs {
		L.SetField(tbl, name, L.NewFunction(fn))
	}
	L.SetGlobal("fake", tbl)
}

var fakeFuncs = map[string]lua.LGFunction{
	"name": func(L *lua.LState) int {
		L.Push(lua.LString(gofakeit.Name()))
		return 1
	},
	"email": func(L *lua.LState) int {
		L.Push(lua.LString(gofakeit.Email()))
		return 1
	},
	"uuid": func(L *lua.LState) int {
		L.Push(lua.LString(gofakeit.UUID()))
		return 1
	},
	"word": func(L *lua.LState) int {
		L.Push(lua.LString(gofakeit.Word()))
		return 1
	},
	"sentence": func(L *lua.LState) int {
		n := L.OptInt(1, 6)
		L.Push(lua.LString(gofakeit.Sentence(n)))
		return 1
	},
	"number": func(L *lua.LState) int {
		min := L.OptInt(1, 0)
		max := L.OptInt(2, 1000)
		L.Push(lua.LNumber(gofakeit.Number(min, max)))
		return 1
	},
	"bool": func(L *lua.LState) int {
		L.Push(lua.LBool(gofakeit.Bool()))
		return 1
	},
	"ip_v4": func(L *lua.LState) int {
		L.Push(lua.LString(gofakeit.IPv4Address()))
		return 1
	},
	"phone": func(L *lua.LState) int {
		L.Push(lua.LString(gofakeit.Phone()))
		return 1
	},
	"date_time": func(L *lua.LState) int {
		L.Push(lua.LString(gofakeit.Date().Format("2006-01-02T15:04:05Z07:00")))
		return 1
	},
}
