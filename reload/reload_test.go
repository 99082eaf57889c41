package reload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mocktun/config"
	"mocktun/mockengine"
	"mocktun/tunnel"
)

func TestDispatcher_UnregisteredFileIgnored(t *testing.T) {
	dir := t.TempDir()
	rules, err := mockengine.NewRuleTable(dir, nil)
	require.NoError(t, err)

	d := &Dispatcher{
		ConfigPath: filepath.Join(dir, "config.json"),
		ConfigDir:  dir,
		Rules:      rules,
		Registry:   tunnel.NewRegistry(),
	}

	msg, err := d.ReloadFile(filepath.Join(dir, "nothing.lua"))
	require.NoError(t, err)
	assert.Equal(t, "unregistered file, ignore", msg)
}

func TestDispatcher_ReloadsHandlerFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	handlerPath := filepath.Join(dir, "h.lua")
	require.NoError(t, os.WriteFile(handlerPath, []byte(`
function processor(ctx)
  ctx:set_body("v1")
end
`), 0644))

	rules, err := mockengine.NewRuleTable(dir, []config.MockRule{{Prefix: "/a", File: "h.lua"}})
	require.NoError(t, err)

	d := &Dispatcher{
		ConfigPath: filepath.Join(dir, "config.json"),
		ConfigDir:  dir,
		Rules:      rules,
		Registry:   tunnel.NewRegistry(),
	}

	require.NoError(t, os.WriteFile(handlerPath, []byte(`
function processor(ctx)
  ctx:set_body("v2")
end
`), 0644))

	msg, err := d.ReloadFile(handlerPath)
	require.NoError(t, err)
	assert.Equal(t, "processor file reloaded", msg)
}
