package mockengine

import (
	"fmt"
	"strings"
	"sync"

	"mocktun/config"
	"mocktun/logger"
	"mocktun/script"
)

// Rule is one loaded mock mapping: a URL-path prefix routed to a Lua
// handler. Grounded on pymock/config.py's Rule class.
type Rule struct {
	Prefix  string
	Strip   bool
	Handler *script.Handler
	File    string
}

// RuleTable holds the active rule set and dispatches incoming requests to
// the first matching rule, the Go analogue of pymock/config.py's
// module-level rule_list plus generate_mock_processor's mock_processor
// closure.
type RuleTable struct {
	mu    sync.RWMutex
	rules []*Rule
}

// NewRuleTable builds a RuleTable from config mock rules, loading every
// handler artifact up front (so a config error surfaces at load time, not
// on first request).
func NewRuleTable(configDir string, mockRules []config.MockRule) (*RuleTable, error) {
	rt := &RuleTable{}
	rules := make([]*Rule, 0, len(mockRules))

	for i, mr := range mockRules {
		file := config.NormalizePath(config.ResolveHandlerPath(configDir, mr.File))
		handler, err := script.LoadHandler(file)
		if err != nil {
			return nil, fmt.Errorf("mock[%d]: %w", i, err)
		}
		rules = append(rules, &Rule{
			Prefix:  mr.Prefix,
			Strip:   mr.StripOrDefault(),
			Handler: handler,
			File:    file,
		})
	}

	rt.rules = rules
	return rt, nil
}

// Dispatch finds the first rule whose prefix matches ctx's path, strips the
// prefix if configured, and invokes its handler. If no rule matches, it
// sets a 404 status, mirroring generate_mock_processor's mock_processor.
func (rt *RuleTable) Dispatch(ctx *RequestContext) error {
	rule := rt.match(ctx.Path())
	if rule == nil {
		logger.LogError(fmt.Sprintf("no processor found for %s", ctx.Path()))
		ctx.SetStatus(404)
		return nil
	}

	if rule.Strip {
		n := len(rule.Prefix)
		if len(ctx.Path()) >= n {
			ctx.SetPath(ctx.Path()[n:])
		}
		if len(ctx.URI()) >= n {
			ctx.SetURI(ctx.URI()[n:])
		}
	}

	return rule.Handler.Call(ctx)
}

func (rt *RuleTable) match(path string) *Rule {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	for _, r := range rt.rules {
		if strings.HasPrefix(path, r.Prefix) {
			return r
		}
	}
	return nil
}

// Replace atomically swaps in a freshly-built rule set, used by a full
// config reload (reload.Dispatcher's config-file branch).
func (rt *RuleTable) Replace(newTable *RuleTable) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.rules = newTable.rules
}

// ReplaceHandler hot-swaps a single rule's handler in place, used when a
// rule's own handler source file changes (reload.Dispatcher's
// processor-file branch).
func (rt *RuleTable) ReplaceHandler(file string, handler *script.Handler) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, r := range rt.rules {
		if r.File == file {
			r.Handler = handler
			return true
		}
	}
	return false
}

// Files returns every loaded handler's source path, used by the root
// process to register fsnotify watches.
func (rt *RuleTable) Files() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	files := make([]string, 0, len(rt.rules))
	for _, r := range rt.rules {
		files = append(files, r.File)
	}
	return files
}
