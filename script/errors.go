package script

import "fmt"

// ConfigError reports a problem loading or validating a handler or
// controller artifact: missing file, missing global symbol, wrong type.
// Grounded on pymock/config.py's _load_item/load_mock_processor/
// load_tunnel_controller, which all raise ValueError for these cases.
type ConfigError struct {
	File string
	Msg  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

func newConfigError(file, format string, args ...any) *ConfigError {
	return &ConfigError{File: file, Msg: fmt.Sprintf(format, args...)}
}

// HTTPError is a status-coded failure raised from inside a handler script
// (e.g. a required query argument was missing). mockengine maps it to a
// response with Status and Body set from log_message, mirroring pymock's
// tornado.web.HTTPError handling in MockMessageDelegate._process.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error %d: %s", e.Status, e.Message)
}
