package config

// MockRule is one entry of the top-level "mock" array.
type MockRule struct {
	// URL-path prefix this rule matches.
	Prefix string `json:"prefix" yaml:"prefix"`

	// Filesystem path of the Lua handler artifact exposing processor(ctx).
	File string `json:"file" yaml:"file"`

	// When true (default), the matched prefix is removed from
	// request.path/request.uri before the handler sees them.
	Strip *bool `json:"strip,omitempty" yaml:"strip,omitempty"`
}

// StripOrDefault returns the effective strip flag, defaulting to true.
func (m MockRule) StripOrDefault() bool {
	if m.Strip == nil {
		return true
	}
	return *m.Strip
}

// TunnelMapping is one entry of "tunnel.mappings".
type TunnelMapping struct {
	Port       int    `json:"port" yaml:"port"`
	DestHost   string `json:"dest_host" yaml:"dest_host"`
	DestPort   int    `json:"dest_port" yaml:"dest_port"`
	Controller string `json:"controller,omitempty" yaml:"controller,omitempty"`
}

// TunnelConfig is the "tunnel" section of the config file.
type TunnelConfig struct {
	Mappings []TunnelMapping `json:"mappings,omitempty" yaml:"mappings,omitempty"`
}

// Config is the top-level config.json/config.yaml document (spec.md §6).
type Config struct {
	Mock   []MockRule   `json:"mock,omitempty" yaml:"mock,omitempty"`
	Tunnel TunnelConfig `json:"tunnel,omitempty" yaml:"tunnel,omitempty"`
}
