package config

import (
	"fmt"
	"time"
)

// BackendDefinition is the raw decode target for one entry under the
// binding daemon's "backends" list.
type BackendDefinition struct {
	BaseURL string `mapstructure:"base_url"`
}

// DaemonDefinition is the raw decode target for the binding daemon's
// configuration file — a distinct tree from the HTTPS server's Definition,
// since the two are independent processes per spec.md §1.
type DaemonDefinition struct {
	Socket           string              `mapstructure:"socket"`
	Domain           string              `mapstructure:"domain"`
	Token            string              `mapstructure:"token"`
	HTTPAuthHeader   string              `mapstructure:"http_auth_header"`
	HTTPAuthScheme   string              `mapstructure:"http_auth_scheme"`
	Backends         []BackendDefinition `mapstructure:"backends"`
	Concurrency      int                 `mapstructure:"concurrency"`
	HTTP2Only        bool                `mapstructure:"http2_only"`
	RestrictGetPwUid bool                `mapstructure:"restrict_getpwuid"`
	RestrictGetGrGid bool                `mapstructure:"restrict_getgrgid"`
	RequestTimeout   time.Duration       `mapstructure:"request_timeout"`
	ProbeTimeout     time.Duration       `mapstructure:"probe_timeout"`
}

// DaemonConfig is the validated, immutable binding-daemon configuration.
type DaemonConfig struct {
	Socket           string
	Domain           string
	Token            string
	HTTPAuthHeader   string
	HTTPAuthScheme   string
	Backends         []string
	Concurrency      int
	HTTP2Only        bool
	RestrictGetPwUid bool
	RestrictGetGrGid bool
	RequestTimeout   time.Duration
	ProbeTimeout     time.Duration
}

const (
	defaultConcurrency    = 10
	defaultRequestTimeout = 10 * time.Second
	defaultProbeTimeout   = 2 * time.Second
)

// NewDaemonConfig validates def and returns an immutable DaemonConfig.
func NewDaemonConfig(def *DaemonDefinition) (*DaemonConfig, error) {
	if def.Socket == "" {
		return nil, fmt.Errorf("config: daemon: socket path is required")
	}
	if def.Domain == "" {
		return nil, fmt.Errorf("config: daemon: domain is required")
	}
	if len(def.Backends) == 0 {
		return nil, fmt.Errorf("config: daemon: at least one backend is required")
	}

	backends := make([]string, len(def.Backends))
	for i, b := range def.Backends {
		if b.BaseURL == "" {
			return nil, fmt.Errorf("config: daemon: backend %d: base_url is required", i)
		}
		backends[i] = b.BaseURL
	}

	concurrency := def.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	requestTimeout := def.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	probeTimeout := def.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	authHeader := def.HTTPAuthHeader
	if authHeader == "" {
		authHeader = "Authorization"
	}
	authScheme := def.HTTPAuthScheme
	if authScheme == "" {
		authScheme = "Bearer"
	}

	return &DaemonConfig{
		Socket:           def.Socket,
		Domain:           def.Domain,
		Token:            def.Token,
		HTTPAuthHeader:   authHeader,
		HTTPAuthScheme:   authScheme,
		Backends:         backends,
		Concurrency:      concurrency,
		HTTP2Only:        def.HTTP2Only,
		RestrictGetPwUid: def.RestrictGetPwUid,
		RestrictGetGrGid: def.RestrictGetGrGid,
		RequestTimeout:   requestTimeout,
		ProbeTimeout:     probeTimeout,
	}, nil
}
