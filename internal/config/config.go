// Package config composes the ff/v4 flag sets both binaries parse,
// following the teacher's cmd/flag.Set/Config wrapper and reading
// environment variables under a BOS_ prefix the way the teacher reads
// TINKERBELL_.
package config

import (
	"flag"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
)

// EnvPrefix is passed to ff.Parse so every flag can also be set via
// BOS_<FLAG_NAME> environment variables.
const EnvPrefix = "BOS"

// Config is a named flag plus its usage string, mirroring the teacher's
// cmd/flag.Config.
type Config struct {
	Name  string
	Usage string
}

// Set wraps ff.FlagSet with the teacher's panic-on-duplicate Register
// helper.
type Set struct {
	*ff.FlagSet
}

func NewSet(name string) *Set {
	return &Set{FlagSet: ff.NewFlagSet(name)}
}

func (s *Set) Register(c Config, fv flag.Value) {
	if _, err := s.AddFlag(ff.FlagConfig{LongName: c.Name, Usage: c.Usage, Value: fv}); err != nil {
		panic(err)
	}
}

// URLValue is a flag.Value validating its input is an http(s) URL
// before accepting it, grounded on the teacher's pkg/flag/url.URL.
type URLValue struct {
	value *string
}

func NewURLValue(dst *string, def string) *URLValue {
	*dst = def
	return &URLValue{value: dst}
}

func (u *URLValue) String() string {
	if u.value == nil {
		return ""
	}
	return *u.value
}

func (u *URLValue) Set(s string) error {
	if s == "" {
		return nil
	}
	if err := validator.New().Var(s, "http_url"); err != nil {
		return fmt.Errorf("invalid URL %q: %w", s, err)
	}
	*u.value = s
	return nil
}

// OperatorsConfig is every flag cmd/bos-operators accepts: connection
// endpoints for the four external services plus the component/session/
// option store, the metrics bind address, and an initial log level. Per SPEC_FULL.md's
// AMBIENT STACK note, runtime tunables (poll frequency, timeouts, ...)
// are NOT flags — those live in the option store and are owned by
// internal/engine/options.
type OperatorsConfig struct {
	HSMURL       string
	BSSURL       string
	PCSURL       string
	CFSURL       string
	StoreAddr    string
	MetricsAddr  string
	LogLevelFlag string
}

func RegisterOperators(fs *Set, c *OperatorsConfig) {
	fs.Register(Config{Name: "hsm-url", Usage: "base URL of the Hardware State Manager"}, NewURLValue(&c.HSMURL, ""))
	fs.Register(Config{Name: "bss-url", Usage: "base URL of the Boot Script Service"}, NewURLValue(&c.BSSURL, ""))
	fs.Register(Config{Name: "pcs-url", Usage: "base URL of the Power Control Service"}, NewURLValue(&c.PCSURL, ""))
	fs.Register(Config{Name: "cfs-url", Usage: "base URL of the Configuration Framework Service"}, NewURLValue(&c.CFSURL, ""))
	fs.Register(Config{Name: "store-addr", Usage: "address of the component/session/option store"}, ffval.NewValueDefault(&c.StoreAddr, "localhost:6379"))
	fs.Register(Config{Name: "metrics-addr", Usage: "bind address for the /metrics endpoint"}, ffval.NewValueDefault(&c.MetricsAddr, ":9090"))
	fs.Register(Config{Name: "log-level", Usage: "initial logging level override (DEBUG, INFO, WARNING, ERROR)"}, ffval.NewValueDefault(&c.LogLevelFlag, ""))
}

// ReportAPIConfig is every flag cmd/bos-reportapi accepts.
type ReportAPIConfig struct {
	StoreAddr    string
	BindAddr     string
	LogLevelFlag string
}

func RegisterReportAPI(fs *Set, c *ReportAPIConfig) {
	fs.Register(Config{Name: "store-addr", Usage: "address of the component/session/option store"}, ffval.NewValueDefault(&c.StoreAddr, "localhost:6379"))
	fs.Register(Config{Name: "bind-addr", Usage: "bind address for the actual-state report endpoint"}, ffval.NewValueDefault(&c.BindAddr, ":8080"))
	fs.Register(Config{Name: "log-level", Usage: "initial logging level override (DEBUG, INFO, WARNING, ERROR)"}, ffval.NewValueDefault(&c.LogLevelFlag, ""))
}
