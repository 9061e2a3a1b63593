package options

import "time"

// LogLevel is the closed set of logging levels the option store accepts.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// Options is an immutable snapshot of every tunable enumerated in
// spec.md §6. Readers receive an Options value (a copy of the published
// snapshot);
// the Cache publishes a new value on every refresh.
type Options struct {
	BSSReadTimeout             time.Duration
	CFSReadTimeout             time.Duration
	HSMReadTimeout             time.Duration
	PCSReadTimeout             time.Duration
	CleanupCompletedSessionTTL time.Duration
	ComponentActualStateTTL    time.Duration
	DiscoveryFrequency         time.Duration
	PollingFrequency           time.Duration
	MaxComponentWaitTime       time.Duration
	MaxBootWaitTime            time.Duration
	MaxPowerOnWaitTime         time.Duration
	MaxPowerOffWaitTime        time.Duration
	LoggingLevel               LogLevel
	MaxComponentBatchSize      int
	DisableComponentsOnCompletion bool
	ClearStage                 bool
	DefaultRetryPolicy         int
	SessionLimitRequired       bool
}

// Defaults returns the documented default snapshot, used before the
// first successful option-store fetch and to backfill any keys missing
// from the store.
func Defaults() Options {
	return Options{
		BSSReadTimeout:                10 * time.Second,
		CFSReadTimeout:                10 * time.Second,
		HSMReadTimeout:                10 * time.Second,
		PCSReadTimeout:                10 * time.Second,
		CleanupCompletedSessionTTL:    7 * 24 * time.Hour,
		ComponentActualStateTTL:       4 * time.Hour,
		DiscoveryFrequency:            300 * time.Second,
		PollingFrequency:              15 * time.Second,
		MaxComponentWaitTime:          300 * time.Second,
		MaxBootWaitTime:               1200 * time.Second,
		MaxPowerOnWaitTime:            120 * time.Second,
		MaxPowerOffWaitTime:           300 * time.Second,
		LoggingLevel:                  LogLevelInfo,
		MaxComponentBatchSize:         2800,
		DisableComponentsOnCompletion: true,
		ClearStage:                    false,
		DefaultRetryPolicy:            0,
		SessionLimitRequired:          false,
	}
}

// Raw is the wire shape of the single option record as stored in the
// options store: a flat string-keyed map, so that unknown/legacy keys
// can be round-tripped without the engine needing to understand them
// (mirroring the original's remove_invalid_keys boundary).
type Raw map[string]string

const (
	KeyBSSReadTimeout             = "bss_read_timeout"
	KeyCFSReadTimeout             = "cfs_read_timeout"
	KeyHSMReadTimeout             = "hsm_read_timeout"
	KeyPCSReadTimeout             = "pcs_read_timeout"
	KeyCleanupCompletedSessionTTL = "cleanup_completed_session_ttl"
	KeyComponentActualStateTTL    = "component_actual_state_ttl"
	KeyDiscoveryFrequency         = "discovery_frequency"
	KeyPollingFrequency           = "polling_frequency"
	KeyMaxComponentWaitTime       = "max_component_wait_time"
	KeyMaxBootWaitTime            = "max_boot_wait_time"
	KeyMaxPowerOnWaitTime         = "max_power_on_wait_time"
	KeyMaxPowerOffWaitTime        = "max_power_off_wait_time"
	KeyLoggingLevel               = "logging_level"
	KeyMaxComponentBatchSize      = "max_component_batch_size"
	KeyDisableComponentsOnCompletion = "disable_components_on_completion"
	KeyClearStage                 = "clear_stage"
	KeyDefaultRetryPolicy         = "default_retry_policy"
	KeySessionLimitRequired       = "session_limit_required"
)

// IsOptionName reports whether key is one of the enumerated option
// keys, used to filter out stray keys the way the original's
// is_option_name/remove_invalid_keys boundary does.
func IsOptionName(key string) bool {
	switch key {
	case KeyBSSReadTimeout, KeyCFSReadTimeout, KeyHSMReadTimeout, KeyPCSReadTimeout,
		KeyCleanupCompletedSessionTTL, KeyComponentActualStateTTL, KeyDiscoveryFrequency,
		KeyPollingFrequency, KeyMaxComponentWaitTime, KeyMaxBootWaitTime,
		KeyMaxPowerOnWaitTime, KeyMaxPowerOffWaitTime, KeyLoggingLevel,
		KeyMaxComponentBatchSize, KeyDisableComponentsOnCompletion, KeyClearStage,
		KeyDefaultRetryPolicy, KeySessionLimitRequired:
		return true
	default:
		return false
	}
}
