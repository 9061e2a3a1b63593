package options

import (
	"fmt"
	"strconv"
	"time"
)

// Decode turns a Raw option map into an Options snapshot, filling any
// missing or invalid key with its documented default rather than
// failing the whole decode — a single bad value is a schema violation
// per spec.md §7 (log and skip), not a reason to keep the engine
// running on no options at all.
func Decode(raw Raw, warn func(key string, err error)) Options {
	o := Defaults()
	if warn == nil {
		warn = func(string, error) {}
	}

	setDuration := func(key string, dst *time.Duration) {
		v, ok := raw[key]
		if !ok {
			return
		}
		d, err := ParseDuration(v)
		if err != nil {
			warn(key, err)
			return
		}
		*dst = d
	}
	setSeconds := func(key string, dst *time.Duration) {
		v, ok := raw[key]
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			warn(key, err)
			return
		}
		*dst = time.Duration(n) * time.Second
	}
	setInt := func(key string, dst *int) {
		v, ok := raw[key]
		if !ok {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			warn(key, err)
			return
		}
		*dst = n
	}
	setBool := func(key string, dst *bool) {
		v, ok := raw[key]
		if !ok {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			warn(key, err)
			return
		}
		*dst = b
	}

	setSeconds(KeyBSSReadTimeout, &o.BSSReadTimeout)
	setSeconds(KeyCFSReadTimeout, &o.CFSReadTimeout)
	setSeconds(KeyHSMReadTimeout, &o.HSMReadTimeout)
	setSeconds(KeyPCSReadTimeout, &o.PCSReadTimeout)
	setDuration(KeyCleanupCompletedSessionTTL, &o.CleanupCompletedSessionTTL)
	setDuration(KeyComponentActualStateTTL, &o.ComponentActualStateTTL)
	setSeconds(KeyDiscoveryFrequency, &o.DiscoveryFrequency)
	setSeconds(KeyPollingFrequency, &o.PollingFrequency)
	setSeconds(KeyMaxComponentWaitTime, &o.MaxComponentWaitTime)
	setSeconds(KeyMaxBootWaitTime, &o.MaxBootWaitTime)
	setSeconds(KeyMaxPowerOnWaitTime, &o.MaxPowerOnWaitTime)
	setSeconds(KeyMaxPowerOffWaitTime, &o.MaxPowerOffWaitTime)
	setInt(KeyMaxComponentBatchSize, &o.MaxComponentBatchSize)
	setBool(KeyDisableComponentsOnCompletion, &o.DisableComponentsOnCompletion)
	setBool(KeyClearStage, &o.ClearStage)
	setInt(KeyDefaultRetryPolicy, &o.DefaultRetryPolicy)
	setBool(KeySessionLimitRequired, &o.SessionLimitRequired)

	if v, ok := raw[KeyLoggingLevel]; ok {
		switch LogLevel(v) {
		case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
			o.LoggingLevel = LogLevel(v)
		default:
			warn(KeyLoggingLevel, fmt.Errorf("unknown logging level %q", v))
		}
	}

	return o
}

// Encode is the inverse of Decode, used by tests asserting the
// round-trip invariant.
func Encode(o Options) Raw {
	return Raw{
		KeyBSSReadTimeout:                strconv.Itoa(int(o.BSSReadTimeout / time.Second)),
		KeyCFSReadTimeout:                strconv.Itoa(int(o.CFSReadTimeout / time.Second)),
		KeyHSMReadTimeout:                strconv.Itoa(int(o.HSMReadTimeout / time.Second)),
		KeyPCSReadTimeout:                strconv.Itoa(int(o.PCSReadTimeout / time.Second)),
		KeyCleanupCompletedSessionTTL:    FormatDuration(o.CleanupCompletedSessionTTL),
		KeyComponentActualStateTTL:       FormatDuration(o.ComponentActualStateTTL),
		KeyDiscoveryFrequency:            strconv.Itoa(int(o.DiscoveryFrequency / time.Second)),
		KeyPollingFrequency:              strconv.Itoa(int(o.PollingFrequency / time.Second)),
		KeyMaxComponentWaitTime:          strconv.Itoa(int(o.MaxComponentWaitTime / time.Second)),
		KeyMaxBootWaitTime:               strconv.Itoa(int(o.MaxBootWaitTime / time.Second)),
		KeyMaxPowerOnWaitTime:            strconv.Itoa(int(o.MaxPowerOnWaitTime / time.Second)),
		KeyMaxPowerOffWaitTime:           strconv.Itoa(int(o.MaxPowerOffWaitTime / time.Second)),
		KeyLoggingLevel:                  string(o.LoggingLevel),
		KeyMaxComponentBatchSize:         strconv.Itoa(o.MaxComponentBatchSize),
		KeyDisableComponentsOnCompletion: strconv.FormatBool(o.DisableComponentsOnCompletion),
		KeyClearStage:                    strconv.FormatBool(o.ClearStage),
		KeyDefaultRetryPolicy:            strconv.Itoa(o.DefaultRetryPolicy),
		KeySessionLimitRequired:          strconv.FormatBool(o.SessionLimitRequired),
	}
}
