package telemetry

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig contains configuration for Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether profiling is enabled
	Enabled bool

	// ServiceName is the application name shown in Pyroscope
	ServiceName string

	// ServiceVersion is the application version
	ServiceVersion string

	// Endpoint is the Pyroscope server URL, e.g. "http://localhost:4040"
	Endpoint string

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string
}

var profilingEnabled bool

// DefaultProfilingConfig returns profiling disabled with CPU and heap
// profiles selected.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		ServiceName:    "dittobox",
		ServiceVersion: "dev",
		Endpoint:       "http://localhost:4040",
		ProfileTypes:   []string{"cpu", "alloc_space", "inuse_space", "goroutines"},
	}
}

var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// InitProfiling starts Pyroscope continuous profiling. The returned
// function stops the profiler.
func InitProfiling(cfg ProfilingConfig) (shutdown func() error, err error) {
	if !cfg.Enabled {
		profilingEnabled = false
		return func() error { return nil }, nil
	}

	types := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, name := range cfg.ProfileTypes {
		pt, err := parseProfileType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, pt)

		switch pt {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(5)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(5)
		}
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            map[string]string{"version": cfg.ServiceVersion},
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	profilingEnabled = true

	return profiler.Stop, nil
}

// IsProfilingEnabled returns whether profiling is enabled
func IsProfilingEnabled() bool {
	return profilingEnabled
}

func parseProfileType(name string) (pyroscope.ProfileType, error) {
	pt, ok := profileTypes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("invalid profile type %q", name)
	}
	return pt, nil
}
