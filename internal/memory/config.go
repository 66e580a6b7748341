package memory

import (
	"fmt"
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"photoref/internal/logging"
)

// DefaultMemoryRatio is the share of the memory cap given to the Go heap.
// The remainder covers libvips buffers and goroutine stacks.
const DefaultMemoryRatio = 0.85

// Environment variables read by ConfigureFromEnv.
const (
	EnvMemoryLimit = "PHOTOREF_MEMORY_LIMIT"
	EnvMemoryRatio = "PHOTOREF_MEMORY_RATIO"
)

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether a soft limit is in effect
	Configured bool

	// Source is "GOMEMLIMIT", EnvMemoryLimit or "none"
	Source string

	// Limit is the memory cap in bytes (0 if not set)
	Limit int64

	// GoMemLimit is the configured soft limit in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the ratio used (0 if not applicable)
	Ratio float64
}

// ConfigureFromEnv sets the runtime soft memory limit from the environment.
func ConfigureFromEnv() ConfigResult {
	result := ConfigResult{Source: "none"}

	if goMemLimitEnv := os.Getenv("GOMEMLIMIT"); goMemLimitEnv != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = "GOMEMLIMIT"
			result.GoMemLimit = limit
		}
		logging.Debug("GOMEMLIMIT set via environment: %s", goMemLimitEnv)
		return result
	}

	memLimitStr := strings.TrimSpace(os.Getenv(EnvMemoryLimit))
	if memLimitStr == "" {
		return result
	}

	memLimit, err := ParseSize(memLimitStr)
	if err != nil || memLimit <= 0 {
		logging.Warn("Ignoring %s %q: not a positive size", EnvMemoryLimit, memLimitStr)
		return result
	}
	result.Limit = memLimit

	ratio := DefaultMemoryRatio
	if ratioStr := os.Getenv(EnvMemoryRatio); ratioStr != "" {
		parsed, err := strconv.ParseFloat(ratioStr, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse %s %q: %v, using default %.2f", EnvMemoryRatio, ratioStr, err, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1.0:
			logging.Warn("%s %q out of range (0.0-1.0), using default %.2f", EnvMemoryRatio, ratioStr, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}
	result.Ratio = ratio

	goMemLimit := int64(float64(memLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	result.Configured = true
	result.Source = EnvMemoryLimit
	result.GoMemLimit = goMemLimit

	logging.Debug("Configured soft memory limit: %s (%.1f%% of %s)",
		FormatBytes(goMemLimit),
		ratio*100,
		FormatBytes(memLimit),
	)

	return result
}

var sizeUnits = map[string]int64{
	"":    1,
	"b":   1,
	"k":   1 << 10,
	"kb":  1000,
	"kib": 1 << 10,
	"m":   1 << 20,
	"mb":  1000 * 1000,
	"mib": 1 << 20,
	"g":   1 << 30,
	"gb":  1000 * 1000 * 1000,
	"gib": 1 << 30,
}

// ParseSize parses a byte count with an optional unit suffix: "1073741824",
// "512MiB", "2G", "1.5GB". Single-letter units are binary.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if i < 0 {
		i = len(s)
	}
	number, unit := s[:i], strings.ToLower(strings.TrimSpace(s[i:]))

	multiplier, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q", unit)
	}
	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	size := value * float64(multiplier)
	if size > math.MaxInt64 {
		return 0, fmt.Errorf("size %q out of range", s)
	}
	return int64(size), nil
}

// FormatBytes formats bytes into a human-readable string ("1.5 MiB").
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
