package predictive

import (
	"time"

	"github.com/agilira/argus"
	goerrors "github.com/agilira/go-errors"
)

// ErrCodeInvalidHotTuning — missing config path at watcher construction.
const ErrCodeInvalidHotTuning goerrors.ErrorCode = "PREDCACHE_INVALID_HOT_TUNING"

// HotTuning watches a configuration file with Argus and applies prefetch
// tuning changes to a running predictive cache. Only the runtime knobs in
// Tuning are reloadable; capacity, shard count, and sketch dimensions
// require reconstruction.
//
// Example configuration file (YAML; JSON/TOML work too):
//
//	prefetch:
//	  enabled: true
//	  topk: 2
//	  min_count: 4
//	  min_prob: 0.2
type HotTuning[K comparable, V any] struct {
	cache   *Cache[K, V]
	watcher *argus.Watcher

	// OnReload, when set, is called after each applied change.
	// It must be fast and non-blocking.
	OnReload func(old, new Tuning)
}

// HotTuningOptions configures the watcher.
type HotTuningOptions struct {
	// ConfigPath is the file to watch. Required.
	ConfigPath string

	// PollInterval is how often to check for changes.
	// Default: 1s. Minimum: 100ms.
	PollInterval time.Duration

	// OnReload is called after tuning is successfully applied.
	OnReload func(old, new Tuning)
}

// NewHotTuning creates a watcher bound to c. Call Start to begin watching
// and Stop (or c.Close plus Stop) to end it.
func NewHotTuning[K comparable, V any](c *Cache[K, V], opts HotTuningOptions) (*HotTuning[K, V], error) {
	if opts.ConfigPath == "" {
		return nil, goerrors.NewWithField(ErrCodeInvalidHotTuning,
			"predictive: ConfigPath is required", "config_path", opts.ConfigPath)
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	ht := &HotTuning[K, V]{cache: c, OnReload: opts.OnReload}

	watcher, err := argus.UniversalConfigWatcherWithConfig(
		opts.ConfigPath,
		ht.handleConfigChange,
		argus.Config{PollInterval: opts.PollInterval},
	)
	if err != nil {
		return nil, err
	}
	ht.watcher = watcher
	return ht, nil
}

// Start begins watching the configuration file. Idempotent.
func (ht *HotTuning[K, V]) Start() error {
	if ht.watcher.IsRunning() {
		return nil
	}
	return ht.watcher.Start()
}

// Stop stops watching the configuration file.
func (ht *HotTuning[K, V]) Stop() error {
	return ht.watcher.Stop()
}

// handleConfigChange is called by Argus when the file changes.
func (ht *HotTuning[K, V]) handleConfigChange(data map[string]interface{}) {
	old := ht.cache.Tuning()
	next := applyTuning(old, data)
	if next == old {
		return
	}
	ht.cache.SetTuning(next)
	if ht.OnReload != nil {
		ht.OnReload(old, next)
	}
}

// applyTuning overlays recognized keys from the config data onto base.
// Unknown or malformed keys are ignored; absent keys keep their current
// values, so partial files are fine.
func applyTuning(base Tuning, data map[string]interface{}) Tuning {
	section, ok := data["prefetch"].(map[string]interface{})
	if !ok {
		// Accept a flat file that IS the prefetch section.
		if _, flat := data["topk"]; !flat {
			if _, flat = data["enabled"]; !flat {
				return base
			}
		}
		section = data
	}

	if b, ok := section["enabled"].(bool); ok {
		base.EnablePrefetch = b
	}
	if n, ok := parseNonNegativeInt(section["topk"]); ok {
		base.PrefetchTopK = n
	}
	if n, ok := parseNonNegativeInt(section["min_count"]); ok {
		base.MinTransCount = uint32(n)
	}
	if f, ok := parseUnitFloat(section["min_prob"]); ok {
		base.MinTransProb = f
	}
	return base
}

// parseNonNegativeInt extracts a non-negative integer.
// YAML/JSON decoders may deliver either int or float64.
func parseNonNegativeInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v >= 0 {
			return v, true
		}
	case float64:
		if v >= 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseUnitFloat extracts a float in [0, 1].
func parseUnitFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if v >= 0 && v <= 1 {
			return v, true
		}
	case int:
		if v == 0 || v == 1 {
			return float64(v), true
		}
	}
	return 0, false
}
