/*
Package config provides type-safe extraction of engine settings from
map[string]any.

config wraps a map[string]any and provides typed accessor methods that
handle missing keys and type mismatches gracefully by returning default
values. The executor reads its settings through it (see the WithConfig
option): max_iterations, checkpoint_path, interrupt_before,
interrupt_after.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "max_iterations":   500,
	    "checkpoint_path":  "./threads.db",
	    "interrupt_before": []string{"review"},
	})

	limit := cfg.Int("max_iterations", 1000)        // 500
	path := cfg.String("checkpoint_path", ":memory:") // "./threads.db"
	missing := cfg.Bool("tracing", false)            // false

# Loading

FromFile auto-detects YAML and JSON by extension; FromYAML and FromJSON
parse raw bytes. All three produce the same map-backed Config.
*/
package config
