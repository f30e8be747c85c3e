// Package config loads, normalizes, and validates ionbatch configuration.
//
// Values come from TOML (explicit --config path, ~/.config/ionbatch/config.toml,
// or ./ionbatch.toml) layered over repository defaults. normalize expands
// paths and applies environment fallbacks such as IONBATCH_ENGINE; Validate
// rejects values the pipeline cannot run with. Command line flags are applied
// on top of a loaded Config and re-validated by the caller.
package config
