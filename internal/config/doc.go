// Package config loads, normalizes, and validates scribe's TOML configuration.
//
// Load starts from Default, decodes the first config file found (explicit
// path, ~/.config/scribe/config.toml, then ./scribe.toml), merges an
// optional .env file through godotenv, applies environment fallbacks, and
// finally runs Validate. Path fields are always absolute after Load.
package config
