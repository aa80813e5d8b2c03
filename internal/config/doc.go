// Package config loads, normalizes, and validates polyvox configuration.
//
// Configuration is TOML with a sample file embedded for `polyvox config
// init`. Load applies defaults, expands ~ in path fields, and validates the
// result so downstream components can trust every field without re-checking.
package config
