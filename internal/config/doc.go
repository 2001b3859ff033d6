// Package config defines the settings used by the Safe-Walk binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Validate fills every unset timing and threshold with its default, so a
// file holding only server_addr is a complete configuration.
package config
