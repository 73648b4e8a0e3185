// Package config holds the immutable run configuration: defaults, CLI
// target parsing, and the optional YAML file carrying per-host headers
// and forum/topic passwords. The Config value is built once at startup
// and passed read-only to every component.
package config
