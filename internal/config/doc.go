// Package config defines the format-agnostic configuration model of the
// client, along with the Loader interface implemented by the format-specific
// packages (hclconfig, tomlconfig).
//
// A Model always starts from Default. Loaders and the environment overlay
// only replace the values they actually find, so every source is optional.
package config
