// Package app wires the client together: it builds the logger, the backend
// client, the connection manager and the session from a config.Model, and
// owns the lifecycle of the optional status server. It is decoupled from any
// specific entrypoint like the CLI.
package app
