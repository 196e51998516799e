// Package app wires the application together: configuration, logging,
// analysis definitions, interface registry, data repository, processor,
// provenance, telemetry and the health check server. It is decoupled from
// any entrypoint; internal/cli maps commands and flags onto it.
package app
