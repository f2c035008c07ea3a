// Package telemetry wires OpenTelemetry exporters and instruments and the
// Prometheus registry for the RDAP server.
//
// It centralises trace provider setup, records redaction outcomes as OTel
// counters and span events, and exposes HTTP, policy reload, rate limit and
// cache metrics on a private Prometheus registry served by the admin router.
package telemetry
