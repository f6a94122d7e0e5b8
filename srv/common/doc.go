// Package common provides configuration structures and utilities shared by
// the line servers, the client and the command line interface.
//
// Key Components:
//
//   - ServerConfig: transport, executor mode, worker count, timeouts and the
//     observability settings of one server. Validate rejects configurations
//     the server cannot run with, String renders a readable summary.
//
//   - ClientConfig: endpoint and timeout of the line client.
//
//   - Logger: custom logging implementation that integrates with Dragonboat's
//     logger package while providing consistent formatting across the module.
//
//   - Metrics: Prometheus counters and histograms (VictoriaMetrics) served by
//     the admin endpoint.
//
//   - Stats: rolling rates and latency percentiles (go-metrics) written to the
//     log by a periodic reporter.
package common
