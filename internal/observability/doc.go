// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability provides structured logging and Prometheus metrics
// for ranking runs.
//
// Loggers are zerolog loggers built from types.LoggingConfig:
//
//	logger := observability.NewLogger(cfg.Logging)
//	logger.Info().Str("run_id", id).Msg("ranking started")
//
// Metrics live in a private registry so a run can be dumped to a
// node-exporter textfile without touching the global default registry:
//
//	m := observability.NewMetrics()
//	m.ObserveStage("similarity", d)
//	m.WriteTextfile("/var/lib/node_exporter/paper_ranker.prom")
package observability
