// Package metrics exports the storage manager's failover counters as
// Prometheus metrics. The collector reads the manager's snapshot on each
// scrape, so in-process counters and scraped values never drift.
//
//	collector := metrics.NewStorageCollector(cfg, nil, mgr)
//	http.Handle("/metrics", collector.Handler())
//
// Note that the manager's counters can be reset with ResetMetrics; a reset
// appears to Prometheus as an ordinary counter restart.
package metrics
