// Package observability provides a lifecycle metrics extension built on
// go-utils counters. It counts job throughput and the outcomes of the
// free-retry decision: granted, exhausted and callback failures.
//
// For per-execution tracing and histograms see middleware.Tracing and
// middleware.Metrics.
package observability
