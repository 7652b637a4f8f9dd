// Package prometheus renders authguard metrics in Prometheus text
// exposition format without pulling in a client library. Mount
// [Exporter.Handler] on a scrape endpoint.
package prometheus
