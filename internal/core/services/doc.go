// Package services contains the core application services: the sync
// daemon orchestrating harvest, mirror and index, the indexer draining the
// durable change queue, the realm editor enforcing tree invariants, and
// the read-side query service.
package services
