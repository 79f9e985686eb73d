// Package driven defines the interfaces the core depends on: the harvest
// client talking to the external video system, the durable stores, and the
// search index. Adapters implement these.
package driven
