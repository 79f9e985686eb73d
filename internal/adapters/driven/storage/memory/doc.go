// Package memory provides in-memory implementations of the driven storage
// ports. They back the service tests and small single-process setups; the
// sqlite package provides the durable implementations.
package memory
