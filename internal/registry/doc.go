// Package registry keeps the ordered list of game servers players can be sent to.
//
// Entries seeded at startup are defaults: they stay first, are never removed,
// and the first of them is the fallback for host resolution. Every mutation
// is flushed to the configured repository before the call returns; a failed
// flush is logged and the in-memory change stands.
package registry
