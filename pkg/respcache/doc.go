// Package respcache memoizes tool and agent responses under hard memory bounds.
//
// Invariants:
// - The entry count never exceeds MaxEntries; the least-recently-used
//   entry is evicted to make room.
// - Keys and values are truncated to fixed bounds before storage; reads
//   may return truncated values and truncated keys can collide.
// - Expiry is lazy on access; Cleanup sweeps eagerly on demand.
//
// Usage:
//
//	c := respcache.New(respcache.Config{})
//	evicted, ok := c.Set("market_summary:94110", response)
//	value, hit := c.Get("market_summary:94110")
package respcache
