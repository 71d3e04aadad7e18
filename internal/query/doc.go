// Package query answers filtered historical reads over the segment log.
//
// Queries run newest-first and stop as soon as the requested limit is
// reached, so a query over recent activity never touches old segments.
// Results are cached under a canonical filter signature with a TTL and a
// fixed-capacity LRU policy (move-to-front on access, evict-tail on
// overflow). Within the TTL a cached result may lag fresh writes; that
// staleness window is the documented contract, and the cache is invalidated
// wholesale on every rotation.
//
// Filters compose by-field matching (kind, entity, time range, substring)
// with an optional CEL expression evaluated per record.
package query
