// Package stats produces rollups over the whole log under a hard memory
// ceiling. Segments are streamed oldest-first one at a time; counters update
// incrementally, and distinct entity tracking uses a capped set. Once the cap
// is reached the distinct count becomes a lower-bound approximation, flagged
// on the snapshot, while totals stay exact.
package stats
