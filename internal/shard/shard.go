// Package shard models the abstract notion of a contiguous snapshot range
// owned by one process: the core never speaks MPI, it only tags evidence
// and edge lists with an opaque owner so distributed callers can filter
// correctly.
package shard

// Tag identifies the shard that produced or owns a piece of data. The zero
// value, Tag(0), is the default/only shard in a non-distributed run.
type Tag int

// Local reports whether tag is owned by the shard identified by self. In a
// non-sharded run every tag is local.
func (tag Tag) Local(self Tag) bool {
	return tag == self
}

// Reducer performs a global sum-reduction of a single local value across all
// shards, returning the sum observed by every shard (an MPI Allreduce in the
// distributed case; the identity function for a single-shard run). The core
// never performs this reduction itself; it is supplied by the caller so the
// core stays agnostic to the distribution mechanism.
type Reducer func(local int64) (total int64)

// LocalReducer is the Reducer for a non-distributed run: the global total is
// just the local value.
func LocalReducer(local int64) int64 { return local }
