// Package sync implements the bidirectional reconciliation engine between
// the local note store and the remote notes service.
//
// One pass consists of two phases, always in this order:
//
//   - push: every locally dirty note (edited or deleted) is uploaded, one
//     note at a time. A note's failure never prevents the remaining notes
//     from being attempted.
//   - pull: one incremental listing is fetched using the account's ETag and
//     last-modified watermark, merged into the store, and the watermark is
//     advanced only when the whole listing was processed successfully.
//
// The editing surface runs concurrently with a pass and may mutate note
// rows at any time. The engine never locks a note across a network call;
// instead every merge back into the store is a single conditional write
// that only applies while the row still matches the snapshot that was
// pushed. A row re-dirtied during the round trip keeps its newer local
// state and is picked up by the next pass.
//
// Passes for one account must be serialized; the Coordinator owns that,
// along with completion callbacks and coalescing of sync requests that
// arrive while a pass is in flight. Passes for different accounts are
// independent and may run in parallel.
package sync
