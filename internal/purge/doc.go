// Package purge implements the batch purge controller.
//
// A candidate list is split into fixed-size chunks and each chunk is sent to
// MISP as a single bulk delete. Chunks are processed strictly in order, one
// request at a time. Between chunks the controller paces itself: a long
// pause after a failed chunk so the backing database can recover, a shorter
// pause after every run of successful chunks, and an abort once failures
// keep coming back to back.
//
// A chunk whose request got any HTTP response counts as fully deleted; only
// a transport-level failure counts the whole chunk as failed. The response
// body is not inspected for per-event outcomes. Options.CountRejected
// switches to strict accounting, where an HTTP error status fails the chunk.
package purge
