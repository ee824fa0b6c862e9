// Package selector decides which MISP events or blocklist entries a purge
// run targets.
//
// The candidate path queries the event index for published events in a
// date window and drops anything owned by a denied organization or pinned
// by a feed. The blocklist path walks the event blocklist and deletes the
// entries created inside the window one by one.
package selector
