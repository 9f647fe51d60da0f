// Package snapshot saves and restores the values of a server.Registry.
//
// A snapshot is a JSON document mapping value names to values. Capture reads
// every registered value; Restore writes back only writable cells, so groups
// and other derived values follow from their members. Snapshots are kept in a
// Store: DiskStore for a local directory, S3Store for an S3 bucket.
package snapshot
