// Package retention enforces the document retention window.
//
// The Purger is the single deletion path for a document: it removes the
// vectors first, then the chunk rows and metadata, so the index never
// holds vectors for a document that no longer exists. The Sweeper drives
// the Purger on a schedule, scanning the upload-time index for documents
// past the retention window.
package retention
