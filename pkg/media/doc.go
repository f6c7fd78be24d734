// Package media stores file attachments for trees and persons. Metadata
// lives in SQL; content lives in a BlobStore keyed by the media ID, with a
// filesystem implementation that shards keys into subdirectories. Service
// keeps the two consistent across uploads and deletes.
package media
