// Package checksum fingerprints fetched exports so that runs over identical
// input can be recognized in logs and summaries.
package checksum
