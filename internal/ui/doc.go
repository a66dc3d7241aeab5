// Package ui renders console tables: the record preview shown before
// loading, the column mapping, and the end-of-run summary.
package ui
