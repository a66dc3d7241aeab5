// Package logging provides concrete implementations of the koboload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes progress lines to stderr (or any io.Writer)
//   - NullLogger: Discards all messages (useful for testing)
package logging
