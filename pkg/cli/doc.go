// Package cli implements the mocknet command line: validating, listing and
// serving mock files, and encoding or decoding chunked framing.
package cli
