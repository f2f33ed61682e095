// Package osc is the typed view of OSC 1.0 messages exchanged with the
// avatar host. Byte-level encoding and parsing are delegated to
// github.com/hypebeast/go-osc; this package narrows arguments to the tags
// the host uses and flattens bundles.
//
// Transport (UDP sockets) and parameter routing live elsewhere.
package osc
