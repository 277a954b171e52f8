// Package client implements the headless vault sync client runtime.
//
// It wires the server adapter, crypto gateway, client services, and
// background workers into a single process lifecycle: authenticate, load and
// merge the vault, keep it flushed to the server, and shut down cleanly.
package client
