// Package cli provides the one-shot driftfile upload client.
//
// It wires configuration and the websocket transfer client into a single
// App.Run call: resolve the bearer token (flag or no-echo terminal prompt),
// open the file, default the metadata blob to the file name, upload, and
// print the share link plus the owner token.
//
// The client never encrypts; the -e flag only marks payloads that were
// already encrypted by an external tool so downloads require the matching
// authorization key.
//
// See App, NewApp, and Run for details.
package cli
