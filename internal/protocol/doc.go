// Package protocol owns the link wire contract.
//
// Ownership boundary:
// - schema: field types, message definitions, catalog lookups
// - codec: single field value encoding
// - message: message values and routing payload layout
// - frame: framing state machines (plain, log, radio)
// - secure: authenticated framing with replay protection
package protocol
