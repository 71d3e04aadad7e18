// Package integrity provides tamper evidence for audit records: HMAC-SHA256
// signatures over a record's canonical serialization, and the KeyProvider
// boundary through which key material is obtained by name at startup. Key
// bytes are opaque to the engine; the file-backed provider exists so a
// standalone deployment works without an external secret store.
package integrity
