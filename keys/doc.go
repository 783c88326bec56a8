// Package keys holds key material for wrap strategies.
//
// A Keyring is the in-memory lookup the signing and encryption wraps
// consult. KeyStore is a local filesystem store of Ed25519 seeds with
// deterministic per-role derivation; LoadKeyring turns its contents
// into a Keyring.
package keys
