// Package internal contains helper utilities that are intentionally private to
// authcore: secure random generation for opaque tokens and referral codes, and
// the digest scheme shared by the token issuer and the verification flows.
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal
