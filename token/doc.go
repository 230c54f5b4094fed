// Package token implements the two credential formats issued after a
// successful login: signed JWT access tokens with strict validation
// semantics, and opaque refresh tokens whose secret half is persisted only
// as a digest.
package token
