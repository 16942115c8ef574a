// Package common contains shared constants, helpers and sentinel errors used
// across GophChat components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultMessageKind is the kind tag applied to messages sent without one.
const DefaultMessageKind = "text"

// FileMessageKind tags messages whose envelope describes an encrypted attachment.
const FileMessageKind = "file"
