package proxy

import "strings"

// IOUPrefix marks a proxy-granting-ticket field that holds an opaque
// receipt to be exchanged against storage rather than ciphertext.
const IOUPrefix = "PGTIOU-"

type ReferenceKind string

const (
	ReferenceNone      ReferenceKind = "none"
	ReferenceIOU       ReferenceKind = "iou"
	ReferenceEncrypted ReferenceKind = "encrypted"
)

// Reference is the tagged form of the raw proxyGrantingTicket field. The
// kind is decided once, here, by the literal prefix check; resolution
// strategies never re-inspect the raw string.
type Reference struct {
	Kind  ReferenceKind
	Value string
}

func ParseReference(field string) Reference {
	if field == "" {
		return Reference{Kind: ReferenceNone}
	}
	if strings.HasPrefix(field, IOUPrefix) {
		return Reference{Kind: ReferenceIOU, Value: field}
	}
	return Reference{Kind: ReferenceEncrypted, Value: field}
}
