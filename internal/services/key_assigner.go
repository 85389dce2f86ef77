package services

import "strings"

// DefaultKeyPrefix is the historical document-key prefix. Changing the
// prefix on a populated store orphans every existing record.
const DefaultKeyPrefix = "member_"

// KeyAssigner derives the stable external key used as the upsert target in
// the document store. The key is a pure function of the membership number
// and nothing else: same number in, same key out, on any machine at any
// time. This is the idempotency anchor of the whole import engine: a
// re-run upserts instead of inserting duplicates.
type KeyAssigner struct {
	prefix string
}

// NewKeyAssigner creates a key assigner with the given prefix. An empty
// prefix falls back to the default.
func NewKeyAssigner(prefix string) *KeyAssigner {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &KeyAssigner{prefix: prefix}
}

// KeyFor returns the external key for a membership number. Surrounding
// whitespace on the number is not significant in the roster export and is
// trimmed; nothing else about the number is touched.
func (k *KeyAssigner) KeyFor(membershipNumber string) string {
	return k.prefix + strings.TrimSpace(membershipNumber)
}
