package ldap

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// rawGUIDLen is the size of a binary GUID attribute value
const rawGUIDLen = 16

// NormalizeGUID converts a directory GUID attribute into an uppercase
// canonical UUID string. Multi-valued attributes use the first value.
// A 16 byte value is read as a binary UUID, anything else must be UUID
// text, optionally wrapped in braces.
func NormalizeGUID(values [][]byte) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	return normalizeGUIDValue(values[0])
}

func normalizeGUIDValue(v []byte) (string, bool) {
	if len(v) == rawGUIDLen {
		id, err := uuid.FromBytes(v)
		if err != nil {
			return "", false
		}
		return strings.ToUpper(id.String()), true
	}

	if !utf8.Valid(v) {
		return "", false
	}
	s := strings.TrimSpace(string(v))
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	if s == "" {
		return "", false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return strings.ToUpper(id.String()), true
}
