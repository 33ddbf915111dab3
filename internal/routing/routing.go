// Package routing resolves original recipients to forward destinations.
package routing

import "strings"

// Table maps recipient local-parts to destination addresses. Keys are
// case-sensitive and carry no domain.
type Table struct {
	rules map[string]string
}

// NewTable copies rules into a new Table. The caller's map may be modified
// afterwards without affecting the table.
func NewTable(rules map[string]string) Table {
	copied := make(map[string]string, len(rules))
	for k, v := range rules {
		copied[k] = v
	}
	return Table{rules: copied}
}

// Resolve returns the destination configured for recipient. The lookup key
// is LocalPart(recipient). A key mapped to an empty address is a miss.
func (t Table) Resolve(recipient string) (string, bool) {
	dest, ok := t.rules[LocalPart(recipient)]
	if !ok || dest == "" {
		return "", false
	}
	return dest, true
}

// Len returns the number of configured rules.
func (t Table) Len() int {
	return len(t.rules)
}

// LocalPart returns the substring of addr before the first "@". An address
// without "@" is returned whole. No address validation is performed.
func LocalPart(addr string) string {
	if i := strings.IndexByte(addr, '@'); i >= 0 {
		return addr[:i]
	}
	return addr
}
