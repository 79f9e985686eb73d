package domain

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// RootRealmID is the key of the single root realm. The root is created by
// migration, is never deleted, and cannot be renamed or reparented.
const RootRealmID int64 = 0

// OrderMode controls how a realm's children are ordered.
type OrderMode string

const (
	// OrderAlphabeticAsc sorts children by name, A to Z.
	OrderAlphabeticAsc OrderMode = "alphabetic_asc"
	// OrderAlphabeticDesc sorts children by name, Z to A.
	OrderAlphabeticDesc OrderMode = "alphabetic_desc"
	// OrderManual uses the explicit child index. New children are
	// appended at the end.
	OrderManual OrderMode = "manual"
)

// ValidOrderMode reports whether m is a known order mode.
func ValidOrderMode(m OrderMode) bool {
	switch m {
	case OrderAlphabeticAsc, OrderAlphabeticDesc, OrderManual:
		return true
	}
	return false
}

// Realm is a node in the page tree. The tree is strict: acyclic, connected
// to the single root, and every non-root realm has exactly one parent.
type Realm struct {
	// ID is the stable numeric key of the realm.
	ID int64

	// ParentID is the key of the parent realm, nil only for the root.
	ParentID *int64

	// Name is the human-readable display name.
	Name string

	// PathSegment is this realm's segment, unique among siblings. Empty
	// only for the root.
	PathSegment string

	// Path is the materialized full path: the parent's path, "/", and
	// this realm's segment. Empty for the root.
	Path string

	// ChildOrder controls how children of this realm are sorted.
	ChildOrder OrderMode

	// Index is this realm's position among its siblings in manual order.
	Index int
}

// IsRoot reports whether the realm is the tree root.
func (r *Realm) IsRoot() bool {
	return r.ParentID == nil
}

// JoinPath builds the materialized path of a child below parentPath.
func JoinPath(parentPath, segment string) string {
	return parentPath + "/" + segment
}

// reservedSegmentChars can never appear in a path segment. They either
// have meaning in URLs or are disallowed in URL paths outright.
const reservedSegmentChars = "<>\"[\\]^`{|}#%/?"

// reservedSegmentStarts are disallowed as the first character of a segment
// to keep room for future syntax (e.g. "@user" or "-flags" style paths).
const reservedSegmentStarts = "-+~@_!$&;:.,=*'()"

// ValidateSegment checks a path segment against the format rules. The
// returned error wraps ErrValidation and names the violated rule.
func ValidateSegment(segment string) error {
	if len(segment) < 2 {
		return fmt.Errorf("%w: path segment must be at least two characters", ErrValidation)
	}
	for _, r := range segment {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: path segment must not contain whitespace or control characters", ErrValidation)
		}
		if strings.ContainsRune(reservedSegmentChars, r) {
			return fmt.Errorf("%w: path segment must not contain %q", ErrValidation, r)
		}
	}
	if strings.ContainsRune(reservedSegmentStarts, rune(segment[0])) {
		return fmt.Errorf("%w: path segment must not start with %q", ErrValidation, segment[0])
	}
	return nil
}

// ValidateRealmName checks a realm display name.
func ValidateRealmName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: realm name must not be empty", ErrValidation)
	}
	return nil
}

// SortChildren orders realms according to the parent's order mode. The
// slice is sorted in place. Manual mode sorts by the stored child index;
// alphabetic modes compare names case-insensitively with the realm ID as a
// stable tie-breaker.
func SortChildren(children []Realm, mode OrderMode) {
	less := func(a, b *Realm) bool {
		switch mode {
		case OrderManual:
			if a.Index != b.Index {
				return a.Index < b.Index
			}
		case OrderAlphabeticDesc:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an > bn
			}
		default:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		}
		return a.ID < b.ID
	}
	sort.Slice(children, func(i, j int) bool {
		return less(&children[i], &children[j])
	})
}
