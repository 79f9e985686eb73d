package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSegment_Valid(t *testing.T) {
	valid := []string{
		"talks",
		"lectures-2024",
		"ab",
		"Informatik",
		"wissenschaftliches_arbeiten",
	}
	for _, seg := range valid {
		assert.NoError(t, ValidateSegment(seg), "segment %q", seg)
	}
}

func TestValidateSegment_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		segment string
	}{
		{"empty", ""},
		{"single char", "a"},
		{"space", "my talks"},
		{"tab", "my\ttalks"},
		{"newline", "ab\n"},
		{"control char", "ab\x01"},
		{"slash", "a/b"},
		{"question mark", "ab?"},
		{"hash", "ab#"},
		{"percent", "ab%"},
		{"angle bracket", "<ab"},
		{"backslash", "a\\b"},
		{"leading dash", "-ab"},
		{"leading tilde", "~ab"},
		{"leading at", "@ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSegment(tt.segment)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestValidateSegment_InnerReservedStartCharAllowed(t *testing.T) {
	// Reserved start characters are fine in the middle of a segment.
	assert.NoError(t, ValidateSegment("a-b"))
	assert.NoError(t, ValidateSegment("a_b"))
	assert.NoError(t, ValidateSegment("a.b"))
}

func TestValidateRealmName(t *testing.T) {
	assert.NoError(t, ValidateRealmName("Lectures"))
	assert.ErrorIs(t, ValidateRealmName(""), ErrValidation)
	assert.ErrorIs(t, ValidateRealmName("   "), ErrValidation)
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "/talks", JoinPath("", "talks"))
	assert.Equal(t, "/talks/2024", JoinPath("/talks", "2024"))
}

func TestSortChildren_Alphabetic(t *testing.T) {
	children := []Realm{
		{ID: 1, Name: "banana"},
		{ID: 2, Name: "Apple"},
		{ID: 3, Name: "cherry"},
	}

	SortChildren(children, OrderAlphabeticAsc)
	require.Len(t, children, 3)
	assert.Equal(t, "Apple", children[0].Name)
	assert.Equal(t, "banana", children[1].Name)
	assert.Equal(t, "cherry", children[2].Name)

	SortChildren(children, OrderAlphabeticDesc)
	assert.Equal(t, "cherry", children[0].Name)
	assert.Equal(t, "Apple", children[2].Name)
}

func TestSortChildren_Manual(t *testing.T) {
	children := []Realm{
		{ID: 1, Name: "a", Index: 2},
		{ID: 2, Name: "b", Index: 0},
		{ID: 3, Name: "c", Index: 1},
	}

	SortChildren(children, OrderManual)
	assert.Equal(t, int64(2), children[0].ID)
	assert.Equal(t, int64(3), children[1].ID)
	assert.Equal(t, int64(1), children[2].ID)
}

func TestValidOrderMode(t *testing.T) {
	assert.True(t, ValidOrderMode(OrderManual))
	assert.True(t, ValidOrderMode(OrderAlphabeticAsc))
	assert.True(t, ValidOrderMode(OrderAlphabeticDesc))
	assert.False(t, ValidOrderMode("random"))
}

func TestRealmIsRoot(t *testing.T) {
	root := Realm{ID: RootRealmID}
	assert.True(t, root.IsRoot())

	parent := RootRealmID
	child := Realm{ID: 1, ParentID: &parent}
	assert.False(t, child.IsRoot())
}
