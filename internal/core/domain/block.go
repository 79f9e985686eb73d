package domain

import "fmt"

// BlockType tags the content block variants. The set is closed: dispatch
// happens by switching on the tag, and every switch handles all four.
type BlockType string

const (
	// BlockTitle renders a heading.
	BlockTitle BlockType = "title"
	// BlockText renders a paragraph of text.
	BlockText BlockType = "text"
	// BlockSeries embeds a mirrored series by reference.
	BlockSeries BlockType = "series"
	// BlockVideo embeds a single mirrored event by reference.
	BlockVideo BlockType = "video"
)

// ValidBlockType reports whether t is a known block type.
func ValidBlockType(t BlockType) bool {
	switch t {
	case BlockTitle, BlockText, BlockSeries, BlockVideo:
		return true
	}
	return false
}

// Block is one unit of content placed on a realm. Blocks are ordered by a
// dense, zero-based position unique within the realm.
type Block struct {
	// ID is the stable numeric key of the block.
	ID int64

	// RealmID is the owning realm.
	RealmID int64

	// Position is the zero-based index within the realm's block list.
	Position int

	// Type selects the variant.
	Type BlockType

	// Content holds the heading text for title blocks and the body for
	// text blocks. Unused for reference blocks.
	Content string

	// SeriesID references a mirrored series for series blocks. Nil for
	// the other variants. The reference is kept even after the series
	// is tombstoned so the block can render a placeholder.
	SeriesID *string

	// EventID references a mirrored event for video blocks.
	EventID *string

	// ShowTitle controls whether reference blocks render the title of
	// the referenced entity.
	ShowTitle bool

	// ShowMetadata controls whether video blocks render event metadata.
	ShowMetadata bool
}

// Validate checks the variant-specific rules of a block.
func (b *Block) Validate() error {
	switch b.Type {
	case BlockTitle, BlockText:
		if b.Content == "" {
			return fmt.Errorf("%w: %s block requires content", ErrValidation, b.Type)
		}
		if b.SeriesID != nil || b.EventID != nil {
			return fmt.Errorf("%w: %s block must not carry a reference", ErrValidation, b.Type)
		}
	case BlockSeries:
		if b.SeriesID == nil {
			return fmt.Errorf("%w: series block requires a series reference", ErrValidation)
		}
		if b.EventID != nil {
			return fmt.Errorf("%w: series block must not reference an event", ErrValidation)
		}
	case BlockVideo:
		if b.EventID == nil {
			return fmt.Errorf("%w: video block requires an event reference", ErrValidation)
		}
		if b.SeriesID != nil {
			return fmt.Errorf("%w: video block must not reference a series", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown block type %q", ErrValidation, b.Type)
	}
	return nil
}

// ResolvedBlock is a block together with its resolved reference, as handed
// to the query surface. A tombstoned reference is reported via Deleted so
// the caller can render a placeholder instead of live data.
type ResolvedBlock struct {
	Block Block

	// Series is the live referenced series, nil for non-series blocks
	// and for tombstoned references.
	Series *Series

	// Event is the live referenced event, nil for non-video blocks and
	// for tombstoned references.
	Event *Event

	// Deleted is true when the referenced entity exists only as a
	// tombstone.
	Deleted bool
}
