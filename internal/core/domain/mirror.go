package domain

import "time"

// Kind identifies the type of a mirrored entity.
type Kind string

const (
	// KindSeries is a series mirrored from the external system.
	KindSeries Kind = "series"
	// KindEvent is a single video event mirrored from the external system.
	KindEvent Kind = "event"
)

// Series represents a mirrored series (a collection of events).
// Series are created and updated by harvest application only; the realm
// layer references them by ID and never mutates them.
type Series struct {
	// ID is the external system's stable, globally unique identifier.
	ID string

	// Title is the human-readable series title.
	Title string

	// Description is the optional series description.
	Description string

	// Updated is the revision marker (milliseconds since epoch). An
	// incoming upsert is applied only if its revision is newer.
	Updated int64

	// Deleted marks the series as tombstoned. Tombstoned entities are
	// excluded from normal reads but remain resolvable by ID.
	Deleted bool
}

// Track describes one media track of an event.
type Track struct {
	// URI is the location of the track.
	URI string `json:"uri"`

	// Flavor is the track flavor (e.g. "presentation/preview").
	Flavor string `json:"flavor"`

	// Mimetype is the optional MIME type.
	Mimetype string `json:"mimetype,omitempty"`

	// Resolution is the optional [width, height] of a video track.
	Resolution []int `json:"resolution,omitempty"`
}

// Event represents a mirrored video event.
type Event struct {
	// ID is the external system's stable, globally unique identifier.
	ID string

	// SeriesID references the owning series, nil for standalone events.
	SeriesID *string

	// Title is the human-readable event title.
	Title string

	// Description is the optional event description.
	Description string

	// Creator is the optional name of the person who created the event.
	Creator string

	// Duration is the event duration in milliseconds, 0 if unknown.
	Duration int64

	// Thumbnail is the optional thumbnail URL.
	Thumbnail string

	// Tracks are the media tracks of the event.
	Tracks []Track

	// Created is when the event was created in the external system.
	Created time.Time

	// Updated is the revision marker (milliseconds since epoch).
	Updated int64

	// ReadRoles lists the roles allowed to see this event.
	ReadRoles []string

	// WriteRoles lists the roles allowed to modify this event.
	WriteRoles []string

	// Deleted marks the event as tombstoned.
	Deleted bool
}

// Revision returns the revision marker of a mirrored entity.
func (s *Series) Revision() int64 { return s.Updated }

// Revision returns the revision marker of a mirrored entity.
func (e *Event) Revision() int64 { return e.Updated }

// ChangeOp describes what a harvest change record does.
type ChangeOp string

const (
	// OpUpsert creates or updates a mirrored entity.
	OpUpsert ChangeOp = "upsert"
	// OpDelete tombstones a mirrored entity.
	OpDelete ChangeOp = "delete"
)

// ChangeRecord is one element of a harvest batch. Exactly one of Series or
// Event is set for upserts; deletes carry only the kind and ID.
type ChangeRecord struct {
	// Kind identifies the entity type.
	Kind Kind

	// Op is the operation.
	Op ChangeOp

	// ID is the external entity ID. Always set.
	ID string

	// Series carries the payload for series upserts.
	Series *Series

	// Event carries the payload for event upserts.
	Event *Event
}

// HarvestBatch is one page of the external change feed.
type HarvestBatch struct {
	// Records are the changes, in source revision order. Batches are
	// at-least-once: records may repeat across retried fetches, so all
	// application must be idempotent.
	Records []ChangeRecord

	// NextCursor is the opaque resumption token to fetch from next.
	NextCursor string

	// HasMore indicates the source has further changes queued; the daemon
	// continues immediately instead of waiting out the poll interval.
	HasMore bool
}

// ChangeEvent records that the mirror store applied a change, for
// propagation into the search index. Change events are durable: they
// survive restarts until the indexer confirms them.
type ChangeEvent struct {
	// Seq is the store-assigned queue sequence number.
	Seq int64

	// Kind identifies the entity type.
	Kind Kind

	// ID is the external entity ID.
	ID string

	// Deleted is true when the change tombstoned the entity and the
	// search document must be removed.
	Deleted bool
}

// SearchDocument is the denormalized view of a mirrored entity held by the
// search index. DocID is "<kind>:<id>" so series and events share one index.
type SearchDocument struct {
	DocID       string
	Kind        Kind
	Title       string
	Description string
	Creator     string
	SeriesTitle string
	ReadRoles   []string
}

// DocID builds the search document ID for an entity.
func DocID(kind Kind, id string) string {
	return string(kind) + ":" + id
}
