package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/ports/driven"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPreferredAmount is how many change items one fetch asks for.
	// The source treats it as a hint and may return more or fewer.
	DefaultPreferredAmount = 500

	// DefaultRequestsPerSecond bounds how hard the client polls a source
	// that keeps reporting backlog.
	DefaultRequestsPerSecond = 2
)

// Ensure Client implements the interface.
var _ driven.HarvestClient = (*Client)(nil)

// Options configures the harvest client.
type Options struct {
	// BaseURL is the root of the external system's API, without the
	// /harvest suffix.
	BaseURL string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// PreferredAmount is the requested page size.
	PreferredAmount int

	// RequestsPerSecond throttles consecutive fetches.
	RequestsPerSecond float64

	// HTTPClient overrides the HTTP client, mainly for tests.
	HTTPClient *http.Client
}

// Client fetches harvest pages over HTTP. Failures are classified into
// transient errors (network, 5xx, throttling) that the sync daemon
// retries, and protocol errors (malformed payloads, unknown kinds) that
// halt the source.
type Client struct {
	baseURL         string
	preferredAmount int
	http            *http.Client
	limiter         *rate.Limiter
}

// NewClient creates a harvest client for the given source.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid harvest base URL %q", domain.ErrValidation, opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	amount := opts.PreferredAmount
	if amount <= 0 {
		amount = DefaultPreferredAmount
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:         base.String(),
		preferredAmount: amount,
		http:            client,
		limiter:         rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// Fetch requests the next page of changes after cursor. The empty cursor
// asks for the feed from the beginning.
func (c *Client) Fetch(ctx context.Context, cursor string) (*domain.HarvestBatch, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if cursor == "" {
		cursor = "0"
	}
	endpoint := fmt.Sprintf("%s/harvest?since=%s&preferredAmount=%d",
		c.baseURL, url.QueryEscape(cursor), c.preferredAmount)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrProtocol, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransientHarvest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decoding.
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, fmt.Errorf("%w: source returned %s", domain.ErrTransientHarvest, resp.Status)
	default:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, fmt.Errorf("%w: source returned %s", domain.ErrProtocol, resp.Status)
	}

	var page harvestPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decode harvest response: %v", domain.ErrProtocol, err)
	}
	return page.toBatch()
}

// harvestPage is the wire format of one /harvest response.
type harvestPage struct {
	Items []harvestItem `json:"items"`

	// IncludesItemsUntil is the revision marker up to which this page is
	// complete. It becomes the next cursor.
	IncludesItemsUntil int64 `json:"includesItemsUntil"`

	HasMore bool `json:"hasMore"`
}

// harvestItem is one change on the wire. Kind discriminates the payload;
// deletions carry only id and updated.
type harvestItem struct {
	Kind        string         `json:"kind"`
	ID          string         `json:"id"`
	Updated     int64          `json:"updated"`
	Created     time.Time      `json:"created"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Creator     string         `json:"creator"`
	Duration    int64          `json:"duration"`
	Thumbnail   string         `json:"thumbnail"`
	PartOf      *string        `json:"partOf"`
	Tracks      []harvestTrack `json:"tracks"`
	ACL         harvestACL     `json:"acl"`
}

type harvestACL struct {
	Read  []string `json:"read"`
	Write []string `json:"write"`
}

type harvestTrack struct {
	URI        string `json:"uri"`
	Flavor     string `json:"flavor"`
	Mimetype   string `json:"mimetype"`
	Resolution []int  `json:"resolution"`
}

func (p *harvestPage) toBatch() (*domain.HarvestBatch, error) {
	records := make([]domain.ChangeRecord, 0, len(p.Items))
	for i := range p.Items {
		record, err := p.Items[i].toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return &domain.HarvestBatch{
		Records:    records,
		NextCursor: strconv.FormatInt(p.IncludesItemsUntil, 10),
		HasMore:    p.HasMore,
	}, nil
}

func (it *harvestItem) toRecord() (domain.ChangeRecord, error) {
	if it.ID == "" {
		return domain.ChangeRecord{}, fmt.Errorf("%w: harvest item without id", domain.ErrProtocol)
	}

	switch it.Kind {
	case "series":
		return domain.ChangeRecord{
			Kind:   domain.KindSeries,
			Op:     domain.OpUpsert,
			ID:     it.ID,
			Series: it.toSeries(),
		}, nil
	case "event":
		return domain.ChangeRecord{
			Kind:  domain.KindEvent,
			Op:    domain.OpUpsert,
			ID:    it.ID,
			Event: it.toEvent(),
		}, nil
	case "series-deleted":
		return domain.ChangeRecord{Kind: domain.KindSeries, Op: domain.OpDelete, ID: it.ID}, nil
	case "event-deleted":
		return domain.ChangeRecord{Kind: domain.KindEvent, Op: domain.OpDelete, ID: it.ID}, nil
	default:
		return domain.ChangeRecord{}, fmt.Errorf("%w: unknown harvest item kind %q", domain.ErrProtocol, it.Kind)
	}
}

func (it *harvestItem) toSeries() *domain.Series {
	return &domain.Series{
		ID:          it.ID,
		Title:       it.Title,
		Description: it.Description,
		Updated:     it.Updated,
	}
}

func (it *harvestItem) toEvent() *domain.Event {
	tracks := make([]domain.Track, 0, len(it.Tracks))
	for _, t := range it.Tracks {
		tracks = append(tracks, domain.Track{
			URI:        t.URI,
			Flavor:     t.Flavor,
			Mimetype:   t.Mimetype,
			Resolution: t.Resolution,
		})
	}
	return &domain.Event{
		ID:          it.ID,
		SeriesID:    it.PartOf,
		Title:       it.Title,
		Description: it.Description,
		Creator:     it.Creator,
		Duration:    it.Duration,
		Thumbnail:   it.Thumbnail,
		Tracks:      tracks,
		Created:     it.Created,
		Updated:     it.Updated,
		ReadRoles:   it.ACL.Read,
		WriteRoles:  it.ACL.Write,
	}
}
