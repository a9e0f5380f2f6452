package applemusic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// requestParams collects the per-call options shared by the catalog accessors.
type requestParams struct {
	storefront string
	ids        []string
	types      []string
	limit      int
	offset     int
	extra      url.Values
}

// RequestOption customizes a single catalog call.
type RequestOption func(*requestParams)

// WithStorefront selects the storefront (two-letter country code). Defaults to "us".
func WithStorefront(sf string) RequestOption {
	return func(p *requestParams) { p.storefront = sf }
}

// WithIDs restricts a filter query to the given ids.
func WithIDs(ids ...string) RequestOption {
	return func(p *requestParams) { p.ids = append(p.ids, ids...) }
}

// WithTypes sets the resource types a search covers. Defaults to songs.
func WithTypes(types ...string) RequestOption {
	return func(p *requestParams) { p.types = append(p.types, types...) }
}

func WithLimit(n int) RequestOption {
	return func(p *requestParams) { p.limit = n }
}

func WithOffset(n int) RequestOption {
	return func(p *requestParams) { p.offset = n }
}

// WithParam adds an arbitrary query parameter, e.g. "include" or "l".
func WithParam(key, value string) RequestOption {
	return func(p *requestParams) {
		if p.extra == nil {
			p.extra = url.Values{}
		}
		p.extra.Add(key, value)
	}
}

func newRequestParams(opts []RequestOption) requestParams {
	p := requestParams{
		storefront: DefaultStorefront,
		limit:      DefaultSearchLimit,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p requestParams) query() url.Values {
	q := url.Values{}
	for k, vs := range p.extra {
		q[k] = append([]string(nil), vs...)
	}
	return q
}

func (p requestParams) validate() error {
	if p.storefront == "" {
		return fmt.Errorf("%w: storefront must not be empty", ErrInvalidInput)
	}
	return nil
}

// catalogPath joins escaped segments under catalog/{storefront}/.
func catalogPath(storefront string, segments ...string) string {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, "catalog", url.PathEscape(storefront))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}

func requireNonEmpty(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidInput, name)
	}
	return nil
}

func requireList(name string, values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidInput, name)
	}
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s contains an empty entry", ErrInvalidInput, name)
		}
	}
	return nil
}

// GetResource fetches a single catalog resource:
//
//	GET catalog/{storefront}/{resourceType}/{id}
func (c *Client) GetResource(ctx context.Context, id, resourceType string, opts ...RequestOption) (map[string]any, error) {
	if err := requireNonEmpty("id", id); err != nil {
		return nil, err
	}
	if err := requireNonEmpty("resource type", resourceType); err != nil {
		return nil, err
	}
	p := newRequestParams(opts)
	if err := p.validate(); err != nil {
		return nil, err
	}
	return c.Request(ctx, http.MethodGet, catalogPath(p.storefront, resourceType, id), p.query(), nil)
}

// GetResourceRelationship fetches a named relationship of a resource:
//
//	GET catalog/{storefront}/{resourceType}/{id}/{relationship}
func (c *Client) GetResourceRelationship(ctx context.Context, id, resourceType, relationship string, opts ...RequestOption) (map[string]any, error) {
	if err := requireNonEmpty("id", id); err != nil {
		return nil, err
	}
	if err := requireNonEmpty("resource type", resourceType); err != nil {
		return nil, err
	}
	if err := requireNonEmpty("relationship", relationship); err != nil {
		return nil, err
	}
	p := newRequestParams(opts)
	if err := p.validate(); err != nil {
		return nil, err
	}
	return c.Request(ctx, http.MethodGet, catalogPath(p.storefront, resourceType, id, relationship), p.query(), nil)
}

// GetMultipleResources fetches several resources of one type by id:
//
//	GET catalog/{storefront}/{resourceType}?ids=a,b
func (c *Client) GetMultipleResources(ctx context.Context, ids []string, resourceType string, opts ...RequestOption) (map[string]any, error) {
	if err := requireList("ids", ids); err != nil {
		return nil, err
	}
	if err := requireNonEmpty("resource type", resourceType); err != nil {
		return nil, err
	}
	p := newRequestParams(opts)
	if err := p.validate(); err != nil {
		return nil, err
	}
	q := p.query()
	q.Set("ids", strings.Join(ids, ","))
	return c.Request(ctx, http.MethodGet, catalogPath(p.storefront, resourceType), q, nil)
}

// GetResourceByFilter fetches resources matching a filter such as isrc:
//
//	GET catalog/{storefront}/{resourceType}?filter[{filterType}]=a,b
//
// Ids passed through [WithIDs] are sent as an additional ids parameter.
func (c *Client) GetResourceByFilter(ctx context.Context, filterType string, filterList []string, resourceType string, opts ...RequestOption) (map[string]any, error) {
	if err := requireNonEmpty("filter type", filterType); err != nil {
		return nil, err
	}
	if err := requireList("filter list", filterList); err != nil {
		return nil, err
	}
	if err := requireNonEmpty("resource type", resourceType); err != nil {
		return nil, err
	}
	p := newRequestParams(opts)
	if err := p.validate(); err != nil {
		return nil, err
	}
	q := p.query()
	q.Set("filter["+filterType+"]", strings.Join(filterList, ","))
	if len(p.ids) > 0 {
		q.Set("ids", strings.Join(p.ids, ","))
	}
	return c.Request(ctx, http.MethodGet, catalogPath(p.storefront, resourceType), q, nil)
}

// Search runs a catalog search and returns the typed response:
//
//	GET catalog/{storefront}/search?term=&types=&limit=&offset=
//
// Types default to songs, limit to 5 and offset to 0.
func (c *Client) Search(ctx context.Context, term string, opts ...RequestOption) (*SearchResponse, error) {
	if err := requireNonEmpty("term", term); err != nil {
		return nil, err
	}
	p := newRequestParams(opts)
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(p.types) == 0 {
		p.types = []string{"songs"}
	}
	if err := requireList("types", p.types); err != nil {
		return nil, err
	}
	if p.limit < 1 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}
	if p.offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidInput)
	}

	q := p.query()
	q.Set("term", term)
	q.Set("types", strings.Join(p.types, ","))
	q.Set("limit", strconv.Itoa(p.limit))
	q.Set("offset", strconv.Itoa(p.offset))

	var resp SearchResponse
	if err := c.Do(ctx, http.MethodGet, catalogPath(p.storefront, "search"), q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: search response has no results", ErrMalformedResponse)
	}
	return &resp, nil
}
