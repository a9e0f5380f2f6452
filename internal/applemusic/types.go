package applemusic

import (
	"encoding/json"
	"fmt"
)

// SearchResponse is the typed body of a catalog search.
//
// Results is keyed by resource type ("songs", "albums", ...). Types the catalog
// had no matches for are absent rather than empty.
type SearchResponse struct {
	Results map[string]ResultPage `json:"results"`
	Meta    map[string]any        `json:"meta,omitempty"`
}

// ResultPage is one page of results for a single resource type.
type ResultPage struct {
	Href string     `json:"href,omitempty"`
	Next string     `json:"next,omitempty"`
	Data []Resource `json:"data"`
}

// Resource is a catalog resource object. Attributes are kept raw because their
// shape depends on Type.
//
// Decoding fails with [ErrMalformedResponse] when id, type or attributes is missing.
type Resource struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Href       string          `json:"href,omitempty"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

// SongAttributes is the subset of song attributes the catalog always returns,
// plus the identifiers used to match tracks across services.
type SongAttributes struct {
	Name             string   `json:"name"`
	ArtistName       string   `json:"artistName"`
	AlbumName        string   `json:"albumName"`
	GenreNames       []string `json:"genreNames"`
	DurationInMillis int64    `json:"durationInMillis,omitempty"`
	ISRC             string   `json:"isrc,omitempty"`
	URL              string   `json:"url,omitempty"`
	Artwork          *Artwork `json:"artwork,omitempty"`
}

type Artwork struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// UnmarshalJSON requires the results mapping.
func (s *SearchResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Results *map[string]ResultPage `json:"results"`
		Meta    map[string]any         `json:"meta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Results == nil || *raw.Results == nil {
		return fmt.Errorf("%w: search response has no results", ErrMalformedResponse)
	}
	s.Results = *raw.Results
	s.Meta = raw.Meta
	return nil
}

// UnmarshalJSON requires the data array.
func (p *ResultPage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Href string      `json:"href"`
		Next string      `json:"next"`
		Data *[]Resource `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Data == nil {
		return fmt.Errorf("%w: result page has no data", ErrMalformedResponse)
	}
	p.Href = raw.Href
	p.Next = raw.Next
	p.Data = *raw.Data
	return nil
}

// UnmarshalJSON requires the identifying fields and an attributes object.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string          `json:"id"`
		Type       string          `json:"type"`
		Href       string          `json:"href"`
		Attributes json.RawMessage `json:"attributes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID == "":
		return fmt.Errorf("%w: resource has no id", ErrMalformedResponse)
	case raw.Type == "":
		return fmt.Errorf("%w: resource %s has no type", ErrMalformedResponse, raw.ID)
	case len(raw.Attributes) == 0 || string(raw.Attributes) == "null":
		return fmt.Errorf("%w: %s %s has no attributes", ErrMalformedResponse, raw.Type, raw.ID)
	}
	*r = Resource{ID: raw.ID, Type: raw.Type, Href: raw.Href, Attributes: raw.Attributes}
	return nil
}

// DecodeAttributes unmarshals the raw attributes into v.
func (r Resource) DecodeAttributes(v any) error {
	if len(r.Attributes) == 0 {
		return fmt.Errorf("%w: %s %s has no attributes", ErrMalformedResponse, r.Type, r.ID)
	}
	if err := json.Unmarshal(r.Attributes, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// Song decodes the attributes of a "songs" resource.
func (r Resource) Song() (*SongAttributes, error) {
	if r.Type != "songs" {
		return nil, fmt.Errorf("%w: resource %s is %q, not songs", ErrInvalidInput, r.ID, r.Type)
	}
	var attrs SongAttributes
	if err := r.DecodeAttributes(&attrs); err != nil {
		return nil, err
	}
	if attrs.Name == "" {
		return nil, fmt.Errorf("%w: song %s has no name", ErrMalformedResponse, r.ID)
	}
	return &attrs, nil
}

// Songs decodes every entry of the "songs" page. It fails on the first entry
// that is not a well-formed song.
func (s *SearchResponse) Songs() ([]SongResult, error) {
	page, ok := s.Results["songs"]
	if !ok {
		return nil, nil
	}
	songs := make([]SongResult, 0, len(page.Data))
	for i, res := range page.Data {
		attrs, err := res.Song()
		if err != nil {
			return nil, fmt.Errorf("songs[%d]: %w", i, err)
		}
		songs = append(songs, SongResult{ID: res.ID, Href: res.Href, Attributes: *attrs})
	}
	return songs, nil
}

// SongResult pairs a song's identifiers with its decoded attributes.
type SongResult struct {
	ID         string
	Href       string
	Attributes SongAttributes
}
