package engine

import (
	"context"
	"net/http"
)

// TypoTolerance configures the engine's typo tolerance for an index.
type TypoTolerance struct {
	Enabled             *bool    `json:"enabled,omitempty"`
	MinWordSizeForTypos *MinWord `json:"minWordSizeForTypos,omitempty"`
	DisableOnWords      []string `json:"disableOnWords,omitempty"`
	DisableOnAttributes []string `json:"disableOnAttributes,omitempty"`
}

// MinWord sets the word lengths at which one and two typos are tolerated.
type MinWord struct {
	OneTypo  int `json:"oneTypo,omitempty"`
	TwoTypos int `json:"twoTypos,omitempty"`
}

// Pagination limits how deep result pages can go.
type Pagination struct {
	MaxTotalHits int `json:"maxTotalHits,omitempty"`
}

// Settings is the engine's per-index settings document. Nil slices and
// pointers are omitted so a partial update only touches the fields set.
type Settings struct {
	SearchableAttributes []string            `json:"searchableAttributes,omitempty"`
	FilterableAttributes []string            `json:"filterableAttributes,omitempty"`
	SortableAttributes   []string            `json:"sortableAttributes,omitempty"`
	DisplayedAttributes  []string            `json:"displayedAttributes,omitempty"`
	RankingRules         []string            `json:"rankingRules,omitempty"`
	StopWords            []string            `json:"stopWords,omitempty"`
	Synonyms             map[string][]string `json:"synonyms,omitempty"`
	DistinctAttribute    *string             `json:"distinctAttribute,omitempty"`
	TypoTolerance        *TypoTolerance      `json:"typoTolerance,omitempty"`
	Pagination           *Pagination         `json:"pagination,omitempty"`
}

// UpdateSettings enqueues a partial settings update for the index and
// returns the task handle.
func (c *Client) UpdateSettings(ctx context.Context, uid string, s *Settings) (*TaskRef, error) {
	resp, err := c.do(ctx, http.MethodPatch, "/indexes/"+uid+"/settings", s)
	if err != nil {
		return nil, err
	}

	var ref TaskRef
	if err := c.decode(resp, "update settings "+uid, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetSettings fetches the current settings of an index.
func (c *Client) GetSettings(ctx context.Context, uid string) (*Settings, error) {
	resp, err := c.do(ctx, http.MethodGet, "/indexes/"+uid+"/settings", nil)
	if err != nil {
		return nil, err
	}

	var s Settings
	if err := c.decode(resp, "get settings "+uid, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
