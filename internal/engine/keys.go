package engine

import (
	"context"
	"net/http"
)

// Key is an engine API key. Unlike the index endpoints, key management is
// synchronous: the engine answers with the key record directly.
type Key struct {
	UID         string   `json:"uid,omitempty"`
	Key         string   `json:"key,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Actions     []string `json:"actions"`
	Indexes     []string `json:"indexes"`
	ExpiresAt   *string  `json:"expiresAt"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// CreateKey creates an API key with the given scope.
func (c *Client) CreateKey(ctx context.Context, key *Key) (*Key, error) {
	resp, err := c.do(ctx, http.MethodPost, "/keys", key)
	if err != nil {
		return nil, err
	}

	var created Key
	if err := c.decode(resp, "create key "+key.Name, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// keyListResponse is the paged key listing body.
type keyListResponse struct {
	Results []Key `json:"results"`
	Offset  int   `json:"offset"`
	Limit   int   `json:"limit"`
	Total   int   `json:"total"`
}

// ListKeys returns the engine's API keys.
func (c *Client) ListKeys(ctx context.Context) ([]Key, error) {
	resp, err := c.do(ctx, http.MethodGet, "/keys?limit=100", nil)
	if err != nil {
		return nil, err
	}

	var list keyListResponse
	if err := c.decode(resp, "list keys", &list); err != nil {
		return nil, err
	}
	return list.Results, nil
}

// DeleteKey removes an API key by its UID.
func (c *Client) DeleteKey(ctx context.Context, uid string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/keys/"+uid, nil)
	if err != nil {
		return err
	}
	return c.decode(resp, "delete key "+uid, nil)
}
