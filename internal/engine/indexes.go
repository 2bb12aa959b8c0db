package engine

import (
	"context"
	"net/http"
)

// Index describes an index as reported by the engine.
type Index struct {
	UID        string `json:"uid"`
	PrimaryKey string `json:"primaryKey,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// GetIndex fetches an index by UID. Returns a pkg/errors NotFound error
// when the index does not exist.
func (c *Client) GetIndex(ctx context.Context, uid string) (*Index, error) {
	resp, err := c.do(ctx, http.MethodGet, "/indexes/"+uid, nil)
	if err != nil {
		return nil, err
	}

	var idx Index
	if err := c.decode(resp, "get index "+uid, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// createIndexRequest is the body of an index creation call.
type createIndexRequest struct {
	UID        string `json:"uid"`
	PrimaryKey string `json:"primaryKey,omitempty"`
}

// CreateIndex enqueues creation of an index and returns the task handle.
func (c *Client) CreateIndex(ctx context.Context, uid, primaryKey string) (*TaskRef, error) {
	resp, err := c.do(ctx, http.MethodPost, "/indexes", createIndexRequest{
		UID:        uid,
		PrimaryKey: primaryKey,
	})
	if err != nil {
		return nil, err
	}

	var ref TaskRef
	if err := c.decode(resp, "create index "+uid, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// DeleteIndex enqueues deletion of an index and returns the task handle.
// Intended for administrative and test cleanup use.
func (c *Client) DeleteIndex(ctx context.Context, uid string) (*TaskRef, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/indexes/"+uid, nil)
	if err != nil {
		return nil, err
	}

	var ref TaskRef
	if err := c.decode(resp, "delete index "+uid, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}
