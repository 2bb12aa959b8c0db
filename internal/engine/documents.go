package engine

import (
	"context"
	"net/http"
)

// AddDocuments enqueues an upsert of the given documents into the index and
// returns the task handle. Documents must be JSON-marshalable objects
// carrying the index's primary key field.
func (c *Client) AddDocuments(ctx context.Context, uid string, docs any) (*TaskRef, error) {
	resp, err := c.do(ctx, http.MethodPost, "/indexes/"+uid+"/documents", docs)
	if err != nil {
		return nil, err
	}

	var ref TaskRef
	if err := c.decode(resp, "add documents "+uid, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// DeleteAllDocuments enqueues removal of every document in the index.
func (c *Client) DeleteAllDocuments(ctx context.Context, uid string) (*TaskRef, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/indexes/"+uid+"/documents", nil)
	if err != nil {
		return nil, err
	}

	var ref TaskRef
	if err := c.decode(resp, "delete documents "+uid, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}
