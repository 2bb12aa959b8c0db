package engine

import (
	"context"
	"net/http"
)

// CreateDump triggers a full dump of the engine's indexes and settings and
// returns the task handle. The dump file lands in the engine's configured
// dump directory; restore happens engine-side at startup from that file.
func (c *Client) CreateDump(ctx context.Context) (*TaskRef, error) {
	resp, err := c.do(ctx, http.MethodPost, "/dumps", nil)
	if err != nil {
		return nil, err
	}

	var ref TaskRef
	if err := c.decode(resp, "create dump", &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}
