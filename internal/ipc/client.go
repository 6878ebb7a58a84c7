package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests daemon startup.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Splice.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests daemon shutdown.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Splice.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status summary.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Splice.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionList lists editing sessions.
func (c *Client) SessionList() (*SessionListResponse, error) {
	var resp SessionListResponse
	if err := c.client.Call("Splice.SessionList", SessionListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionCreate creates a session.
func (c *Client) SessionCreate(name string) (*SessionCreateResponse, error) {
	var resp SessionCreateResponse
	if err := c.client.Call("Splice.SessionCreate", SessionCreateRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionRemove deletes a session and everything it contains.
func (c *Client) SessionRemove(sessionID string) (*SessionRemoveResponse, error) {
	var resp SessionRemoveResponse
	if err := c.client.Call("Splice.SessionRemove", SessionRemoveRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MediaList lists a session's media items.
func (c *Client) MediaList(sessionID string) (*MediaListResponse, error) {
	var resp MediaListResponse
	if err := c.client.Call("Splice.MediaList", MediaListRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Import adds media to a session.
func (c *Client) Import(req ImportRequest) (*ImportResponse, error) {
	var resp ImportResponse
	if err := c.client.Call("Splice.Import", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel aborts an in-flight acquisition.
func (c *Client) Cancel(mediaID string) error {
	var resp CancelResponse
	return c.client.Call("Splice.Cancel", CancelRequest{MediaID: mediaID}, &resp)
}

// Retry re-runs a failed or cancelled acquisition.
func (c *Client) Retry(mediaID string) error {
	var resp RetryResponse
	return c.client.Call("Splice.Retry", RetryRequest{MediaID: mediaID}, &resp)
}

// Relink points missing media at a replacement path.
func (c *Client) Relink(mediaID, path string) error {
	var resp RelinkResponse
	return c.client.Call("Splice.Relink", RelinkRequest{MediaID: mediaID, Path: path}, &resp)
}

// RemoveMedia deletes a media item and detaches its placements.
func (c *Client) RemoveMedia(mediaID string) error {
	var resp RemoveMediaResponse
	return c.client.Call("Splice.RemoveMedia", RemoveMediaRequest{MediaID: mediaID}, &resp)
}

// Place puts media on a timeline track.
func (c *Client) Place(req PlaceRequest) (*PlaceResponse, error) {
	var resp PlaceResponse
	if err := c.client.Call("Splice.Place", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TimelineList lists a session's placements.
func (c *Client) TimelineList(sessionID string) (*TimelineListResponse, error) {
	var resp TimelineListResponse
	if err := c.client.Call("Splice.TimelineList", TimelineListRequest{SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MoveTimelineItem updates a placement's position, duration, or transform.
func (c *Client) MoveTimelineItem(req MoveTimelineItemRequest) (*MoveTimelineItemResponse, error) {
	var resp MoveTimelineItemResponse
	if err := c.client.Call("Splice.MoveTimelineItem", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveTimelineItem detaches a placement.
func (c *Client) RemoveTimelineItem(timelineItemID string) error {
	var resp RemoveTimelineItemResponse
	return c.client.Call("Splice.RemoveTimelineItem", RemoveTimelineItemRequest{TimelineItemID: timelineItemID}, &resp)
}

// LogTail fetches buffered log events after a cursor.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Splice.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CatalogHealth retrieves catalog diagnostics.
func (c *Client) CatalogHealth() (*CatalogHealthResponse, error) {
	var resp CatalogHealthResponse
	if err := c.client.Call("Splice.CatalogHealth", CatalogHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Splice.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
