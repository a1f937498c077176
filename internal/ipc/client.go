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
	return &Client{conn: conn, client: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(serviceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues a job.
func (c *Client) Submit(inputPath, outputPath string) (*SubmitResponse, error) {
	return call[SubmitResponse](c, "Submit", SubmitRequest{InputPath: inputPath, OutputPath: outputPath})
}

// Progress fetches a progress snapshot.
func (c *Client) Progress() (*ProgressResponse, error) {
	return call[ProgressResponse](c, "Progress", ProgressRequest{})
}

// Stop drains the worker and stops the daemon; it blocks until the drain
// finishes or the timeout forces termination.
func (c *Client) Stop(req StopRequest) (*StopResponse, error) {
	return call[StopResponse](c, "Stop", req)
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// History lists journaled results.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	return call[HistoryResponse](c, "History", HistoryRequest{Limit: limit})
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
