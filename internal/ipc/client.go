package ipc

import (
	"errors"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"time"

	"platter/internal/services"
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

// call dispatches a Platter method and restores sentinel errors that
// net/rpc flattened to strings on the way over.
func (c *Client) call(method string, req, resp any) error {
	return callError(c.client.Call("Platter."+method, req, resp))
}

// callError undoes the server's rpcError encoding so errors.Is works on
// the client side the same way it does inside the daemon.
func callError(err error) error {
	if err == nil {
		return nil
	}
	var remote rpc.ServerError
	if !errors.As(err, &remote) {
		return err
	}
	code, rest, ok := strings.Cut(remote.Error(), ": ")
	if !ok {
		return err
	}
	if decoded := services.FromCode(code, rest); decoded != nil {
		return decoded
	}
	return err
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Disks lists the physical disk inventory with persisted roles.
func (c *Client) Disks() (*DiskListResponse, error) {
	var resp DiskListResponse
	if err := c.call("Disks", DiskListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PoolSubmit submits a parity-pool configuration.
func (c *Client) PoolSubmit(req PoolSubmitRequest) (*PoolSubmitResponse, error) {
	var resp PoolSubmitResponse
	if err := c.call("PoolSubmit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PoolShow retrieves the persisted pool configuration.
func (c *Client) PoolShow() (*PoolShowResponse, error) {
	var resp PoolShowResponse
	if err := c.call("PoolShow", PoolShowRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncStart launches a parity sync.
func (c *Client) SyncStart() (*SyncStartResponse, error) {
	var resp SyncStartResponse
	if err := c.call("SyncStart", SyncStartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncStatus retrieves the sync tracker snapshot.
func (c *Client) SyncStatus() (*SyncStatusResponse, error) {
	var resp SyncStatusResponse
	if err := c.call("SyncStatus", SyncStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScrubRun runs a parity scrub to completion.
func (c *Client) ScrubRun() (*ScrubRunResponse, error) {
	var resp ScrubRunResponse
	if err := c.call("ScrubRun", ScrubRunRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScrubStatus retrieves the scrub tracker snapshot.
func (c *Client) ScrubStatus() (*ScrubStatusResponse, error) {
	var resp ScrubStatusResponse
	if err := c.call("ScrubStatus", ScrubStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckStart launches an array parity check.
func (c *Client) CheckStart() (*CheckStartResponse, error) {
	var resp CheckStartResponse
	if err := c.call("CheckStart", CheckStartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckStatus retrieves the parity-check tracker snapshot.
func (c *Client) CheckStatus() (*CheckStatusResponse, error) {
	var resp CheckStatusResponse
	if err := c.call("CheckStatus", CheckStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ArrayConfigure submits a kernel-array configuration.
func (c *Client) ArrayConfigure(req ArrayConfigureRequest) (*ArrayConfigureResponse, error) {
	var resp ArrayConfigureResponse
	if err := c.call("ArrayConfigure", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ArrayProgress retrieves the configure tracker snapshot.
func (c *Client) ArrayProgress() (*ArrayProgressResponse, error) {
	var resp ArrayProgressResponse
	if err := c.call("ArrayProgress", ArrayProgressRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ArrayStart starts the configured array.
func (c *Client) ArrayStart() (*ArrayStartResponse, error) {
	var resp ArrayStartResponse
	if err := c.call("ArrayStart", ArrayStartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ArrayStop stops the running array.
func (c *Client) ArrayStop() (*ArrayStopResponse, error) {
	var resp ArrayStopResponse
	if err := c.call("ArrayStop", ArrayStopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ArrayStatus retrieves the live array report.
func (c *Client) ArrayStatus() (*ArrayStatusResponse, error) {
	var resp ArrayStatusResponse
	if err := c.call("ArrayStatus", ArrayStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel cancels a running operation by kind.
func (c *Client) Cancel(kind string) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.call("Cancel", CancelRequest{Kind: kind}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History retrieves recent operation runs.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.call("History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.call("LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.call("Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
