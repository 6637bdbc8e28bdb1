package grpcfrontend

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a thin wrapper around a grpc.ClientConn, used by cmd/swapd's
// status subcommand to query a running grpcd without going through the bus.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to grpcd at addr.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.Dial(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "grpcfrontend: failed to dial %s", addr)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// GetInfo fetches the orchestrator's NodeInfo.
func (c *Client) GetInfo(ctx context.Context) (*NodeInfo, error) {
	var resp NodeInfo
	if err := c.conn.Invoke(ctx, methodPath("GetInfo"), &Empty{}, &resp); err != nil {
		return nil, errors.Wrap(err, "grpcfrontend: GetInfo failed")
	}
	return &resp, nil
}

// SwapProgress fetches the progress log for one swap.
func (c *Client) SwapProgress(ctx context.Context, swapIDHex string) (*SwapProgress, error) {
	var resp SwapProgress
	req := &SwapIdRequest{SwapId: swapIDHex}
	if err := c.conn.Invoke(ctx, methodPath("SwapProgress"), req, &resp); err != nil {
		return nil, errors.Wrap(err, "grpcfrontend: SwapProgress failed")
	}
	return &resp, nil
}
