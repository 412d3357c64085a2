package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
)

// wrapper over the Neo RPC client providing read-only blockchain services
// needed for the current command.
type remoteBlockchain struct {
	rpc *rpcclient.Client
	inv *invoker.Invoker
}

// newRemoteBlockchain dials Neo RPC server and returns remoteBlockchain based
// on the opened connection. Connection and all requests are done within 15s
// timeout.
func newRemoteBlockchain(blockChainRPCEndpoint string) (*remoteBlockchain, error) {
	c, err := rpcclient.New(context.Background(), blockChainRPCEndpoint, rpcclient.Options{
		DialTimeout:    15 * time.Second,
		RequestTimeout: 15 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		return nil, fmt.Errorf("RPC client initialization: %w", err)
	}

	return &remoteBlockchain{
		rpc: c,
		inv: invoker.New(c, nil),
	}, nil
}

func (x *remoteBlockchain) close() {
	x.rpc.Close()
}
