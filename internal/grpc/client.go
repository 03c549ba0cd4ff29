package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// LedgerClient calls the ledger service over a gRPC connection.
type LedgerClient struct {
	conn *grpc.ClientConn
}

// NewLedgerClient creates a LedgerClient connected to addr.
func NewLedgerClient(addr string) (*LedgerClient, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger service: %w", err)
	}
	return &LedgerClient{conn: conn}, nil
}

// NewLedgerClientFromConn creates a LedgerClient from an existing connection.
func NewLedgerClientFromConn(conn *grpc.ClientConn) *LedgerClient {
	return &LedgerClient{conn: conn}
}

// Call invokes method with a request built from fields.
func (c *LedgerClient) Call(ctx context.Context, method string, fields map[string]interface{}) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the gRPC connection.
func (c *LedgerClient) Close() error {
	return c.conn.Close()
}
