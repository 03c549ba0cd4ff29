package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ledger.v1.LedgerService"

// LedgerServiceHandler is the server API for the ledger service. Requests and
// responses are google.protobuf.Struct values.
type LedgerServiceHandler interface {
	OpenAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Deposit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Withdraw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Transfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransfer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BlockAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatement(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(LedgerServiceHandler, context.Context, *structpb.Struct) (*structpb.Struct, error)

// LedgerServiceDesc describes the ledger service for grpc.Server.RegisterService.
// No .proto file backs it, so there is no file descriptor to serve through
// server reflection.
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceHandler)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("OpenAccount", LedgerServiceHandler.OpenAccount),
		unaryMethod("GetAccount", LedgerServiceHandler.GetAccount),
		unaryMethod("Deposit", LedgerServiceHandler.Deposit),
		unaryMethod("Withdraw", LedgerServiceHandler.Withdraw),
		unaryMethod("Transfer", LedgerServiceHandler.Transfer),
		unaryMethod("GetTransfer", LedgerServiceHandler.GetTransfer),
		unaryMethod("BlockAccount", LedgerServiceHandler.BlockAccount),
		unaryMethod("ListTransactions", LedgerServiceHandler.ListTransactions),
		unaryMethod("GetStatement", LedgerServiceHandler.GetStatement),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterLedgerServiceServer registers srv on s.
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceHandler) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// FullMethod returns the wire path of a ledger service method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryMethod(name string, call structMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServiceHandler), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(LedgerServiceHandler), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
