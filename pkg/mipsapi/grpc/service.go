package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// VectorIndexServer is the service surface the gRPC server registers.
// In the teacher's layout this interface and the handler glue below it
// are generated by protoc from a .proto file; without a protoc step
// available they are written out by hand against the same grpc.ServiceDesc
// contract the generator targets.
type VectorIndexServer interface {
	Build(context.Context, *BuildRequest) (*BuildResponse, error)
	Add(context.Context, *AddRequest) (*AddResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	Reset(context.Context, *ResetRequest) (*ResetResponse, error)
}

// RegisterVectorIndexServer wires srv into s under the service's method
// set, mirroring the generated RegisterXServer functions.
func RegisterVectorIndexServer(s grpc.ServiceRegistrar, srv VectorIndexServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "mipsindex.VectorIndexService",
	HandlerType: (*VectorIndexServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Build", Handler: buildHandler},
		{MethodName: "Add", Handler: addHandler},
		{MethodName: "Search", Handler: searchHandler},
		{MethodName: "Reset", Handler: resetHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mipsapi/grpc/service.go",
}

func buildHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BuildRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VectorIndexServer).Build(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mipsindex.VectorIndexService/Build"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VectorIndexServer).Build(ctx, req.(*BuildRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func addHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AddRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VectorIndexServer).Add(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mipsindex.VectorIndexService/Add"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VectorIndexServer).Add(ctx, req.(*AddRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func searchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VectorIndexServer).Search(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mipsindex.VectorIndexService/Search"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VectorIndexServer).Search(ctx, req.(*SearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func resetHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ResetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VectorIndexServer).Reset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mipsindex.VectorIndexService/Reset"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VectorIndexServer).Reset(ctx, req.(*ResetRequest))
	}
	return interceptor(ctx, in, info, handler)
}
