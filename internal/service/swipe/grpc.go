package swipe

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	svcErr "github.com/oggyb/ravematch/internal/errors"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "ravematch.swipe.v1.SwipeService"

// SwipeServer is the server API of SwipeService. Messages travel as
// google.protobuf.Struct and are decoded into the request types by field
// name.
type SwipeServer interface {
	GetProfile(context.Context, *UserRequest) (*ProfileResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*ProfileResponse, error)
	SetPremium(context.Context, *SetPremiumRequest) (*ProfileResponse, error)
	RequestVerification(context.Context, *UserRequest) (*ProfileResponse, error)
	Boost(context.Context, *UserRequest) (*BoostResponse, error)
	FetchCandidates(context.Context, *UserRequest) (*CandidatesResponse, error)
	SendLike(context.Context, *SendLikeRequest) (*SendLikeResponse, error)
	ListLikedYou(context.Context, *ListLikesRequest) (*ListLikesResponse, error)
	ListMyLikes(context.Context, *ListLikesRequest) (*ListLikesResponse, error)
	CountLikedYou(context.Context, *UserRequest) (*CountResponse, error)
	ListMatches(context.Context, *ListMatchesRequest) (*ListMatchesResponse, error)
	SendFirstMessage(context.Context, *FirstMessageRequest) (*FirstMessageResponse, error)
	WatchProfile(ctx context.Context, req *UserRequest, send func(*ProfileResponse) error) error
	WatchMatches(ctx context.Context, req *ListMatchesRequest, send func(*ListMatchesResponse) error) error
}

var _ SwipeServer = (*Service)(nil)

// ServiceDesc is the grpc.ServiceDesc for SwipeService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SwipeServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetProfile", SwipeServer.GetProfile),
		unary("UpdateProfile", SwipeServer.UpdateProfile),
		unary("SetPremium", SwipeServer.SetPremium),
		unary("RequestVerification", SwipeServer.RequestVerification),
		unary("Boost", SwipeServer.Boost),
		unary("FetchCandidates", SwipeServer.FetchCandidates),
		unary("SendLike", SwipeServer.SendLike),
		unary("ListLikedYou", SwipeServer.ListLikedYou),
		unary("ListMyLikes", SwipeServer.ListMyLikes),
		unary("CountLikedYou", SwipeServer.CountLikedYou),
		unary("ListMatches", SwipeServer.ListMatches),
		unary("SendFirstMessage", SwipeServer.SendFirstMessage),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchProfile", SwipeServer.WatchProfile),
		serverStream("WatchMatches", SwipeServer.WatchMatches),
	},
	Metadata: "ravematch/swipe/v1/swipe.proto",
}

// RegisterSwipeServer attaches srv to s.
func RegisterSwipeServer(s grpc.ServiceRegistrar, srv SwipeServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](
	name string,
	call func(SwipeServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, msg any) (any, error) {
				req := new(Req)
				if err := fromStruct(msg.(*structpb.Struct), req); err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				resp, err := call(srv.(SwipeServer), ctx, req)
				if err != nil {
					return nil, svcErr.Map(err)
				}
				return toStruct(resp)
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// serverStream builds a server-streaming method: one request, then every
// response handed to send.
func serverStream[Req, Resp any](
	name string,
	call func(SwipeServer, context.Context, *Req, func(*Resp) error) error,
) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(structpb.Struct)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			req := new(Req)
			if err := fromStruct(in, req); err != nil {
				return status.Error(codes.InvalidArgument, err.Error())
			}
			err := call(srv.(SwipeServer), stream.Context(), req, func(resp *Resp) error {
				out, err := toStruct(resp)
				if err != nil {
					return err
				}
				return stream.SendMsg(out)
			})
			return svcErr.Map(err)
		},
	}
}

func streamDesc(name string) *grpc.StreamDesc {
	for i := range ServiceDesc.Streams {
		if ServiceDesc.Streams[i].StreamName == name {
			return &ServiceDesc.Streams[i]
		}
	}
	return nil
}

// fromStruct decodes a Struct into v through its json tags.
func fromStruct(s *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// toStruct encodes v into a Struct through its json tags.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
