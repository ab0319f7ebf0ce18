package swipe

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls SwipeService over a gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req *Req, opts ...grpc.CallOption) (*Resp, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := fromStruct(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetProfile(ctx context.Context, req *UserRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[UserRequest, ProfileResponse](ctx, c.cc, "GetProfile", req, opts...)
}

func (c *Client) UpdateProfile(ctx context.Context, req *UpdateProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[UpdateProfileRequest, ProfileResponse](ctx, c.cc, "UpdateProfile", req, opts...)
}

func (c *Client) SetPremium(ctx context.Context, req *SetPremiumRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[SetPremiumRequest, ProfileResponse](ctx, c.cc, "SetPremium", req, opts...)
}

func (c *Client) RequestVerification(ctx context.Context, req *UserRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[UserRequest, ProfileResponse](ctx, c.cc, "RequestVerification", req, opts...)
}

func (c *Client) Boost(ctx context.Context, req *UserRequest, opts ...grpc.CallOption) (*BoostResponse, error) {
	return invoke[UserRequest, BoostResponse](ctx, c.cc, "Boost", req, opts...)
}

func (c *Client) FetchCandidates(ctx context.Context, req *UserRequest, opts ...grpc.CallOption) (*CandidatesResponse, error) {
	return invoke[UserRequest, CandidatesResponse](ctx, c.cc, "FetchCandidates", req, opts...)
}

func (c *Client) SendLike(ctx context.Context, req *SendLikeRequest, opts ...grpc.CallOption) (*SendLikeResponse, error) {
	return invoke[SendLikeRequest, SendLikeResponse](ctx, c.cc, "SendLike", req, opts...)
}

func (c *Client) ListLikedYou(ctx context.Context, req *ListLikesRequest, opts ...grpc.CallOption) (*ListLikesResponse, error) {
	return invoke[ListLikesRequest, ListLikesResponse](ctx, c.cc, "ListLikedYou", req, opts...)
}

func (c *Client) ListMyLikes(ctx context.Context, req *ListLikesRequest, opts ...grpc.CallOption) (*ListLikesResponse, error) {
	return invoke[ListLikesRequest, ListLikesResponse](ctx, c.cc, "ListMyLikes", req, opts...)
}

func (c *Client) CountLikedYou(ctx context.Context, req *UserRequest, opts ...grpc.CallOption) (*CountResponse, error) {
	return invoke[UserRequest, CountResponse](ctx, c.cc, "CountLikedYou", req, opts...)
}

func (c *Client) ListMatches(ctx context.Context, req *ListMatchesRequest, opts ...grpc.CallOption) (*ListMatchesResponse, error) {
	return invoke[ListMatchesRequest, ListMatchesResponse](ctx, c.cc, "ListMatches", req, opts...)
}

func (c *Client) SendFirstMessage(ctx context.Context, req *FirstMessageRequest, opts ...grpc.CallOption) (*FirstMessageResponse, error) {
	return invoke[FirstMessageRequest, FirstMessageResponse](ctx, c.cc, "SendFirstMessage", req, opts...)
}

// Stream receives the responses of a server-streaming call.
type Stream[Resp any] struct {
	stream grpc.ClientStream
}

// Recv blocks for the next response.
func (s *Stream[Resp]) Recv() (*Resp, error) {
	out := new(structpb.Struct)
	if err := s.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := fromStruct(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func openStream[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req *Req, opts ...grpc.CallOption) (*Stream[Resp], error) {
	stream, err := cc.NewStream(ctx, streamDesc(method), fullMethod(method), opts...)
	if err != nil {
		return nil, err
	}
	in, err := toStruct(req)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Stream[Resp]{stream: stream}, nil
}

// WatchProfile opens the profile stream; cancel ctx to end it.
func (c *Client) WatchProfile(ctx context.Context, req *UserRequest, opts ...grpc.CallOption) (*Stream[ProfileResponse], error) {
	return openStream[UserRequest, ProfileResponse](ctx, c.cc, "WatchProfile", req, opts...)
}

// WatchMatches opens the matches stream; cancel ctx to end it.
func (c *Client) WatchMatches(ctx context.Context, req *ListMatchesRequest, opts ...grpc.CallOption) (*Stream[ListMatchesResponse], error) {
	return openStream[ListMatchesRequest, ListMatchesResponse](ctx, c.cc, "WatchMatches", req, opts...)
}
