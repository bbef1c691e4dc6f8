// Package evalpb defines the wire types and gRPC service plumbing for
// the evaluation service, hand-written in the shape protoc-gen-go-grpc
// would produce so grpcevaluator can depend on the usual
// client/ServiceDesc surface without a protoc run in this tree. Message
// encoding is JSON rather than the protobuf wire format: jsonCodec below
// registers itself under the "proto" content-subtype name, so standard
// grpc.Dial/grpc.NewServer wiring picks it up with no extra CallOptions.
package evalpb

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// EvaluateBatchRequest carries one flattened feature vector per leaf
// state in the batch.
type EvaluateBatchRequest struct {
	Features [][]float32 `json:"features"`
}

// EvaluateBatchResponse carries the per-state value estimate and a
// fixed-width policy row per state; grpcevaluator trims each row down to
// the requesting state's actual action count.
type EvaluateBatchResponse struct {
	Values   []float32   `json:"values"`
	Policies [][]float32 `json:"policies"`
}

const evaluatorEvaluateBatchMethod = "/evalpb.Evaluator/EvaluateBatch"

// EvaluatorClient is the client-side stub for the evaluation service.
type EvaluatorClient interface {
	EvaluateBatch(ctx context.Context, in *EvaluateBatchRequest, opts ...grpc.CallOption) (*EvaluateBatchResponse, error)
}

type evaluatorClient struct {
	cc grpc.ClientConnInterface
}

// NewEvaluatorClient wraps an established connection.
func NewEvaluatorClient(cc grpc.ClientConnInterface) EvaluatorClient {
	return &evaluatorClient{cc: cc}
}

func (c *evaluatorClient) EvaluateBatch(ctx context.Context, in *EvaluateBatchRequest, opts ...grpc.CallOption) (*EvaluateBatchResponse, error) {
	out := new(EvaluateBatchResponse)
	if err := c.cc.Invoke(ctx, evaluatorEvaluateBatchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluatorServer is the server-side contract a process hosting the
// evaluation service implements.
type EvaluatorServer interface {
	EvaluateBatch(ctx context.Context, in *EvaluateBatchRequest) (*EvaluateBatchResponse, error)
}

// RegisterEvaluatorServer attaches srv to s under the Evaluator service
// name.
func RegisterEvaluatorServer(s grpc.ServiceRegistrar, srv EvaluatorServer) {
	s.RegisterService(&evaluatorServiceDesc, srv)
}

func evaluateBatchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(EvaluateBatchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EvaluatorServer).EvaluateBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: evaluatorEvaluateBatchMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EvaluatorServer).EvaluateBatch(ctx, req.(*EvaluateBatchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var evaluatorServiceDesc = grpc.ServiceDesc{
	ServiceName: "evalpb.Evaluator",
	HandlerType: (*EvaluatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "EvaluateBatch",
			Handler:    evaluateBatchHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "evalpb/evaluator.go",
}

// jsonCodec substitutes JSON marshaling for the default protobuf codec.
// Registering under the "proto" name is what makes grpc pick it by
// default; nothing else in this package or its callers needs to select
// a content-subtype explicitly.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
