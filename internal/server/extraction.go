package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pdfjson/internal/common"
	"github.com/joseph-ayodele/pdfjson/internal/pipeline"
	"github.com/joseph-ayodele/pdfjson/internal/utils"
)

const (
	ServiceName   = "pdfjson.v1.ExtractionService"
	ExtractMethod = "/" + ServiceName + "/Extract"
)

// ExtractionServer is the server API for pdfjson.v1.ExtractionService.
// Requests and responses are google.protobuf.Struct values.
type ExtractionServer interface {
	Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).Extract(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pdfjson/v1/extraction.proto",
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

// Converter turns one PDF into its JSON document. *pipeline.Driver satisfies it.
type Converter interface {
	Run(ctx context.Context, in, out string) (pipeline.Result, error)
}

type ExtractionService struct {
	conv   Converter
	logger *slog.Logger

	// one document at a time
	mu sync.Mutex
}

var _ ExtractionServer = (*ExtractionService)(nil)

func NewExtractionService(conv Converter, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{conv: conv, logger: logger}
}

// Extract converts input_path to output_path (default: input with a .json
// extension) and reports the run summary.
func (s *ExtractionService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := common.LoggerFromContext(ctx, s.logger)

	in, err := stringField(req, "input_path")
	if err != nil {
		return nil, err
	}
	if in == "" {
		log.Error("extract request missing input_path")
		return nil, status.Error(codes.InvalidArgument, "input_path is required")
	}
	out, err := stringField(req, "output_path")
	if err != nil {
		return nil, err
	}
	if out == "" {
		out = utils.SiblingPath(in, ".json")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Info("starting extraction", "input", in, "output", out)
	res, err := s.conv.Run(ctx, in, out)
	if err != nil {
		log.Error("extraction failed", "input", in, "error", err)
		return nil, common.ToStatus(err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"run_id":      res.RunID.String(),
		"pages":       res.Pages,
		"ocr_pages":   res.OCRPages,
		"output_path": res.OutputPath,
		"sha256":      res.SHA256,
	})
	if err != nil {
		return nil, common.InternalError(fmt.Sprintf("encode response: %v", err))
	}
	return resp, nil
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", common.InvalidArgumentErrorf("%s must be a string", name)
	}
	return strings.TrimSpace(sv.StringValue), nil
}

// ExtractResponse is the decoded Extract reply.
type ExtractResponse struct {
	RunID      string
	Pages      int
	OCRPages   int
	OutputPath string
	SHA256     string
}

type ExtractionClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractionClient(cc grpc.ClientConnInterface) *ExtractionClient {
	return &ExtractionClient{cc: cc}
}

func (c *ExtractionClient) Extract(ctx context.Context, inputPath, outputPath string, opts ...grpc.CallOption) (*ExtractResponse, error) {
	req, err := structpb.NewStruct(map[string]any{
		"input_path":  inputPath,
		"output_path": outputPath,
	})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExtractMethod, req, out, opts...); err != nil {
		return nil, err
	}
	f := out.GetFields()
	return &ExtractResponse{
		RunID:      f["run_id"].GetStringValue(),
		Pages:      int(f["pages"].GetNumberValue()),
		OCRPages:   int(f["ocr_pages"].GetNumberValue()),
		OutputPath: f["output_path"].GetStringValue(),
		SHA256:     f["sha256"].GetStringValue(),
	}, nil
}
