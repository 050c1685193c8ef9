package grpc_control

import (
	"context"
	"encoding/json"

	"market-dashboard/src/dashboard"
	"market-dashboard/src/helpers"
	"market-dashboard/src/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ControlService implements ControlServer on top of the running dashboard.
type ControlService struct {
	Dashboard *dashboard.Dashboard
	Logger    *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(dash *dashboard.Dashboard, log *logger.Logger) *ControlService {
	return &ControlService{
		Dashboard: dash,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.Dashboard.Status())
}

// -----------------------------------------------------------------------------

// ForceRefresh forces an update on every connection and returns how many
// connections were refreshed.
func (s *ControlService) ForceRefresh(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.Int32Value, error) {
	n := s.Dashboard.ForceRefreshAll()
	s.Logger.Info("gRPC: ForceRefresh on %d connections", n)
	return wrapperspb.Int32(int32(n)), nil
}

// -----------------------------------------------------------------------------

// ReloadConfig makes every client reload the config file.
func (s *ControlService) ReloadConfig(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.Dashboard.ReloadConfig(dashboard.OriginRPC)
	s.Logger.Info("gRPC: ReloadConfig")
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

// UpdateTickers replaces the ticker list and returns the saved config.
func (s *ControlService) UpdateTickers(ctx context.Context, req *structpb.ListValue) (*structpb.Struct, error) {
	tickers := make([]string, 0, len(req.GetValues()))
	for i, v := range req.GetValues() {
		sym, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "ticker %d is not a string", i)
		}
		tickers = append(tickers, sym.StringValue)
	}

	cfg := s.Dashboard.CurrentConfig(ctx)
	cfg.Tickers = tickers
	saved, err := s.Dashboard.SaveConfig(ctx, cfg, dashboard.OriginRPC)
	if helpers.IsValidation(err) {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		s.Logger.Error("gRPC: UpdateTickers failed: %v", err)
		return nil, status.Error(codes.Internal, "failed to save configuration")
	}

	s.Logger.Info("gRPC: UpdateTickers success. Count: %d", len(saved.Tickers))
	return toStruct(saved)
}

// -----------------------------------------------------------------------------

// toStruct converts a JSON-tagged model to a protobuf Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

// FromStruct decodes a Struct returned by the service into a model.
func FromStruct[T any](st *structpb.Struct) (T, error) {
	var out T
	data, err := st.MarshalJSON()
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

var _ ControlServer = (*ControlService)(nil)
