package grpc_control

import (
	"context"
	"encoding/json"
	"fmt"

	"candle-stream/src/analysis"
	"candle-stream/src/client"
	"candle-stream/src/config"
	"candle-stream/src/helpers"
	"candle-stream/src/logger"
	"candle-stream/src/utils"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements ClientControlServer on top of the subscriber daemon
type ControlService struct {
	Config      *config.Config
	ConfigPath  string
	Manager     *client.SubscriptionManager
	Preferences *client.Preferences
	Store       *utils.RetentionStore
	Analysis    *analysis.AnalysisFacade
	Logger      *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	cfg *config.Config,
	cfgPath string,
	manager *client.SubscriptionManager,
	prefs *client.Preferences,
	store *utils.RetentionStore,
	analyzer *analysis.AnalysisFacade,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:      cfg,
		ConfigPath:  cfgPath,
		Manager:     manager,
		Preferences: prefs,
		Store:       store,
		Analysis:    analyzer,
		Logger:      log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSubscriptions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.subscriptionsResponse("")
}

// -----------------------------------------------------------------------------

func (s *ControlService) AddSubscription(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	instrument := stringField(req, "instrument")
	if instrument == "" {
		return nil, status.Error(codes.InvalidArgument, "instrument is required")
	}

	if err := s.Manager.Add(instrument); err != nil {
		return nil, toStatus(err)
	}
	s.Logger.Info("gRPC: subscribed to %s", instrument)

	s.maybeSaveDefaults(req)
	return s.subscriptionsResponse(fmt.Sprintf("Subscribed to %s", instrument))
}

// -----------------------------------------------------------------------------

func (s *ControlService) RemoveSubscription(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	instrument := stringField(req, "instrument")
	if instrument == "" {
		return nil, status.Error(codes.InvalidArgument, "instrument is required")
	}

	if err := s.Manager.Remove(instrument); err != nil {
		return nil, toStatus(err)
	}
	s.Logger.Info("gRPC: unsubscribed from %s", instrument)

	s.maybeSaveDefaults(req)
	return s.subscriptionsResponse(fmt.Sprintf("Removed %s", instrument))
}

// -----------------------------------------------------------------------------

func (s *ControlService) ReplaceSubscription(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	old, next := stringField(req, "old"), stringField(req, "new")
	if old == "" || next == "" {
		return nil, status.Error(codes.InvalidArgument, "old and new are required")
	}

	if err := s.Manager.Replace(old, next); err != nil {
		return nil, toStatus(err)
	}
	s.Logger.Info("gRPC: replaced %s with %s", old, next)

	s.maybeSaveDefaults(req)
	return s.subscriptionsResponse(fmt.Sprintf("Replaced %s with %s", old, next))
}

// -----------------------------------------------------------------------------

// GetSeries resamples the retained candles of one instrument to a display
// time frame and attaches the configured indicators.
func (s *ControlService) GetSeries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	instrument := stringField(req, "instrument")
	timeFrame := stringField(req, "timeframe")
	if instrument == "" || timeFrame == "" {
		return nil, status.Error(codes.InvalidArgument, "instrument and timeframe are required")
	}
	if !s.Store.HasInstrument(instrument) {
		return nil, status.Errorf(codes.NotFound, "no candles retained for %s", instrument)
	}

	series, err := s.Analysis.BuildSeries(instrument, s.Store.Snapshot(instrument), timeFrame, s.Preferences.Indicators())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return toStruct(series)
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	st := s.Manager.Status()

	out, err := toStruct(st)
	if err != nil {
		return nil, err
	}
	sizes, err := toStruct(s.Store.Sizes())
	if err != nil {
		return nil, err
	}
	out.Fields["retained"] = structpb.NewStructValue(sizes)
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) SetPreference(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, value := stringField(req, "key"), stringField(req, "value")
	if key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}

	if err := s.Preferences.Set(key, value); err != nil {
		return nil, toStatus(err)
	}
	s.Logger.Info("gRPC: preference %s updated", key)
	return s.GetPreferences(ctx, nil)
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetPreferences(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(s.Preferences.All())
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *ControlService) subscriptionsResponse(message string) (*structpb.Struct, error) {
	subs := s.Manager.Subscriptions()
	list := make([]interface{}, len(subs))
	for i, v := range subs {
		list[i] = v
	}

	fields := map[string]interface{}{"subscriptions": list}
	if message != "" {
		fields["message"] = message
	}
	return structpb.NewStruct(fields)
}

// maybeSaveDefaults writes the current set back to the config file as the
// default subscriptions when the request asks for it.
func (s *ControlService) maybeSaveDefaults(req *structpb.Struct) {
	if req == nil || !req.GetFields()["save_default"].GetBoolValue() || s.ConfigPath == "" {
		return
	}
	s.Config.Client.DefaultSubscriptions = s.Manager.Subscriptions()
	if err := s.Config.Save(s.ConfigPath); err != nil {
		s.Logger.Error("gRPC: failed to save default subscriptions: %v", err)
	}
}

func stringField(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[name].GetStringValue()
}

// toStruct converts any JSON encodable value into a Struct.
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	switch helpers.HTTPStatus(err) {
	case 400:
		return status.Error(codes.InvalidArgument, err.Error())
	case 503:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
