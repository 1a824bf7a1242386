package wire

import (
	"fmt"
	"sync"
)

// Factory creates an empty message ready for Unmarshal.
type Factory func() Message

// Registry maps message type codes to factories.
// Registration is expected during setup; lookups are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[MessageType]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[MessageType]Factory)}
}

// Register adds a factory for t.
func (r *Registry) Register(t MessageType, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[t]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t)
	}
	r.factories[t] = f
	return nil
}

// Known reports whether t has a registered factory.
func (r *Registry) Known(t MessageType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[t]
	return ok
}

// Decode builds the message for t from body.
// Unregistered types yield *Unknown and no error.
func (r *Registry) Decode(t MessageType, body []byte) (Message, error) {
	r.mu.RLock()
	f, ok := r.factories[t]
	r.mu.RUnlock()

	var msg Message
	if ok {
		msg = f()
	} else {
		msg = &Unknown{MsgType: t}
	}
	if err := msg.Unmarshal(body); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return msg, nil
}

// Default holds every message type defined by this package.
var Default = newDefaultRegistry()

var entityInfoTypes = []MessageType{
	TypeListEntitiesBinarySensorResponse, TypeListEntitiesCoverResponse, TypeListEntitiesFanResponse,
	TypeListEntitiesLightResponse, TypeListEntitiesSensorResponse, TypeListEntitiesSwitchResponse,
	TypeListEntitiesTextSensorResponse, TypeListEntitiesClimateResponse, TypeListEntitiesNumberResponse,
	TypeListEntitiesSelectResponse, TypeListEntitiesLockResponse, TypeListEntitiesButtonResponse,
	TypeListEntitiesTextResponse, TypeListEntitiesDateResponse, TypeListEntitiesTimeResponse,
	TypeListEntitiesDateTimeResponse,
}

var entityStateTypes = []MessageType{
	TypeBinarySensorStateResponse, TypeCoverStateResponse, TypeFanStateResponse, TypeLightStateResponse,
	TypeSensorStateResponse, TypeSwitchStateResponse, TypeTextSensorStateResponse, TypeClimateStateResponse,
	TypeNumberStateResponse, TypeSelectStateResponse, TypeLockStateResponse, TypeTextStateResponse,
	TypeDateStateResponse, TypeTimeStateResponse, TypeDateTimeStateResponse,
}

var entityCommandTypes = []MessageType{
	TypeCoverCommandRequest, TypeFanCommandRequest, TypeLightCommandRequest, TypeSwitchCommandRequest,
	TypeClimateCommandRequest, TypeNumberCommandRequest, TypeSelectCommandRequest, TypeLockCommandRequest,
	TypeButtonCommandRequest, TypeTextCommandRequest, TypeDateCommandRequest, TypeTimeCommandRequest,
	TypeDateTimeCommandRequest,
}

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	must := func(t MessageType, f Factory) {
		if err := r.Register(t, f); err != nil {
			panic(err)
		}
	}

	must(TypeHelloRequest, func() Message { return &HelloRequest{} })
	must(TypeHelloResponse, func() Message { return &HelloResponse{} })
	must(TypeConnectRequest, func() Message { return &ConnectRequest{} })
	must(TypeConnectResponse, func() Message { return &ConnectResponse{} })
	must(TypeDisconnectRequest, func() Message { return &DisconnectRequest{} })
	must(TypeDisconnectResponse, func() Message { return &DisconnectResponse{} })
	must(TypePingRequest, func() Message { return &PingRequest{} })
	must(TypePingResponse, func() Message { return &PingResponse{} })
	must(TypeDeviceInfoRequest, func() Message { return &DeviceInfoRequest{} })
	must(TypeDeviceInfoResponse, func() Message { return &DeviceInfoResponse{} })
	must(TypeListEntitiesRequest, func() Message { return &ListEntitiesRequest{} })
	must(TypeListEntitiesDoneResponse, func() Message { return &ListEntitiesDoneResponse{} })
	must(TypeSubscribeStatesRequest, func() Message { return &SubscribeStatesRequest{} })
	must(TypeSubscribeLogsRequest, func() Message { return &SubscribeLogsRequest{} })
	must(TypeSubscribeLogsResponse, func() Message { return &SubscribeLogsResponse{} })
	must(TypeSubscribeHomeassistantServicesRequest, func() Message { return &SubscribeHomeassistantServicesRequest{} })
	must(TypeHomeassistantServiceResponse, func() Message { return &HomeassistantServiceResponse{} })
	must(TypeGetTimeRequest, func() Message { return &GetTimeRequest{} })
	must(TypeGetTimeResponse, func() Message { return &GetTimeResponse{} })
	must(TypeSubscribeHomeAssistantStatesRequest, func() Message { return &SubscribeHomeAssistantStatesRequest{} })
	must(TypeSubscribeHomeAssistantStateResponse, func() Message { return &SubscribeHomeAssistantStateResponse{} })
	must(TypeHomeAssistantStateResponse, func() Message { return &HomeAssistantStateResponse{} })

	for _, t := range entityInfoTypes {
		must(t, func() Message { return &EntityInfo{MsgType: t} })
	}
	for _, t := range entityStateTypes {
		must(t, func() Message { return &EntityState{MsgType: t} })
	}
	for _, t := range entityCommandTypes {
		must(t, func() Message { return &EntityCommand{MsgType: t} })
	}
	return r
}
