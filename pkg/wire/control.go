package wire

import "google.golang.org/protobuf/encoding/protowire"

// API version advertised in HelloRequest.
const (
	APIVersionMajor = 1
	APIVersionMinor = 10
)

// HelloRequest opens the session after the cipher is established.
type HelloRequest struct {
	ClientInfo      string
	APIVersionMajor uint32
	APIVersionMinor uint32
}

func (*HelloRequest) Type() MessageType { return TypeHelloRequest }

func (m *HelloRequest) Marshal(b []byte) []byte {
	b = appendString(b, 1, m.ClientInfo)
	b = appendUint(b, 2, uint64(m.APIVersionMajor))
	return appendUint(b, 3, uint64(m.APIVersionMinor))
}

func (m *HelloRequest) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	*m = HelloRequest{
		ClientInfo:      f.String(1),
		APIVersionMajor: f.Uint32(2),
		APIVersionMinor: f.Uint32(3),
	}
	return nil
}

// HelloResponse acknowledges HelloRequest.
type HelloResponse struct {
	APIVersionMajor uint32
	APIVersionMinor uint32
	ServerInfo      string
	Name            string
}

func (*HelloResponse) Type() MessageType { return TypeHelloResponse }

func (m *HelloResponse) Marshal(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.APIVersionMajor))
	b = appendUint(b, 2, uint64(m.APIVersionMinor))
	b = appendString(b, 3, m.ServerInfo)
	return appendString(b, 4, m.Name)
}

func (m *HelloResponse) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	*m = HelloResponse{
		APIVersionMajor: f.Uint32(1),
		APIVersionMinor: f.Uint32(2),
		ServerInfo:      f.String(3),
		Name:            f.String(4),
	}
	return nil
}

// ConnectRequest is the login request.
type ConnectRequest struct {
	Password string
}

func (*ConnectRequest) Type() MessageType { return TypeConnectRequest }

func (m *ConnectRequest) Marshal(b []byte) []byte { return appendString(b, 1, m.Password) }

func (m *ConnectRequest) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	m.Password = f.String(1)
	return nil
}

// ConnectResponse answers the login request.
type ConnectResponse struct {
	InvalidPassword bool
}

func (*ConnectResponse) Type() MessageType { return TypeConnectResponse }

func (m *ConnectResponse) Marshal(b []byte) []byte { return appendBool(b, 1, m.InvalidPassword) }

func (m *ConnectResponse) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	m.InvalidPassword = f.Bool(1)
	return nil
}

type DisconnectRequest struct{ emptyBody }

func (*DisconnectRequest) Type() MessageType { return TypeDisconnectRequest }

type DisconnectResponse struct{ emptyBody }

func (*DisconnectResponse) Type() MessageType { return TypeDisconnectResponse }

type PingRequest struct{ emptyBody }

func (*PingRequest) Type() MessageType { return TypePingRequest }

type PingResponse struct{ emptyBody }

func (*PingResponse) Type() MessageType { return TypePingResponse }

type DeviceInfoRequest struct{ emptyBody }

func (*DeviceInfoRequest) Type() MessageType { return TypeDeviceInfoRequest }

// DeviceInfoResponse describes the device firmware and hardware.
type DeviceInfoResponse struct {
	UsesPassword    bool
	Name            string
	MACAddress      string
	ESPHomeVersion  string
	CompilationTime string
	Model           string
	HasDeepSleep    bool
	ProjectName     string
	ProjectVersion  string
	WebserverPort   uint32
	Manufacturer    string
	FriendlyName    string
}

func (*DeviceInfoResponse) Type() MessageType { return TypeDeviceInfoResponse }

func (m *DeviceInfoResponse) Marshal(b []byte) []byte {
	b = appendBool(b, 1, m.UsesPassword)
	b = appendString(b, 2, m.Name)
	b = appendString(b, 3, m.MACAddress)
	b = appendString(b, 4, m.ESPHomeVersion)
	b = appendString(b, 5, m.CompilationTime)
	b = appendString(b, 6, m.Model)
	b = appendBool(b, 7, m.HasDeepSleep)
	b = appendString(b, 8, m.ProjectName)
	b = appendString(b, 9, m.ProjectVersion)
	b = appendUint(b, 10, uint64(m.WebserverPort))
	b = appendString(b, 12, m.Manufacturer)
	return appendString(b, 13, m.FriendlyName)
}

func (m *DeviceInfoResponse) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	*m = DeviceInfoResponse{
		UsesPassword:    f.Bool(1),
		Name:            f.String(2),
		MACAddress:      f.String(3),
		ESPHomeVersion:  f.String(4),
		CompilationTime: f.String(5),
		Model:           f.String(6),
		HasDeepSleep:    f.Bool(7),
		ProjectName:     f.String(8),
		ProjectVersion:  f.String(9),
		WebserverPort:   f.Uint32(10),
		Manufacturer:    f.String(12),
		FriendlyName:    f.String(13),
	}
	return nil
}

type ListEntitiesRequest struct{ emptyBody }

func (*ListEntitiesRequest) Type() MessageType { return TypeListEntitiesRequest }

type ListEntitiesDoneResponse struct{ emptyBody }

func (*ListEntitiesDoneResponse) Type() MessageType { return TypeListEntitiesDoneResponse }

type SubscribeStatesRequest struct{ emptyBody }

func (*SubscribeStatesRequest) Type() MessageType { return TypeSubscribeStatesRequest }

// SubscribeLogsRequest asks the device to stream its log lines.
type SubscribeLogsRequest struct {
	Level      LogLevel
	DumpConfig bool
}

func (*SubscribeLogsRequest) Type() MessageType { return TypeSubscribeLogsRequest }

func (m *SubscribeLogsRequest) Marshal(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.Level))
	return appendBool(b, 2, m.DumpConfig)
}

func (m *SubscribeLogsRequest) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	*m = SubscribeLogsRequest{Level: LogLevel(f.Uint32(1)), DumpConfig: f.Bool(2)}
	return nil
}

// SubscribeLogsResponse carries one device log line.
type SubscribeLogsResponse struct {
	Level   LogLevel
	Message []byte
}

func (*SubscribeLogsResponse) Type() MessageType { return TypeSubscribeLogsResponse }

func (m *SubscribeLogsResponse) Marshal(b []byte) []byte {
	b = appendUint(b, 1, uint64(m.Level))
	return appendBytes(b, 3, m.Message)
}

func (m *SubscribeLogsResponse) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	*m = SubscribeLogsResponse{Level: LogLevel(f.Uint32(1)), Message: f.Bytes(3)}
	return nil
}

type SubscribeHomeassistantServicesRequest struct{ emptyBody }

func (*SubscribeHomeassistantServicesRequest) Type() MessageType {
	return TypeSubscribeHomeassistantServicesRequest
}

// KeyValue is a map entry of a Home Assistant service call.
type KeyValue struct {
	Key   string
	Value string
}

func (kv KeyValue) marshal() []byte {
	b := appendString(nil, 1, kv.Key)
	return appendString(b, 2, kv.Value)
}

func parseKeyValues(fs []Field) ([]KeyValue, error) {
	var out []KeyValue
	for _, f := range fs {
		inner, err := ParseFields(f.Bytes)
		if err != nil {
			return nil, err
		}
		out = append(out, KeyValue{Key: inner.String(1), Value: inner.String(2)})
	}
	return out, nil
}

func appendKeyValues(b []byte, num protowire.Number, kvs []KeyValue) []byte {
	for _, kv := range kvs {
		b = appendEmbedded(b, num, kv.marshal())
	}
	return b
}

// HomeassistantServiceResponse is a service call or event emitted by the device.
type HomeassistantServiceResponse struct {
	Service      string
	Data         []KeyValue
	DataTemplate []KeyValue
	Variables    []KeyValue
	IsEvent      bool
}

func (*HomeassistantServiceResponse) Type() MessageType { return TypeHomeassistantServiceResponse }

func (m *HomeassistantServiceResponse) Marshal(b []byte) []byte {
	b = appendString(b, 1, m.Service)
	b = appendKeyValues(b, 2, m.Data)
	b = appendKeyValues(b, 3, m.DataTemplate)
	b = appendKeyValues(b, 4, m.Variables)
	return appendBool(b, 5, m.IsEvent)
}

func (m *HomeassistantServiceResponse) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	out := HomeassistantServiceResponse{Service: f.String(1), IsEvent: f.Bool(5)}
	if out.Data, err = parseKeyValues(f.Repeated(2)); err != nil {
		return err
	}
	if out.DataTemplate, err = parseKeyValues(f.Repeated(3)); err != nil {
		return err
	}
	if out.Variables, err = parseKeyValues(f.Repeated(4)); err != nil {
		return err
	}
	*m = out
	return nil
}

type GetTimeRequest struct{ emptyBody }

func (*GetTimeRequest) Type() MessageType { return TypeGetTimeRequest }

// GetTimeResponse answers GetTimeRequest with the current Unix time.
type GetTimeResponse struct {
	EpochSeconds uint32
}

func (*GetTimeResponse) Type() MessageType { return TypeGetTimeResponse }

func (m *GetTimeResponse) Marshal(b []byte) []byte { return appendFixed32(b, 1, m.EpochSeconds) }

func (m *GetTimeResponse) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	m.EpochSeconds = f.Fixed32(1)
	return nil
}

type SubscribeHomeAssistantStatesRequest struct{ emptyBody }

func (*SubscribeHomeAssistantStatesRequest) Type() MessageType {
	return TypeSubscribeHomeAssistantStatesRequest
}

// SubscribeHomeAssistantStateResponse asks the client to push an external state.
type SubscribeHomeAssistantStateResponse struct {
	EntityID  string
	Attribute string
	Once      bool
}

func (*SubscribeHomeAssistantStateResponse) Type() MessageType {
	return TypeSubscribeHomeAssistantStateResponse
}

func (m *SubscribeHomeAssistantStateResponse) Marshal(b []byte) []byte {
	b = appendString(b, 1, m.EntityID)
	b = appendString(b, 2, m.Attribute)
	return appendBool(b, 3, m.Once)
}

func (m *SubscribeHomeAssistantStateResponse) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	*m = SubscribeHomeAssistantStateResponse{EntityID: f.String(1), Attribute: f.String(2), Once: f.Bool(3)}
	return nil
}

// HomeAssistantStateResponse pushes an external state to the device.
type HomeAssistantStateResponse struct {
	EntityID  string
	State     string
	Attribute string
}

func (*HomeAssistantStateResponse) Type() MessageType { return TypeHomeAssistantStateResponse }

func (m *HomeAssistantStateResponse) Marshal(b []byte) []byte {
	b = appendString(b, 1, m.EntityID)
	b = appendString(b, 2, m.State)
	return appendString(b, 3, m.Attribute)
}

func (m *HomeAssistantStateResponse) Unmarshal(body []byte) error {
	f, err := ParseFields(body)
	if err != nil {
		return err
	}
	*m = HomeAssistantStateResponse{EntityID: f.String(1), State: f.String(2), Attribute: f.String(3)}
	return nil
}
