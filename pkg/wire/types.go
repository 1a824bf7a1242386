package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// MessageType is the numeric discriminant carried in the packet header.
type MessageType uint32

// Protocol-management messages.
const (
	TypeHelloRequest                          MessageType = 1
	TypeHelloResponse                         MessageType = 2
	TypeConnectRequest                        MessageType = 3
	TypeConnectResponse                       MessageType = 4
	TypeDisconnectRequest                     MessageType = 5
	TypeDisconnectResponse                    MessageType = 6
	TypePingRequest                           MessageType = 7
	TypePingResponse                          MessageType = 8
	TypeDeviceInfoRequest                     MessageType = 9
	TypeDeviceInfoResponse                    MessageType = 10
	TypeListEntitiesRequest                   MessageType = 11
	TypeListEntitiesDoneResponse              MessageType = 19
	TypeSubscribeStatesRequest                MessageType = 20
	TypeSubscribeLogsRequest                  MessageType = 28
	TypeSubscribeLogsResponse                 MessageType = 29
	TypeSubscribeHomeassistantServicesRequest MessageType = 34
	TypeHomeassistantServiceResponse          MessageType = 35
	TypeGetTimeRequest                        MessageType = 36
	TypeGetTimeResponse                       MessageType = 37
	TypeSubscribeHomeAssistantStatesRequest   MessageType = 38
	TypeSubscribeHomeAssistantStateResponse   MessageType = 39
	TypeHomeAssistantStateResponse            MessageType = 40
)

// Entity enumeration responses.
const (
	TypeListEntitiesBinarySensorResponse MessageType = 12
	TypeListEntitiesCoverResponse        MessageType = 13
	TypeListEntitiesFanResponse          MessageType = 14
	TypeListEntitiesLightResponse        MessageType = 15
	TypeListEntitiesSensorResponse       MessageType = 16
	TypeListEntitiesSwitchResponse       MessageType = 17
	TypeListEntitiesTextSensorResponse   MessageType = 18
	TypeListEntitiesClimateResponse      MessageType = 46
	TypeListEntitiesNumberResponse       MessageType = 49
	TypeListEntitiesSelectResponse       MessageType = 52
	TypeListEntitiesLockResponse         MessageType = 58
	TypeListEntitiesButtonResponse       MessageType = 61
	TypeListEntitiesTextResponse         MessageType = 97
	TypeListEntitiesDateResponse         MessageType = 100
	TypeListEntitiesTimeResponse         MessageType = 103
	TypeListEntitiesDateTimeResponse     MessageType = 112
)

// Entity state responses.
const (
	TypeBinarySensorStateResponse MessageType = 21
	TypeCoverStateResponse        MessageType = 22
	TypeFanStateResponse          MessageType = 23
	TypeLightStateResponse        MessageType = 24
	TypeSensorStateResponse       MessageType = 25
	TypeSwitchStateResponse       MessageType = 26
	TypeTextSensorStateResponse   MessageType = 27
	TypeClimateStateResponse      MessageType = 47
	TypeNumberStateResponse       MessageType = 50
	TypeSelectStateResponse       MessageType = 53
	TypeLockStateResponse         MessageType = 59
	TypeTextStateResponse         MessageType = 98
	TypeDateStateResponse         MessageType = 101
	TypeTimeStateResponse         MessageType = 104
	TypeDateTimeStateResponse     MessageType = 113
)

// Entity command requests.
const (
	TypeCoverCommandRequest    MessageType = 30
	TypeFanCommandRequest      MessageType = 31
	TypeLightCommandRequest    MessageType = 32
	TypeSwitchCommandRequest   MessageType = 33
	TypeClimateCommandRequest  MessageType = 48
	TypeNumberCommandRequest   MessageType = 51
	TypeSelectCommandRequest   MessageType = 54
	TypeLockCommandRequest     MessageType = 60
	TypeButtonCommandRequest   MessageType = 62
	TypeTextCommandRequest     MessageType = 99
	TypeDateCommandRequest     MessageType = 102
	TypeTimeCommandRequest     MessageType = 105
	TypeDateTimeCommandRequest MessageType = 114
)

var typeNames = map[MessageType]string{
	TypeHelloRequest:                          "HelloRequest",
	TypeHelloResponse:                         "HelloResponse",
	TypeConnectRequest:                        "ConnectRequest",
	TypeConnectResponse:                       "ConnectResponse",
	TypeDisconnectRequest:                     "DisconnectRequest",
	TypeDisconnectResponse:                    "DisconnectResponse",
	TypePingRequest:                           "PingRequest",
	TypePingResponse:                          "PingResponse",
	TypeDeviceInfoRequest:                     "DeviceInfoRequest",
	TypeDeviceInfoResponse:                    "DeviceInfoResponse",
	TypeListEntitiesRequest:                   "ListEntitiesRequest",
	TypeListEntitiesDoneResponse:              "ListEntitiesDoneResponse",
	TypeSubscribeStatesRequest:                "SubscribeStatesRequest",
	TypeSubscribeLogsRequest:                  "SubscribeLogsRequest",
	TypeSubscribeLogsResponse:                 "SubscribeLogsResponse",
	TypeSubscribeHomeassistantServicesRequest: "SubscribeHomeassistantServicesRequest",
	TypeHomeassistantServiceResponse:          "HomeassistantServiceResponse",
	TypeGetTimeRequest:                        "GetTimeRequest",
	TypeGetTimeResponse:                       "GetTimeResponse",
	TypeSubscribeHomeAssistantStatesRequest:   "SubscribeHomeAssistantStatesRequest",
	TypeSubscribeHomeAssistantStateResponse:   "SubscribeHomeAssistantStateResponse",
	TypeHomeAssistantStateResponse:            "HomeAssistantStateResponse",

	TypeListEntitiesBinarySensorResponse: "ListEntitiesBinarySensorResponse",
	TypeListEntitiesCoverResponse:        "ListEntitiesCoverResponse",
	TypeListEntitiesFanResponse:          "ListEntitiesFanResponse",
	TypeListEntitiesLightResponse:        "ListEntitiesLightResponse",
	TypeListEntitiesSensorResponse:       "ListEntitiesSensorResponse",
	TypeListEntitiesSwitchResponse:       "ListEntitiesSwitchResponse",
	TypeListEntitiesTextSensorResponse:   "ListEntitiesTextSensorResponse",
	TypeListEntitiesClimateResponse:      "ListEntitiesClimateResponse",
	TypeListEntitiesNumberResponse:       "ListEntitiesNumberResponse",
	TypeListEntitiesSelectResponse:       "ListEntitiesSelectResponse",
	TypeListEntitiesLockResponse:         "ListEntitiesLockResponse",
	TypeListEntitiesButtonResponse:       "ListEntitiesButtonResponse",
	TypeListEntitiesTextResponse:         "ListEntitiesTextResponse",
	TypeListEntitiesDateResponse:         "ListEntitiesDateResponse",
	TypeListEntitiesTimeResponse:         "ListEntitiesTimeResponse",
	TypeListEntitiesDateTimeResponse:     "ListEntitiesDateTimeResponse",

	TypeBinarySensorStateResponse: "BinarySensorStateResponse",
	TypeCoverStateResponse:        "CoverStateResponse",
	TypeFanStateResponse:          "FanStateResponse",
	TypeLightStateResponse:        "LightStateResponse",
	TypeSensorStateResponse:       "SensorStateResponse",
	TypeSwitchStateResponse:       "SwitchStateResponse",
	TypeTextSensorStateResponse:   "TextSensorStateResponse",
	TypeClimateStateResponse:      "ClimateStateResponse",
	TypeNumberStateResponse:       "NumberStateResponse",
	TypeSelectStateResponse:       "SelectStateResponse",
	TypeLockStateResponse:         "LockStateResponse",
	TypeTextStateResponse:         "TextStateResponse",
	TypeDateStateResponse:         "DateStateResponse",
	TypeTimeStateResponse:         "TimeStateResponse",
	TypeDateTimeStateResponse:     "DateTimeStateResponse",

	TypeCoverCommandRequest:    "CoverCommandRequest",
	TypeFanCommandRequest:      "FanCommandRequest",
	TypeLightCommandRequest:    "LightCommandRequest",
	TypeSwitchCommandRequest:   "SwitchCommandRequest",
	TypeClimateCommandRequest:  "ClimateCommandRequest",
	TypeNumberCommandRequest:   "NumberCommandRequest",
	TypeSelectCommandRequest:   "SelectCommandRequest",
	TypeLockCommandRequest:     "LockCommandRequest",
	TypeButtonCommandRequest:   "ButtonCommandRequest",
	TypeTextCommandRequest:     "TextCommandRequest",
	TypeDateCommandRequest:     "DateCommandRequest",
	TypeTimeCommandRequest:     "TimeCommandRequest",
	TypeDateTimeCommandRequest: "DateTimeCommandRequest",
}

// String returns the message name, or "Unknown(<code>)" for unlisted codes.
func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint32(t))
}

// ParseMessageType accepts a type name as produced by String or a decimal
// type code.
func ParseMessageType(s string) (MessageType, error) {
	for t, name := range typeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown message type %q", s)
	}
	return MessageType(n), nil
}

// LogLevel is the device log verbosity requested with SubscribeLogsRequest.
type LogLevel uint32

// Log levels in increasing verbosity.
const (
	LogLevelNone        LogLevel = 0
	LogLevelError       LogLevel = 1
	LogLevelWarn        LogLevel = 2
	LogLevelInfo        LogLevel = 3
	LogLevelConfig      LogLevel = 4
	LogLevelDebug       LogLevel = 5
	LogLevelVerbose     LogLevel = 6
	LogLevelVeryVerbose LogLevel = 7
)

var logLevelNames = []string{"none", "error", "warn", "info", "config", "debug", "verbose", "very_verbose"}

// String returns the lower-case level name.
func (l LogLevel) String() string {
	if int(l) < len(logLevelNames) {
		return logLevelNames[l]
	}
	return "unknown"
}

// ParseLogLevel parses a level name as produced by LogLevel.String.
// The empty string parses as LogLevelNone.
func ParseLogLevel(s string) (LogLevel, error) {
	if s == "" {
		return LogLevelNone, nil
	}
	for i, name := range logLevelNames {
		if name == s {
			return LogLevel(i), nil
		}
	}
	return LogLevelNone, fmt.Errorf("unknown log level %q", s)
}
