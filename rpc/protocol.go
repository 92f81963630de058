package rpc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Version is the JSON-RPC protocol version used on the wire.
const Version = "2.0"

// Inbound method names (debug adapter → bridge).
const (
	MethodStopMonitoringLogCat   = "stopMonitoringLogCat"
	MethodGetPackagerPort        = "getPackagerPort"
	MethodSendTelemetry          = "sendTelemetry"
	MethodOpenFileAtLocation     = "openFileAtLocation"
	MethodShowInformationMessage = "showInformationMessage"
	MethodShowDevMenu            = "showDevMenu"
	MethodReloadApp              = "reloadApp"
	MethodLaunch                 = "launch"
)

// Outbound notification names (bridge → debug adapter). These are commands
// directed at the adapter, not acknowledgements.
const (
	NotificationShowDevMenu = "emitShowDevMenu"
	NotificationReloadApp   = "emitReloadApp"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Message is the JSON-RPC 2.0 envelope. A message with both Method and ID
// is a request; Method without ID is a notification; ID with Result or
// Error is a response.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsRequest reports whether the message expects a response.
func (m *Message) IsRequest() bool {
	return m.Method != "" && m.ID != nil
}

// IsNotification reports whether the message is fire-and-forget.
func (m *Message) IsNotification() bool {
	return m.Method != "" && m.ID == nil
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// StringList accepts either a JSON string or a JSON array of strings on
// the wire. The array form is joined with single spaces; the scalar form
// passes through unchanged.
type StringList string

// UnmarshalJSON decodes a string or string array.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var scalar string
	if err := json.Unmarshal(data, &scalar); err == nil {
		*s = StringList(scalar)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or string array, got %s", data)
	}
	*s = StringList(strings.Join(list, " "))
	return nil
}

// MarshalJSON encodes the joined form.
func (s StringList) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// LaunchRequest is the wire shape of the launch method's parameters.
// Optional fields that are absent must not overwrite settings defaults,
// so the merge layer checks for zero values before applying them.
type LaunchRequest struct {
	Platform        string     `json:"platform"`
	Target          string     `json:"target,omitempty"`
	RunArguments    []string   `json:"runArguments,omitempty"`
	LogCatArguments StringList `json:"logCatArguments,omitempty"`
	Variant         string     `json:"variant,omitempty"`
	Scheme          string     `json:"scheme,omitempty"`
}

// Validate checks required fields.
func (r *LaunchRequest) Validate() error {
	if r.Platform == "" {
		return fmt.Errorf("launch request missing platform")
	}
	return nil
}

// DeviceParams carries the optional device ID for showDevMenu, reloadApp,
// and their outbound notifications.
type DeviceParams struct {
	DeviceID string `json:"deviceId,omitempty"`
}

// OpenFileParams locates a document position. LineNumber is 1-based.
type OpenFileParams struct {
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
}

// Validate checks required fields.
func (p *OpenFileParams) Validate() error {
	if p.FilePath == "" {
		return fmt.Errorf("openFileAtLocation missing filePath")
	}
	if p.LineNumber < 1 {
		return fmt.Errorf("openFileAtLocation line number must be 1-based, got %d", p.LineNumber)
	}
	return nil
}

// ShowMessageParams carries the message text for showInformationMessage.
type ShowMessageParams struct {
	Message string `json:"message"`
}

// TelemetryParams is the wire shape of sendTelemetry's parameters.
type TelemetryParams struct {
	ExtensionID      string             `json:"extensionId"`
	ExtensionVersion string             `json:"extensionVersion"`
	AppInsightsKey   string             `json:"appInsightsKey"`
	EventName        string             `json:"eventName"`
	Properties       map[string]string  `json:"properties,omitempty"`
	Measures         map[string]float64 `json:"measures,omitempty"`
}

// PackagerPortResult is getPackagerPort's response payload.
type PackagerPortResult struct {
	Port int `json:"port"`
}
