package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rbergman/mobilebridge/editor"
	"github.com/rbergman/mobilebridge/settings"
	"github.com/rbergman/mobilebridge/telemetry"
)

// Collaborators are the external surfaces the inbound methods call
// through. Launch is the orchestrator entry point; it is a function so
// the channel package stays independent of launch sequencing.
type Collaborators struct {
	Settings  *settings.Settings
	Telemetry telemetry.Sink
	Documents editor.DocumentService
	Launch    func(ctx context.Context, req LaunchRequest) error
}

// RegisterMethods populates the channel's method table with the full
// inbound surface. Must be called before Channel.Start.
func RegisterMethods(ch *Channel, c Collaborators) error {
	handlers := map[string]Handler{
		MethodStopMonitoringLogCat: func(ctx context.Context, params json.RawMessage) (any, error) {
			return nil, ch.Monitors().Stop()
		},

		MethodGetPackagerPort: func(ctx context.Context, params json.RawMessage) (any, error) {
			return PackagerPortResult{Port: c.Settings.GetPackagerPort()}, nil
		},

		MethodSendTelemetry: func(ctx context.Context, params json.RawMessage) (any, error) {
			var p TelemetryParams
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("invalid telemetry params: %w", err)
			}
			return nil, c.Telemetry.SendExtensionTelemetry(telemetry.Event{
				ExtensionID:      p.ExtensionID,
				ExtensionVersion: p.ExtensionVersion,
				AppInsightsKey:   p.AppInsightsKey,
				EventName:        p.EventName,
				Properties:       p.Properties,
				Measures:         p.Measures,
			})
		},

		MethodOpenFileAtLocation: func(ctx context.Context, params json.RawMessage) (any, error) {
			var p OpenFileParams
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("invalid openFileAtLocation params: %w", err)
			}
			if err := p.Validate(); err != nil {
				return nil, err
			}
			return nil, c.Documents.OpenFileAtLocation(p.FilePath, p.LineNumber)
		},

		MethodShowInformationMessage: func(ctx context.Context, params json.RawMessage) (any, error) {
			var p ShowMessageParams
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("invalid showInformationMessage params: %w", err)
			}
			return nil, c.Documents.ShowInformationMessage(p.Message)
		},

		MethodShowDevMenu: func(ctx context.Context, params json.RawMessage) (any, error) {
			var p DeviceParams
			if len(params) > 0 {
				if err := json.Unmarshal(params, &p); err != nil {
					return nil, fmt.Errorf("invalid showDevMenu params: %w", err)
				}
			}
			return nil, ch.Notify(NotificationShowDevMenu, p)
		},

		MethodReloadApp: func(ctx context.Context, params json.RawMessage) (any, error) {
			var p DeviceParams
			if len(params) > 0 {
				if err := json.Unmarshal(params, &p); err != nil {
					return nil, fmt.Errorf("invalid reloadApp params: %w", err)
				}
			}
			return nil, ch.Notify(NotificationReloadApp, p)
		},

		MethodLaunch: func(ctx context.Context, params json.RawMessage) (any, error) {
			var req LaunchRequest
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, fmt.Errorf("invalid launch params: %w", err)
			}
			if err := req.Validate(); err != nil {
				return nil, err
			}
			return nil, c.Launch(ctx, req)
		},
	}

	for method, handler := range handlers {
		if err := ch.Register(method, handler); err != nil {
			return err
		}
	}
	return nil
}
