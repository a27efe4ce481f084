package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/petal-labs/toolgate/backend"
	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/lifecycle"
	"github.com/petal-labs/toolgate/mcp"
	"github.com/petal-labs/toolgate/otelobs"
)

// gatewaySetup carries everything one backend command needs to serve.
type gatewaySetup struct {
	// name identifies the server to the peer, e.g. "toolgate-sqlite".
	name    string
	version string
	adapter backend.Prober
	// register adds the backend's tools to the registry.
	register func(reg *gateway.Registry) error
	otlp     OTLPSection
}

// runGateway is the shared startup path for every backend command:
// construct adapter and registry, probe once, then serve stdio until a
// termination signal. All logging goes to stderr; stdout carries only
// protocol frames.
func runGateway(cmd *cobra.Command, setup gatewaySetup) error {
	logger := newLogger()
	slog.SetDefault(logger)

	otelShutdown, err := otelobs.SetupProviders(cmd.Context(), otelobs.ProviderConfig{
		Endpoint:    envOr("TOOLGATE_OTLP_ENDPOINT", setup.otlp.Endpoint),
		ServiceName: setup.name,
		Insecure:    setup.otlp.Insecure,
	})
	if err != nil {
		return exitError(exitStartup, "initializing telemetry: %v", err)
	}

	observer, err := otelobs.NewDispatchObserver(
		otelapi.GetMeterProvider().Meter("toolgate/gateway"),
		otelapi.GetTracerProvider().Tracer("toolgate/gateway"),
	)
	if err != nil {
		return exitError(exitStartup, "initializing dispatch observability: %v", err)
	}
	gateway.SetObserver(observer)
	defer gateway.SetObserver(nil)

	registry := gateway.NewRegistry()
	if err := setup.register(registry); err != nil {
		// Duplicate or malformed registrations abort before the transport
		// binds.
		return exitError(exitStartup, "registering tools: %v", err)
	}
	dispatcher := gateway.NewDispatcher(registry, logger)

	server, err := mcp.NewServer(mcp.ServerConfig{
		Info:       mcp.ServerInfo{Name: setup.name, Version: setup.version},
		Dispatcher: dispatcher,
		Reader:     cmd.InOrStdin(),
		Writer:     cmd.OutOrStdout(),
		Logger:     logger,
	})
	if err != nil {
		return exitError(exitStartup, "creating wire server: %v", err)
	}

	manager, err := lifecycle.NewManager(lifecycle.ManagerConfig{
		Probe: setup.adapter.Probe,
		Serve: func(ctx context.Context) error {
			logger.Info("gateway ready", "server", setup.name, "tools", registry.Len())
			return server.Serve(ctx)
		},
		Logger: logger,
	})
	if err != nil {
		return exitError(exitStartup, "creating lifecycle manager: %v", err)
	}
	manager.OnShutdown("telemetry", otelShutdown)
	manager.OnShutdown("backend", setup.adapter.Close)

	if err := manager.Run(cmd.Context()); err != nil {
		if errors.Is(err, lifecycle.ErrProbeFailed) {
			return exitError(exitStartup, "%v", err)
		}
		return exitError(exitRuntime, "%v", err)
	}
	logger.Info("gateway stopped", "server", setup.name)
	return nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(envOr("TOOLGATE_LOG_LEVEL", "")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
