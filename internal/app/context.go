// Package app wires configuration into the running pieces: the Linear client,
// the resolver, the MCP toolset, the webhook gate and relay, and the HTTP
// handler that serves them.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"linearmcp/internal/config"
	"linearmcp/internal/linear"
	"linearmcp/internal/resolve"
	apiserver "linearmcp/internal/server"
	"linearmcp/internal/tools"
	"linearmcp/internal/webhook"
)

// App is the assembled process.
type App struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Client   *linear.Client
	Resolver *resolve.Resolver
	Tools    *tools.Toolset
	MCP      *server.MCPServer
	Gate     *webhook.Gate
	Relay    *webhook.Relay
	Webhook  *webhook.Handler
	Handler  http.Handler
}

// NewLogger builds the process logger from log.level and log.format.
func NewLogger(cfg *config.Config, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Log.Level))
	if err != nil {
		return nil, fmt.Errorf("config.log.level: %w", err)
	}
	logger.SetLevel(level)
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

// Wire assembles every component from cfg. The Linear API key is required;
// the webhook secret and forward URL are optional.
func Wire(cfg *config.Config, logger *logrus.Logger, version string) (*App, error) {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return WireWith(cfg, client, logger, version)
}

// NewClient builds the Linear client alone, for commands that only query.
func NewClient(cfg *config.Config, logger logrus.FieldLogger) (*linear.Client, error) {
	if err := cfg.RequireLinear(); err != nil {
		return nil, err
	}
	client := linear.New(cfg.Linear.GraphQLURL, cfg.Linear.APIKey)
	client.Timeout = cfg.Linear.Timeout
	client.Logger = logger.WithField("component", "linear")
	return client, nil
}

// WireWith is Wire with a prebuilt Linear data source.
func WireWith(cfg *config.Config, client *linear.Client, logger *logrus.Logger, version string) (*App, error) {
	resolver := resolve.New(client)
	resolver.Logger = logger.WithField("component", "resolve")

	toolset := tools.New(client, logger.WithField("component", "tools"))
	mcpServer := toolset.NewServer(cfg.Server.Name, version)

	webhookLog := logger.WithField("component", "webhook")
	gate := webhook.NewGate(cfg.Webhook)
	if !gate.Configured() {
		webhookLog.Warn("webhook secret not configured; every delivery will be rejected")
	}
	relay := webhook.NewRelay(cfg.Webhook, nil, webhookLog)
	hook := webhook.NewHandler(cfg.Webhook, gate, relay, webhookLog)

	handler, err := apiserver.New(apiserver.Config{
		Name:     cfg.Server.Name,
		Version:  version,
		BasePath: cfg.Server.BasePath,
		Auth:     apiserver.AuthConfig{JWTSecret: cfg.Server.JWTSecret},
		Resolver: resolver,
		MCP:      server.NewStreamableHTTPServer(mcpServer, server.WithEndpointPath(apiserver.MCPPath)),
		Webhook:  hook,
		Logger:   logger.WithField("component", "http"),
	})
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Logger:   logger,
		Client:   client,
		Resolver: resolver,
		Tools:    toolset,
		MCP:      mcpServer,
		Gate:     gate,
		Relay:    relay,
		Webhook:  hook,
		Handler:  handler,
	}, nil
}

// Drain waits for in-flight relay deliveries.
func (a *App) Drain(ctx context.Context) error {
	return a.Relay.Wait(ctx)
}
