// Package tools exposes Linear operations as MCP tools. Handlers resolve
// human references through the resolve package and then issue exactly one
// mutation or query.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"linearmcp/internal/resolve"
)

// Handler is the signature every tool implements. args is the raw argument
// object of the call.
type Handler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// Registration pairs a tool schema with its handler.
type Registration struct {
	Name    string
	Schema  mcp.Tool
	Handler Handler
}

// Toolset holds what tool handlers need. It carries no per-call state.
type Toolset struct {
	q        resolve.Querier
	resolver *resolve.Resolver
	Logger   logrus.FieldLogger
	// Now is the clock used for "today" computations.
	Now func() time.Time
}

// New returns a toolset backed by q.
func New(q resolve.Querier, logger logrus.FieldLogger) *Toolset {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := resolve.New(q)
	r.Logger = logger
	return &Toolset{q: q, resolver: r, Logger: logger, Now: time.Now}
}

// Registrations lists every tool in a stable order.
func (t *Toolset) Registrations() []Registration {
	var regs []Registration
	regs = append(regs, t.issueTools()...)
	regs = append(regs, t.listTools()...)
	regs = append(regs, t.webhookTools()...)
	return regs
}

// Lookup finds a registration by tool name.
func (t *Toolset) Lookup(name string) (Registration, bool) {
	for _, reg := range t.Registrations() {
		if reg.Name == name {
			return reg, true
		}
	}
	return Registration{}, false
}

// Register adds every tool to s.
func (t *Toolset) Register(s *server.MCPServer) {
	for _, reg := range t.Registrations() {
		s.AddTool(reg.Schema, t.wrap(reg))
	}
}

// NewServer builds an MCP server carrying the whole toolset.
func (t *Toolset) NewServer(name, version string) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	t.Register(s)
	return s
}

// wrap adapts a Handler to mcp-go and turns returned errors into tool error
// results so the agent sees the reference that failed.
func (t *Toolset) wrap(reg Registration) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		log := t.Logger.WithField("tool", reg.Name)
		res, err := reg.Handler(ctx, req.GetArguments())
		if err != nil {
			log.WithError(err).WithField("not_found", errors.Is(err, resolve.ErrNotFound)).Info("tool failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		log.WithField("elapsed", time.Since(start)).Debug("tool ok")
		return res, nil
	}
}

// ToJSON renders v as indented JSON without HTML escaping.
func ToJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal JSON: %v"}`, err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func success(v any) *mcp.CallToolResult {
	return mcp.NewToolResultText(ToJSON(v))
}

// invalidArgument reports a malformed call.
type invalidArgument struct {
	name, reason string
}

func (e invalidArgument) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.name, e.reason)
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

func requiredString(args map[string]any, name string) (string, error) {
	s := stringArg(args, name)
	if s == "" {
		return "", invalidArgument{name, "required"}
	}
	return s, nil
}

// stringsArg accepts a JSON array of strings; a lone string counts as one
// element.
func stringsArg(args map[string]any, name string) ([]string, error) {
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalidArgument{name, fmt.Sprintf("element %d is not a string", i)}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, invalidArgument{name, "expected an array of strings"}
	}
}

func boolArg(args map[string]any, name string, def bool) bool {
	if b, ok := args[name].(bool); ok {
		return b
	}
	return def
}

// intArg returns the integer value of name and whether it was supplied.
func intArg(args map[string]any, name string) (int, bool, error) {
	switch v := args[name].(type) {
	case nil:
		return 0, false, nil
	case float64:
		if v != float64(int(v)) {
			return 0, false, invalidArgument{name, "must be an integer"}
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false, invalidArgument{name, "must be an integer"}
		}
		return int(n), true, nil
	default:
		return 0, false, invalidArgument{name, "must be a number"}
	}
}
