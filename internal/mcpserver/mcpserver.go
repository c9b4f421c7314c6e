package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/repohealth/pkg/analyzer/health"
)

// EngineFactory builds an engine for one credential. An empty credential
// means the server's default.
type EngineFactory func(credential string) (*health.Engine, error)

// Server wraps the MCP server and registers the repository health tool.
type Server struct {
	server    *mcp.Server
	newEngine EngineFactory
}

// NewServer creates a new MCP server. Reports are built with engines from
// factory.
func NewServer(version string, factory EngineFactory) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "repohealth",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, newEngine: factory}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) engine(credential string) (*health.Engine, error) {
	if s.newEngine == nil {
		return nil, errors.New("no engine configured")
	}
	return s.newEngine(credential)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "repository_health",
		Description: describeRepositoryHealth(),
	}, s.handleRepositoryHealth)
}
