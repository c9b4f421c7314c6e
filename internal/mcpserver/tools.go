package mcpserver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/repohealth/internal/output"
	"github.com/panbanda/repohealth/internal/remote"
	"github.com/panbanda/repohealth/pkg/models"
)

// maxRepositories bounds one tool call.
const maxRepositories = 20

// RepositoryHealthInput is the input of the repository_health tool.
type RepositoryHealthInput struct {
	Repositories []string `json:"repositories" jsonschema:"Repositories to analyze as owner/name, owner/name@branch or a repository URL."`
	Token        string   `json:"token,omitempty" jsonschema:"Access token for private repositories. Defaults to the server's token."`
	Format       string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, or markdown."`
}

func getFormat(format string) output.Format {
	switch output.ParseFormat(format) {
	case output.FormatJSON:
		return output.FormatJSON
	case output.FormatMarkdown:
		return output.FormatMarkdown
	case output.FormatYAML:
		return output.FormatYAML
	default:
		return output.FormatTOON
	}
}

func formatOutput(reports *output.Reports, format output.Format) (string, error) {
	if format == output.FormatMarkdown {
		var buf bytes.Buffer
		if err := reports.RenderMarkdown(&buf); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	return output.Marshal(reports.RenderData(), format)
}

func toolResult(text string, isError bool) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: isError,
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return toolResult("Error: "+msg, true)
}

func parseRefs(inputs []string) ([]models.RepositoryRef, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("at least one repository is required")
	}
	if len(inputs) > maxRepositories {
		return nil, fmt.Errorf("at most %d repositories per call, got %d", maxRepositories, len(inputs))
	}
	refs := make([]models.RepositoryRef, 0, len(inputs))
	for _, in := range inputs {
		ref, err := remote.Parse(in)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *Server) handleRepositoryHealth(ctx context.Context, req *mcp.CallToolRequest, input RepositoryHealthInput) (*mcp.CallToolResult, any, error) {
	refs, err := parseRefs(input.Repositories)
	if err != nil {
		return toolError(err.Error())
	}

	engine, err := s.engine(input.Token)
	if err != nil {
		return toolError(err.Error())
	}

	reports := output.NewReports(engine.BuildReports(ctx, refs))
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	text, err := formatOutput(reports, getFormat(input.Format))
	if err != nil {
		return toolError(err.Error())
	}
	// Only a total failure is a tool error; partial failures are in the text.
	return toolResult(text, reports.Failed() == len(reports.Entries))
}
