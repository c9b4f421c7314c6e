package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/repohealth/internal/gateway"
	"github.com/panbanda/repohealth/internal/output"
	"github.com/panbanda/repohealth/internal/testutil"
	"github.com/panbanda/repohealth/pkg/analyzer/health"
)

func testServer(t *testing.T) (*Server, *[]string) {
	t.Helper()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	gw := testutil.NewFakeGateway().Add("acme/widgets",
		testutil.NewFakeRepo(gateway.Metadata{
			FullName:      "acme/widgets",
			DefaultBranch: "main",
			Size:          4,
			PushedAt:      now,
		}).WithBranch("main", map[string]string{
			"README.md": "# Widgets\n",
			"main.go":   "package main\n\nfunc main() {}\n",
		}))

	var credentials []string
	s := NewServer("test", func(credential string) (*health.Engine, error) {
		credentials = append(credentials, credential)
		return health.New(gw, health.WithClock(func() time.Time { return now })), nil
	})
	return s, &credentials
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestServerCreation(t *testing.T) {
	s := NewServer("", nil)
	if s == nil || s.server == nil {
		t.Fatal("NewServer returned an incomplete server")
	}
	if _, err := s.engine(""); err == nil {
		t.Error("engine() without a factory should fail")
	}
}

func TestGetFormat(t *testing.T) {
	tests := []struct {
		input string
		want  output.Format
	}{
		{"", output.FormatTOON},
		{"toon", output.FormatTOON},
		{"text", output.FormatTOON},
		{"json", output.FormatJSON},
		{"yaml", output.FormatYAML},
		{"md", output.FormatMarkdown},
	}

	for _, tt := range tests {
		if got := getFormat(tt.input); got != tt.want {
			t.Errorf("getFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseRefs(t *testing.T) {
	refs, err := parseRefs([]string{"acme/widgets", "https://github.com/acme/gadgets.git"})
	if err != nil {
		t.Fatalf("parseRefs() error: %v", err)
	}
	if refs[0].FullName() != "acme/widgets" || refs[1].FullName() != "acme/gadgets" {
		t.Errorf("parseRefs() = %+v", refs)
	}

	if _, err := parseRefs(nil); err == nil {
		t.Error("parseRefs(nil) should fail")
	}
	if _, err := parseRefs(make([]string, maxRepositories+1)); err == nil {
		t.Error("parseRefs() over the limit should fail")
	}
	if _, err := parseRefs([]string{"not a repo"}); err == nil {
		t.Error("parseRefs() should reject malformed references")
	}
}

func TestHandleRepositoryHealthJSON(t *testing.T) {
	s, credentials := testServer(t)

	res, _, err := s.handleRepositoryHealth(context.Background(), nil, RepositoryHealthInput{
		Repositories: []string{"acme/widgets"},
		Token:        "secret",
		Format:       "json",
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text(t, res))
	}

	var report map[string]any
	if err := json.Unmarshal([]byte(text(t, res)), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report["repository"] != "acme/widgets" {
		t.Errorf("repository = %v", report["repository"])
	}
	if _, ok := report["qualityScore"]; !ok {
		t.Error("report should carry qualityScore")
	}
	if strings.Contains(text(t, res), "secret") {
		t.Error("the credential must never appear in output")
	}
	if len(*credentials) != 1 || (*credentials)[0] != "secret" {
		t.Errorf("factory credentials = %v", *credentials)
	}
}

func TestHandleRepositoryHealthPartialFailure(t *testing.T) {
	s, _ := testServer(t)

	res, _, err := s.handleRepositoryHealth(context.Background(), nil, RepositoryHealthInput{
		Repositories: []string{"acme/widgets", "acme/missing"},
		Format:       "markdown",
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Error("a partial failure should not be a tool error")
	}
	out := text(t, res)
	if !strings.Contains(out, "## acme/widgets") || !strings.Contains(out, "## acme/missing") {
		t.Errorf("markdown output missing a repository:\n%s", out)
	}
}

func TestHandleRepositoryHealthAllFail(t *testing.T) {
	s, _ := testServer(t)

	res, _, err := s.handleRepositoryHealth(context.Background(), nil, RepositoryHealthInput{
		Repositories: []string{"acme/missing"},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Error("every repository failing should be a tool error")
	}
	if !strings.Contains(text(t, res), "not_found") {
		t.Errorf("output should name the error kind:\n%s", text(t, res))
	}
}

func TestHandleRepositoryHealthBadInput(t *testing.T) {
	s, _ := testServer(t)

	res, _, err := s.handleRepositoryHealth(context.Background(), nil, RepositoryHealthInput{})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError || !strings.HasPrefix(text(t, res), "Error: ") {
		t.Errorf("expected a tool error, got %+v", res)
	}
}

func TestHandleRepositoryHealthFactoryError(t *testing.T) {
	s := NewServer("test", func(string) (*health.Engine, error) {
		return nil, errors.New("unknown gateway kind")
	})

	res, _, err := s.handleRepositoryHealth(context.Background(), nil, RepositoryHealthInput{
		Repositories: []string{"acme/widgets"},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError || !strings.Contains(text(t, res), "unknown gateway kind") {
		t.Errorf("expected factory error, got %+v", res)
	}
}

func TestParseFrontmatter(t *testing.T) {
	content := []byte("---\ndescription: Review it.\narguments:\n  - name: repository\n    required: true\n---\nCheck {{repository}}.\n")

	fm, body := parseFrontmatter(content)
	if fm.Description != "Review it." {
		t.Errorf("Description = %q", fm.Description)
	}
	if len(fm.Arguments) != 1 || fm.Arguments[0].Name != "repository" || !fm.Arguments[0].Required {
		t.Errorf("Arguments = %+v", fm.Arguments)
	}
	if body != "Check {{repository}}.\n" {
		t.Errorf("body = %q", body)
	}

	fm, body = parseFrontmatter([]byte("plain text"))
	if fm.Description != "" || body != "plain text" {
		t.Errorf("no frontmatter: %+v %q", fm, body)
	}
}

func TestSubstituteArg(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		args     map[string]string
		def      string
		expected string
	}{
		{"use provided value", "top {{count}} items", map[string]string{"count": "5"}, "3", "top 5 items"},
		{"use default when missing", "top {{count}} items", map[string]string{}, "3", "top 3 items"},
		{"use default when empty", "top {{count}} items", map[string]string{"count": ""}, "3", "top 3 items"},
		{"no placeholder unchanged", "nothing here", map[string]string{"count": "5"}, "3", "nothing here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := substituteArg(tt.text, "count", tt.args, tt.def); got != tt.expected {
				t.Errorf("substituteArg() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEmbeddedPrompts(t *testing.T) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no prompts embedded")
	}

	for _, entry := range entries {
		t.Run(entry.Name(), func(t *testing.T) {
			content, err := promptFiles.ReadFile("prompts/" + entry.Name())
			if err != nil {
				t.Fatalf("ReadFile() error: %v", err)
			}
			fm, body := parseFrontmatter(content)
			if fm.Description == "" {
				t.Error("prompt description is empty")
			}
			if !strings.Contains(body, "repository_health") {
				t.Error("prompt should direct the model to the repository_health tool")
			}

			result, err := makePromptHandler(fm, body)(context.Background(), &mcp.GetPromptRequest{
				Params: &mcp.GetPromptParams{Arguments: map[string]string{"repository": "acme/widgets", "repositories": "acme/a, acme/b"}},
			})
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			msg := result.Messages[0].Content.(*mcp.TextContent).Text
			if strings.Contains(msg, "{{") {
				t.Errorf("unsubstituted placeholder in %q", msg)
			}
		})
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatalf("GenerateManifest() error: %v", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid manifest JSON: %v", err)
	}
	if m.Version != "1.2.3" {
		t.Errorf("Version = %q", m.Version)
	}
	if m.Packages[0].Identifier != "ghcr.io/panbanda/repohealth:1.2.3" {
		t.Errorf("Identifier = %q", m.Packages[0].Identifier)
	}
	if !m.Packages[0].EnvironmentVariables[0].IsSecret {
		t.Error("GITHUB_TOKEN should be marked secret")
	}
}
