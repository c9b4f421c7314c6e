package remote

import (
	"errors"
	"testing"

	"github.com/panbanda/repohealth/pkg/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  models.RepositoryRef
	}{
		{
			name:  "simple owner/repo",
			input: "facebook/react",
			want:  models.RepositoryRef{Owner: "facebook", Name: "react"},
		},
		{
			name:  "with ref suffix",
			input: "facebook/react@v18.2.0",
			want:  models.RepositoryRef{Owner: "facebook", Name: "react", Ref: "v18.2.0"},
		},
		{
			name:  "with slashed branch ref",
			input: "owner/repo@feature/login",
			want:  models.RepositoryRef{Owner: "owner", Name: "repo", Ref: "feature/login"},
		},
		{
			name:  "host without scheme",
			input: "github.com/owner/repo",
			want:  models.RepositoryRef{Owner: "owner", Name: "repo"},
		},
		{
			name:  "https url",
			input: "https://github.com/owner/repo",
			want:  models.RepositoryRef{Owner: "owner", Name: "repo"},
		},
		{
			name:  "https url with .git and trailing slash",
			input: "https://github.com/owner/repo.git/",
			want:  models.RepositoryRef{Owner: "owner", Name: "repo"},
		},
		{
			name:  "https url with tree branch",
			input: "https://github.com/owner/repo/tree/release/1.x",
			want:  models.RepositoryRef{Owner: "owner", Name: "repo", Ref: "release/1.x"},
		},
		{
			name:  "https url with user info",
			input: "https://someone@github.com/owner/repo",
			want:  models.RepositoryRef{Owner: "owner", Name: "repo"},
		},
		{
			name:  "scp style",
			input: "git@github.com:owner/repo.git",
			want:  models.RepositoryRef{Owner: "owner", Name: "repo"},
		},
		{
			name:  "scp style with ref",
			input: "git@github.com:owner/repo.git@dev",
			want:  models.RepositoryRef{Owner: "owner", Name: "repo", Ref: "dev"},
		},
		{
			name:  "surrounding whitespace",
			input: "  owner/repo \n",
			want:  models.RepositoryRef{Owner: "owner", Name: "repo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"just-a-name",
		"example.com/repo",
		"https://github.com/owner",
		"git@github.com",
		"/",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if !errors.Is(err, ErrInvalidReference) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidReference", input, err)
			}
		})
	}
}

func TestCloneURL(t *testing.T) {
	ref := models.RepositoryRef{Owner: "owner", Name: "repo", Credential: "secret"}

	if got := CloneURL(ref, ""); got != "https://github.com/owner/repo.git" {
		t.Errorf("CloneURL() = %q", got)
	}
	if got := CloneURL(ref, "https://git.example.com/"); got != "https://git.example.com/owner/repo.git" {
		t.Errorf("CloneURL() with base = %q", got)
	}
}
