package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/repohealth/pkg/config"
	"github.com/panbanda/repohealth/pkg/models"
)

var testRef = models.RepositoryRef{Owner: "acme", Name: "widgets"}

func newTestGitHub(t *testing.T, mux *http.ServeMux) *GitHub {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	gw, err := NewGitHub(Options{
		BaseURL:       server.URL,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		Timeout:       5 * time.Second,
	}, "test-token")
	require.NoError(t, err)
	return gw
}

func TestGitHub_Metadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{
			"full_name": "acme/widgets",
			"description": "Widgets for everyone",
			"language": "Go",
			"default_branch": "main",
			"html_url": "https://github.com/acme/widgets",
			"size": 2048,
			"open_issues_count": 7,
			"stargazers_count": 42,
			"pushed_at": "2024-05-01T10:00:00Z",
			"has_wiki": true,
			"private": false
		}`)
	})

	gw := newTestGitHub(t, mux)
	meta, err := gw.Metadata(context.Background(), testRef)
	require.NoError(t, err)

	assert.Equal(t, "acme/widgets", meta.FullName)
	assert.Equal(t, "Widgets for everyone", meta.Description)
	assert.Equal(t, "Go", meta.Language)
	assert.Equal(t, "main", meta.DefaultBranch)
	assert.Equal(t, 2048, meta.Size)
	assert.Equal(t, 7, meta.OpenIssueCount)
	assert.Equal(t, 42, meta.Stars)
	assert.True(t, meta.HasWiki)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), meta.PushedAt.UTC())
}

func TestGitHub_ErrorMapping(t *testing.T) {
	reset := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			},
			want: ErrNotFound,
		},
		{
			name: "bad credentials",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
			},
			want: ErrUnauthorized,
		},
		{
			name: "primary rate limit",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", reset)
				http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
			},
			want: ErrRateLimited,
		},
		{
			name: "too many requests",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message":"slow down"}`, http.StatusTooManyRequests)
			},
			want: ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/acme/widgets", tt.handler)
			gw := newTestGitHub(t, mux)

			_, err := gw.Metadata(context.Background(), testRef)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGitHub_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"message":"boom"}`, http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"full_name":"acme/widgets","size":1}`)
	})

	gw := newTestGitHub(t, mux)
	meta, err := gw.Metadata(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets", meta.FullName)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGitHub_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	gw := newTestGitHub(t, mux)
	_, err := gw.Metadata(context.Background(), testRef)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGitHub_Tree(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		fmt.Fprint(w, `{
			"sha": "abc123",
			"truncated": true,
			"tree": [
				{"path": "README.md", "type": "blob", "size": 120},
				{"path": "src", "type": "tree"},
				{"path": "src/main.go", "type": "blob", "size": 900},
				{"path": "vendor/lib", "type": "commit"}
			]
		}`)
	})
	mux.HandleFunc("/repos/acme/widgets/git/trees/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	gw := newTestGitHub(t, mux)

	tree, err := gw.Tree(context.Background(), testRef, "main")
	require.NoError(t, err)
	assert.Equal(t, "abc123", tree.SHA)
	assert.True(t, tree.Truncated)
	assert.Equal(t, []models.FileEntry{
		{Path: "README.md", Kind: models.EntryBlob, Size: 120},
		{Path: "src", Kind: models.EntryTree},
		{Path: "src/main.go", Kind: models.EntryBlob, Size: 900},
	}, tree.Entries)

	_, err = gw.Tree(context.Background(), testRef, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGitHub_FileContent(t *testing.T) {
	content := "package main\n\nfunc main() {}\n"
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/contents/src/main.go", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "develop", r.URL.Query().Get("ref"))
		fmt.Fprintf(w, `{"type":"file","encoding":"base64","path":"src/main.go","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte(content)))
	})

	gw := newTestGitHub(t, mux)
	got, err := gw.FileContent(context.Background(), testRef, "develop", "src/main.go")
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestGitHub_IssuesSkipsPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/issues", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "open", q.Get("state"))
		assert.Equal(t, "created", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("direction"))
		fmt.Fprint(w, `[
			{"number": 9, "title": "PR disguised as issue", "created_at": "2024-05-03T00:00:00Z",
			 "pull_request": {"url": "https://api.github.com/repos/acme/widgets/pulls/9"}},
			{"number": 8, "title": "Crash on startup", "created_at": "2024-05-02T00:00:00Z"},
			{"number": 3, "title": "Old bug", "created_at": "2024-01-02T00:00:00Z"}
		]`)
	})

	gw := newTestGitHub(t, mux)
	issues, err := gw.Issues(context.Background(), testRef, StateOpen)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "Crash on startup", issues[0].Title)
	assert.Equal(t, 8, issues[0].Number)
}

func TestGitHub_PullsOldestFirst(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "asc", r.URL.Query().Get("direction"))
		fmt.Fprint(w, `[
			{"number": 2, "title": "Add caching", "created_at": "2023-02-01T00:00:00Z", "user": {"login": "dev1"}},
			{"number": 5, "title": "Fix typo", "created_at": "2024-02-01T00:00:00Z", "user": {"login": "dev2"}}
		]`)
	})

	gw := newTestGitHub(t, mux)
	pulls, err := gw.Pulls(context.Background(), testRef, StateOpen)
	require.NoError(t, err)
	require.Len(t, pulls, 2)
	assert.Equal(t, "Add caching", pulls[0].Title)
	assert.Equal(t, "dev1", pulls[0].Author)
}

func TestGitHub_ListOwnedPaginates(t *testing.T) {
	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"name": "third", "owner": {"login": "acme"}}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/user/repos?page=2>; rel="next"`, serverURL))
		fmt.Fprint(w, `[
			{"name": "first", "owner": {"login": "acme"}},
			{"name": "second", "owner": {"login": "someone"}}
		]`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL

	gw, err := NewGitHub(Options{BaseURL: server.URL, RetryAttempts: 1}, "tok")
	require.NoError(t, err)

	refs, err := gw.ListOwned(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, "acme/first", refs[0].FullName())
	assert.Equal(t, "someone/second", refs[1].FullName())
	assert.Equal(t, "acme/third", refs[2].FullName())
	assert.Equal(t, "tok", refs[2].Credential)
}

func TestGitHub_ListOwnedRequiresCredential(t *testing.T) {
	gw, err := NewGitHub(Options{}, "")
	require.NoError(t, err)

	_, err = gw.ListOwned(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGitHub_PerRequestCredential(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer other-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"full_name":"acme/widgets"}`)
	})

	gw := newTestGitHub(t, mux)
	_, err := gw.Metadata(context.Background(), testRef.WithCredential("other-token"))
	require.NoError(t, err)
}

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig().Gateway

	gw, err := New(cfg, "tok")
	require.NoError(t, err)
	assert.IsType(t, &GitHub{}, gw)

	cfg.Kind = "git"
	gw, err = New(cfg, "tok")
	require.NoError(t, err)
	assert.IsType(t, &Git{}, gw)

	cfg.Kind = "svn"
	_, err = New(cfg, "tok")
	assert.Error(t, err)
}
