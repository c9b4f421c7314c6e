package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/repohealth/pkg/config"
	"github.com/panbanda/repohealth/pkg/models"
)

func blob(path string, size int64) models.FileEntry {
	return models.FileEntry{Path: path, Kind: models.EntryBlob, Size: size}
}

func dir(path string) models.FileEntry {
	return models.FileEntry{Path: path, Kind: models.EntryTree}
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	require.NotNil(t, s)
	assert.NotNil(t, s.config)
	assert.True(t, s.IsSource("main.go"))
}

func TestIsExcluded(t *testing.T) {
	s := NewScanner(config.DefaultConfig())

	tests := []struct {
		path string
		want bool
	}{
		{"vendor/pkg/file.go", true},
		{"src/node_modules/pkg/index.js", true},
		{"app.min.js", true},
		{"web/static/app.min.js", true},
		{"go.sum", true},
		{"yarn.lock", true},
		{"main.go", false},
		{"pkg/vendor_utils.go", false},
		{"build.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsExcluded(tt.path, false))
		})
	}
}

func TestWithGitignore(t *testing.T) {
	s := NewScanner(config.DefaultConfig()).WithGitignore([]byte("# generated\n*.pb.go\n/gen/\n\n"))

	assert.True(t, s.IsExcluded("api/service.pb.go", false))
	assert.True(t, s.IsExcluded("gen/models.go", false))
	assert.False(t, s.IsExcluded("api/service.go", false))
}

func TestIsSource(t *testing.T) {
	s := NewScanner(config.DefaultConfig())

	for _, p := range []string{"main.go", "App.TSX", "lib.rs", "script.py", "Main.kt", "build.sh"} {
		assert.True(t, s.IsSource(p), p)
	}
	for _, p := range []string{"README.md", "data.json", "Makefile", "logo.png"} {
		assert.False(t, s.IsSource(p), p)
	}
}

func TestIsDocumentation(t *testing.T) {
	assert.True(t, IsDocumentation("README.md"))
	assert.True(t, IsDocumentation("docs/guide.rst"))
	assert.True(t, IsDocumentation("LICENSE"))
	assert.True(t, IsDocumentation("CHANGELOG.md"))
	assert.False(t, IsDocumentation("main.go"))
	assert.False(t, IsDocumentation("package.json"))
}

func TestIsTestFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"pkg/foo_test.go", true},
		{"src/app.test.ts", true},
		{"src/app.spec.js", true},
		{"test_utils.py", true},
		{"src/FooTest.java", true},
		{"tests/helpers.py", true},
		{"src/__tests__/x.js", true},
		{"src/latest.go", false},
		{"src/Contest.java", false},
		{"main.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTestFile(tt.path))
		})
	}
}

func TestClassify(t *testing.T) {
	s := NewScanner(config.DefaultConfig())

	c := s.Classify([]models.FileEntry{
		blob("README.md", 100),
		dir("docs"),
		blob("docs/index.md", 50),
		dir("src"),
		blob("src/small.go", 10),
		blob("src/big.go", 900),
		blob("src/also_big.go", 900),
		dir("vendor"),
		blob("vendor/lib/lib.go", 5000),
		blob("package.json", 20),
	})

	assert.Len(t, c.Blobs, 7)
	assert.Equal(t, 1, c.Excluded)
	assert.True(t, c.HasReadme)
	assert.True(t, c.HasDocsDir)
	assert.False(t, c.AllDocumentation)

	paths := make([]string, len(c.Source))
	for i, e := range c.Source {
		paths[i] = e.Path
	}
	assert.Equal(t, []string{"src/also_big.go", "src/big.go", "src/small.go"}, paths)
}

func TestClassify_NestedReadmeIsNotRoot(t *testing.T) {
	c := NewScanner(nil).Classify([]models.FileEntry{
		blob("pkg/README.md", 10),
		blob("notes.txt", 10),
	})

	assert.False(t, c.HasReadme)
	assert.False(t, c.HasDocsDir)
	assert.True(t, c.AllDocumentation)
	assert.Empty(t, c.Source)
}

func TestClassify_DocsDirWithoutTreeEntries(t *testing.T) {
	c := NewScanner(nil).Classify([]models.FileEntry{
		blob("docs/setup.md", 10),
	})
	assert.True(t, c.HasDocsDir)
}
