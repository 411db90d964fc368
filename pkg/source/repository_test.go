package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fumiya-kume/secpatch/pkg/errors"
)

func initRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0600))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}

	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)
	return dir
}

func TestFiles(t *testing.T) {
	dir := initRepo(t, map[string]string{
		"src/main/java/App.java":  "class App {}",
		"src/main/java/Util.JAVA": "class Util {}",
		"README.md":               "# readme",
		"lib/blob.java":           "\x00\x01binary",
	})

	// Uncommitted files are not part of HEAD
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Draft.java"), []byte("class Draft {}"), 0600))

	repo, err := Open(dir)
	require.NoError(t, err)

	files, err := repo.Files(DefaultOptions())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "src/main/java/App.java", files[0].Path)
	assert.Equal(t, "class App {}", files[0].Content)
	assert.Equal(t, "src/main/java/Util.JAVA", files[1].Path)

	fragments := Fragments(files)
	assert.Equal(t, 1, fragments[1].Row)
	assert.Equal(t, "class Util {}", fragments[1].Text)
}

func TestFilesOptions(t *testing.T) {
	dir := initRepo(t, map[string]string{
		"App.java": "class App { /* long enough */ }",
		"a.kt":     "fun main() {}",
	})

	repo, err := Open(filepath.Join(dir, "."))
	require.NoError(t, err)

	files, err := repo.Files(Options{Extensions: []string{".kt"}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.kt", files[0].Path)

	files, err = repo.Files(Options{Extensions: []string{".java"}, MaxFileSize: 5})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeGit))

	empty := t.TempDir()
	_, err = git.PlainInit(empty, false)
	require.NoError(t, err)

	repo, err := Open(empty)
	require.NoError(t, err)
	_, err = repo.Files(DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeGit))
}
