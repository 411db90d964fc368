// Package source reads source files out of a git repository's HEAD tree so a
// whole project can be scanned as fragments.
package source

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/fumiya-kume/secpatch/internal/types"
	"github.com/fumiya-kume/secpatch/pkg/errors"
)

// DefaultMaxFileSize skips generated or vendored blobs that are too large to
// be hand-written source
const DefaultMaxFileSize = 1 << 20

// Options selects which files are read
type Options struct {
	// Extensions are matched case-insensitively, with the leading dot
	Extensions  []string
	MaxFileSize int64
}

// DefaultOptions reads Java sources
func DefaultOptions() Options {
	return Options{Extensions: []string{".java"}, MaxFileSize: DefaultMaxFileSize}
}

// File is one source file at HEAD
type File struct {
	Path    string
	Content string
}

// Repository is an opened local repository
type Repository struct {
	Path       string
	Repository *git.Repository
}

// Open opens the repository containing path
func Open(repoPath string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeGit).
			WithMessage("failed to open repository").
			WithCause(err).
			WithContext("path", repoPath).
			WithSuggestion("Pass the path of a git working copy").
			Build()
	}
	return &Repository{Path: repoPath, Repository: repo}, nil
}

// Head returns the commit HEAD points at
func (r *Repository) Head() (*object.Commit, error) {
	ref, err := r.Repository.Head()
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeGit).
			WithMessage("repository has no HEAD commit").
			WithCause(err).
			WithContext("path", r.Path).
			Build()
	}

	commit, err := r.Repository.CommitObject(ref.Hash())
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeGit).
			WithMessagef("failed to read commit %s", ref.Hash()).
			WithCause(err).
			Build()
	}
	return commit, nil
}

// Files returns the matching files of the HEAD tree in path order. Binary and
// oversized blobs are skipped.
func (r *Repository) Files(opts Options) ([]File, error) {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultOptions().Extensions
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	commit, err := r.Head()
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeGit).
			WithMessage("failed to read HEAD tree").
			WithCause(err).
			Build()
	}

	var files []File
	err = tree.Files().ForEach(func(f *object.File) error {
		if !hasExtension(f.Name, opts.Extensions) || f.Size > opts.MaxFileSize {
			return nil
		}
		binary, err := f.IsBinary()
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", f.Name, err)
		}
		if binary {
			return nil
		}
		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		files = append(files, File{Path: f.Name, Content: content})
		return nil
	})
	if err != nil {
		return nil, errors.NewError(errors.ErrorTypeGit).
			WithMessage("failed to walk HEAD tree").
			WithCause(err).
			Build()
	}

	return files, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Fragments turns files into fragments; Row is the file's index
func Fragments(files []File) []types.Fragment {
	fragments := make([]types.Fragment, len(files))
	for i, f := range files {
		fragments[i] = types.Fragment{Row: i, Text: f.Content}
	}
	return fragments
}
