// Package lore injects worldbook files into a turn's prompt context.
package lore

import (
	"fmt"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Opts for lore injection.
type InjectionOpts struct {
	Files          []string
	FileExtensions []string
}

// Entry represents a parsed lorebook file.
type Entry struct {
	Path    string
	Content []byte
}

// GetOpts on the given command.
func GetOpts(cmd *cobra.Command) *InjectionOpts {
	opts := &InjectionOpts{}
	cmd.Flags().StringSliceVar(&opts.Files, "lore", nil, "specify lorebook files to inject into the context")
	cmd.Flags().StringSliceVar(&opts.FileExtensions, "ext", nil, "specify file extensions to accept")
	return opts
}

// Parse lore entries.
func Parse(opts *InjectionOpts) ([]*Entry, error) {
	entries := []*Entry{}
	parseFileFn := func(filepath string) error {
		if !hasValidExtension(filepath, opts.FileExtensions) {
			return nil
		}
		bytes, err := os.ReadFile(filepath)
		if err != nil {
			return errors.Wrap(err, "reading lore file")
		}
		entries = append(entries, &Entry{Path: filepath, Content: bytes})
		return nil
	}
	for _, file := range opts.Files {
		if err := smartParse(file, parseFileFn); err != nil {
			return nil, errors.Wrapf(err, "smartParse (%s)", file)
		}
	}
	return entries, nil
}

// SystemBlock renders an entry as a system prompt block.
func (e *Entry) SystemBlock() string {
	return fmt.Sprintf("Worldbook (%s):\n%s", filepath.Base(e.Path), string(e.Content))
}

// smartParse understands '/...' logic.
func smartParse(filepath string, parseFileFn func(filepath string) error) error {
	// Expand the path to escape `~`.
	filepath, err := expandPath(filepath)
	if err != nil {
		return errors.Wrap(err, "expanding path")
	}
	// Here we remove the "/..." if there is one, and record whether it existed.
	filepath, recurse := strings.CutSuffix(filepath, "/...")

	fileInfo, err := os.Stat(filepath)
	if err != nil {
		return errors.Wrap(err, "getting os stats")
	}
	if !fileInfo.IsDir() {
		if recurse {
			return errors.New("cannot recurse on a file")
		}
		if err := parseFileFn(filepath); err != nil {
			return errors.Wrap(err, "parseFileFn")
		}
		return nil
	}

	// It is a directory.
	directory := filepath
	dirEntries, err := os.ReadDir(directory)
	if err != nil {
		return errors.Wrap(err, "reading directory")
	}
	for _, dirEntry := range dirEntries {
		dirEntryInfo, err := dirEntry.Info()
		if err != nil {
			return errors.Wrapf(err, "reading dir entry (%+v)", dirEntry)
		}
		if dirEntry.IsDir() {
			if recurse {
				filepath := path.Join(directory, dirEntryInfo.Name()) + "/..."
				if err := smartParse(filepath, parseFileFn); err != nil {
					return errors.Wrapf(err, "smartParse (%s)", filepath)
				}
			}
			continue
		}
		filepath := path.Join(directory, dirEntryInfo.Name())
		if err := parseFileFn(filepath); err != nil {
			return errors.Wrapf(err, "parseFileFn (%s)", filepath)
		}
	}
	return nil
}

func hasValidExtension(filepath string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	for _, extension := range extensions {
		if strings.HasSuffix(filepath, "."+strings.TrimPrefix(extension, ".")) {
			return true
		}
	}
	return false
}

func expandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", errors.Wrap(err, "getting current user")
	}
	return filepath.Join(usr.HomeDir, strings.TrimPrefix(p, "~")), nil
}
