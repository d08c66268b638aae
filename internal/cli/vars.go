package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opencode-ai/promptctl/internal/vars"
)

// gatherVariables merges a variables file with --var assignments, the
// assignments taking precedence. "@path" values in the file resolve against
// the file's directory; those on the command line against the working
// directory.
func gatherVariables(assignments []string, file string) (map[string]any, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	var fromFile map[string]any
	if file != "" {
		loaded, err := vars.LoadFile(file)
		if err != nil {
			return nil, err
		}
		fromFile, err = vars.ExpandFileRefs(loaded, filepath.Dir(file))
		if err != nil {
			return nil, err
		}
	}

	parsed, err := vars.ParseAssignments(assignments)
	if err != nil {
		return nil, err
	}
	fromFlags, err := vars.ExpandFileRefs(parsed, cwd)
	if err != nil {
		return nil, err
	}
	return vars.Merge(fromFile, fromFlags), nil
}
