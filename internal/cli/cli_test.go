package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/promptctl/internal/vars"
)

const greetTemplate = `name: greet
description: Greets someone
tags: [demo]
variables:
  - name: name
    description: Who to greet
  - name: style
    description: Tone
    default: formal
    enum: [formal, casual]
  - name: count
    type: integer
    description: Repeat count
    default: 1
template: "{{if eq .style \"formal\"}}Hello{{else}}Hi{{end}}, {{.name}}! x{{.count}}"
`

type testEnv struct {
	dir       string
	templates string
}

// newTestEnv isolates config, data and working directories and writes the
// greet template into a project templates directory.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", filepath.Join(root, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("NO_COLOR", "1")
	t.Setenv("PROMPT_NO_PROGRESS", "1")

	work := filepath.Join(root, "work")
	tmplDir := filepath.Join(work, "templates")
	require.NoError(t, os.MkdirAll(tmplDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmplDir, "greet.yaml"), []byte(greetTemplate), 0o644))
	origWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(work))
	t.Cleanup(func() { _ = os.Chdir(origWD) })

	origTTY := ttyCheck
	ttyCheck = func() bool { return false }
	t.Cleanup(func() { ttyCheck = origTTY })

	return &testEnv{dir: work, templates: tmplDir}
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes the root command with fresh flag state.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func setDriver(t *testing.T, driver *fakeDriver) {
	t.Helper()
	origTTY, origFactory := ttyCheck, driverFactory
	ttyCheck = func() bool { return true }
	driverFactory = func(_ io.Writer) vars.PromptDriver { return driver }
	t.Cleanup(func() {
		ttyCheck = origTTY
		driverFactory = origFactory
	})
}

type fakeDriver struct {
	inputs   []string
	confirms []bool
	selects  []int
	asked    []string
}

func (f *fakeDriver) Input(_ context.Context, cfg vars.InputConfig) (string, error) {
	f.asked = append(f.asked, cfg.Message)
	answer := f.inputs[0]
	f.inputs = f.inputs[1:]
	return answer, nil
}

func (f *fakeDriver) Confirm(_ context.Context, cfg vars.ConfirmConfig) (bool, error) {
	f.asked = append(f.asked, cfg.Message)
	answer := f.confirms[0]
	f.confirms = f.confirms[1:]
	return answer, nil
}

func (f *fakeDriver) Select(_ context.Context, cfg vars.SelectConfig) (int, error) {
	f.asked = append(f.asked, cfg.Message)
	answer := f.selects[0]
	f.selects = f.selects[1:]
	return answer, nil
}

func (f *fakeDriver) Info(context.Context, string) error {
	return nil
}
