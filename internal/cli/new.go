package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opencode-ai/promptctl/internal/prompt"
	"github.com/opencode-ai/promptctl/internal/vars"
)

const defaultNewBody = "{{.input}}\n"

var (
	newOutput      string
	newDescription string
	newBody        string
	newForce       bool
)

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().StringVarP(&newOutput, "output", "o", "", "file to write (default templates/NAME.yaml)")
	newCmd.Flags().StringVarP(&newDescription, "description", "d", "", "template description")
	newCmd.Flags().StringVar(&newBody, "template", "", "template body; variables are declared from its references")
	newCmd.Flags().BoolVar(&newForce, "force", false, "overwrite an existing file")
}

var newCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Create a template file",
	Long: `Create a template file. Every variable the body references is declared;
interactively you are asked for each one's type and description, otherwise
they are declared as required strings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		name := strings.TrimSpace(args[0])

		path := newOutput
		if path == "" {
			path = filepath.Join("templates", name+".yaml")
		}
		if _, err := os.Stat(path); err == nil && !newForce {
			return &PreflightError{
				Message:  fmt.Sprintf("%s already exists", path),
				Hint:     "Pass --force to overwrite or --output to choose another file",
				NextStep: "prompt new " + name + " --force",
			}
		}

		def := &prompt.Definition{
			Name:        name,
			Description: newDescription,
			Version:     prompt.DefaultVersion,
			Template:    newBody,
		}

		var err error
		if IsInteractive() {
			err = fillInteractively(ctx, driverFactory(cmd.ErrOrStderr()), def)
		} else {
			err = fillFromReferences(def)
		}
		if errors.Is(err, vars.ErrAborted) {
			return &ExitError{Code: 130, Err: err}
		}
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(def)
		if err != nil {
			return fmt.Errorf("encode template: %w", err)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write template: %w", err)
		}
		def.Source = path

		report := prompt.Validate(def)
		out := cmd.OutOrStdout()
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(out, ValidationResult{Target: path, Source: path, Report: report})
		}
		writeCreated(out, path, report)
		return nil
	},
}

func fillFromReferences(def *prompt.Definition) error {
	if def.Template == "" {
		def.Template = defaultNewBody
	}
	names, err := referencedNames(def.Template)
	if err != nil {
		return err
	}
	for _, name := range names {
		def.Variables = append(def.Variables, prompt.Variable{Name: name, Type: prompt.TypeString, Required: true})
	}
	return nil
}

func fillInteractively(ctx context.Context, driver vars.PromptDriver, def *prompt.Definition) error {
	if def.Description == "" {
		desc, err := driver.Input(ctx, vars.InputConfig{Message: "Description"})
		if err != nil {
			return err
		}
		def.Description = strings.TrimSpace(desc)
	}
	if def.Template == "" {
		body, err := driver.Input(ctx, vars.InputConfig{
			Message: "Template body",
			Default: strings.TrimSpace(defaultNewBody),
			Help:    "Reference variables as {{.name}}",
			Validator: func(s string) error {
				_, err := prompt.Inspect(s)
				return err
			},
		})
		if err != nil {
			return err
		}
		def.Template = body
	}

	names, err := referencedNames(def.Template)
	if err != nil {
		return err
	}
	typeNames := make([]string, 0, len(prompt.VariableTypes))
	for _, t := range prompt.VariableTypes {
		typeNames = append(typeNames, string(t))
	}
	for _, name := range names {
		if err := driver.Info(ctx, "Variable "+name); err != nil {
			return err
		}
		idx, err := driver.Select(ctx, vars.SelectConfig{Message: "Type", Options: typeNames})
		if err != nil {
			return err
		}
		required, err := driver.Confirm(ctx, vars.ConfirmConfig{Message: "Required?", Default: true})
		if err != nil {
			return err
		}
		desc, err := driver.Input(ctx, vars.InputConfig{Message: "Description"})
		if err != nil {
			return err
		}
		def.Variables = append(def.Variables, prompt.Variable{
			Name:        name,
			Type:        prompt.VariableTypes[idx],
			Required:    required,
			Description: strings.TrimSpace(desc),
		})
	}
	return nil
}

func referencedNames(body string) ([]string, error) {
	info, err := prompt.Inspect(body)
	if err != nil {
		return nil, err
	}
	return info.Names(), nil
}

func writeCreated(out io.Writer, path string, report *prompt.Report) {
	fmt.Fprintf(out, "Created %s\n", path)
	for _, issue := range report.Errors {
		fmt.Fprintf(out, "  %s\n", formatIssue(issue))
	}
	for _, issue := range report.Warnings {
		fmt.Fprintf(out, "  %s\n", formatIssue(issue))
	}
	fmt.Fprintf(out, "Edit the file, then run 'prompt validate %s'.\n", path)
}
