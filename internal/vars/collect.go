package vars

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/opencode-ai/promptctl/internal/prompt"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("prompt aborted")

// InputConfig configures a text prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// ConfirmConfig configures a yes/no prompt.
type ConfirmConfig struct {
	Message string
	Default bool
	Help    string
}

// SelectConfig configures a single-choice prompt.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	Help         string
}

// PromptDriver abstracts the terminal so collection can be tested without one.
type PromptDriver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
	Info(ctx context.Context, msg string) error
}

// Collector prompts for variable values the caller did not supply.
type Collector struct {
	driver    PromptDriver
	all       bool
	delimiter string
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// PromptOptional also prompts for optional variables, offering their default.
func PromptOptional(enabled bool) CollectorOption {
	return func(c *Collector) {
		c.all = enabled
	}
}

// ListDelimiter sets the delimiter used to split list answers for variables
// that do not declare their own. It should match the one used to render.
func ListDelimiter(delim string) CollectorOption {
	return func(c *Collector) {
		c.delimiter = delim
	}
}

// NewCollector creates a collector backed by driver.
func NewCollector(driver PromptDriver, opts ...CollectorOption) *Collector {
	c := &Collector{driver: driver}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSurveyCollector creates a collector that prompts on the terminal.
func NewSurveyCollector(out io.Writer, opts ...CollectorOption) *Collector {
	return NewCollector(NewSurveyDriver(out), opts...)
}

// NewSurveyDriver returns a PromptDriver that asks on the terminal. Info
// messages go to out.
func NewSurveyDriver(out io.Writer) PromptDriver {
	if out == nil {
		out = os.Stdout
	}
	return &surveyDriver{out: out}
}

// Collect returns have extended with prompted values for every declared
// variable that have does not supply. Answers are validated with the same
// coercion the renderer uses and re-asked on failure.
func (c *Collector) Collect(ctx context.Context, def *prompt.Definition, have map[string]any) (map[string]any, error) {
	values := Merge(have)
	for _, v := range def.Variables {
		if current, ok := values[v.Name]; ok && current != nil {
			continue
		}
		if !v.Required && !c.all {
			continue
		}
		value, err := c.ask(ctx, v)
		if err != nil {
			return nil, err
		}
		if value != nil {
			values[v.Name] = value
		}
	}
	return values, nil
}

func (c *Collector) ask(ctx context.Context, v prompt.Variable) (any, error) {
	message := v.Name
	if v.Description != "" {
		message = fmt.Sprintf("%s (%s)", v.Name, v.Description)
	}

	switch {
	case len(v.Enum) > 0:
		options := make([]string, 0, len(v.Enum))
		defaultIndex := -1
		for i, option := range v.Enum {
			options = append(options, fmt.Sprint(option))
			if v.HasDefault() && option == v.Default {
				defaultIndex = i
			}
		}
		idx, err := c.driver.Select(ctx, SelectConfig{Message: message, Options: options, DefaultIndex: defaultIndex})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(v.Enum) {
			return nil, fmt.Errorf("variable %q: invalid selection", v.Name)
		}
		return v.Enum[idx], nil

	case v.Type == prompt.TypeBoolean:
		def, _ := v.Default.(bool)
		return c.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: def})
	}

	help := fmt.Sprintf("type: %s", v.Type)
	if v.Type == prompt.TypeList {
		delim := v.Delimiter
		if delim == "" {
			delim = c.delimiter
		}
		if delim == "" {
			delim = prompt.DefaultListDelimiter
		}
		help += fmt.Sprintf(", separate items with %q", delim)
	}
	if v.Type == prompt.TypeObject {
		help += ", JSON or YAML mapping"
	}

	cfg := InputConfig{
		Message: message,
		Help:    help,
		Validator: func(answer string) error {
			if strings.TrimSpace(answer) == "" {
				if v.Required {
					return fmt.Errorf("a value is required")
				}
				return nil
			}
			_, err := prompt.Coerce(v, answer, prompt.WithListDelimiter(c.delimiter))
			return err
		},
	}
	if v.HasDefault() && v.Type != prompt.TypeList && v.Type != prompt.TypeObject {
		cfg.Default = fmt.Sprint(v.Default)
	}

	for {
		answer, err := c.driver.Input(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if verr := cfg.Validator(answer); verr != nil {
			if err := c.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", v.Name, verr)); err != nil {
				return nil, err
			}
			continue
		}
		if strings.TrimSpace(answer) == "" {
			return nil, nil
		}
		return answer, nil
	}
}

type surveyDriver struct {
	out io.Writer
}

func (d *surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	question := &survey.Input{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	var opts []survey.AskOpt
	if cfg.Validator != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return cfg.Validator(s)
		}))
	}
	if err := survey.AskOne(question, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var out bool
	question := &survey.Confirm{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	if err := survey.AskOne(question, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func (d *surveyDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var out string
	question := &survey.Select{
		Message: cfg.Message,
		Options: cfg.Options,
		Help:    cfg.Help,
	}
	if cfg.DefaultIndex >= 0 && cfg.DefaultIndex < len(cfg.Options) {
		question.Default = cfg.Options[cfg.DefaultIndex]
	}
	if err := survey.AskOne(question, &out); err != nil {
		return 0, translateSurveyErr(err)
	}
	for i, option := range cfg.Options {
		if option == out {
			return i, nil
		}
	}
	return -1, nil
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
