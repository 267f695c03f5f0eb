// Package config holds the settings of the loop conversion pass.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration of the conversion pass.
type Config struct {
	// SelfName is the implicit first parameter of methods. Attribute paths
	// rooted at it are never loop variables.
	SelfName string `yaml:"self_name"`

	// TypeCheck is the type-check predicate whose second argument names
	// types rather than data variables.
	TypeCheck string `yaml:"type_check"`

	// LoopPrimitive is the dotted name of the structured-loop primitive.
	LoopPrimitive string `yaml:"loop_primitive"`

	// UndefinedVar, when set, is the dotted name of the placeholder
	// constructor assigned to created variables ahead of a rewritten loop,
	// e.g. `y = _jst.UndefinedVar('y')`. Empty disables the assignments.
	UndefinedVar string `yaml:"undefined_var"`

	// ArgsName is the parameter name of generated setters. It is never
	// declared nonlocal.
	ArgsName string `yaml:"args_name"`

	// PushPopMethods are the method names marking a variable as a
	// variadic (push/pop) accumulator.
	PushPopMethods []string `yaml:"push_pop_methods"`

	// Builtins are names never treated as variables.
	Builtins []string `yaml:"builtins"`

	Prefixes Prefixes `yaml:"prefixes"`
}

// Prefixes of generated function and temporary names.
type Prefixes struct {
	WhileCondition string `yaml:"while_condition"`
	WhileBody      string `yaml:"while_body"`
	ForCondition   string `yaml:"for_condition"`
	ForBody        string `yaml:"for_body"`
	GetArgs        string `yaml:"get_args"`
	SetArgs        string `yaml:"set_args"`
	LoopIndex      string `yaml:"loop_index"`
	LoopLen        string `yaml:"loop_len"`
	LoopIter       string `yaml:"loop_iter"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		SelfName:       "self",
		TypeCheck:      "isinstance",
		LoopPrimitive:  "_jst.While",
		ArgsName:       "__args",
		PushPopMethods: []string{"append", "pop"},
		Builtins:       []string{"True", "False", "None"},
		Prefixes: Prefixes{
			WhileCondition: "while_condition",
			WhileBody:      "while_body",
			ForCondition:   "for_loop_condition",
			ForBody:        "for_loop_body",
			GetArgs:        "get_args",
			SetArgs:        "set_args",
			LoopIndex:      "__for_loop_var_index",
			LoopLen:        "__for_loop_var_len",
			LoopIter:       "__for_loop_iter_var",
		},
	}
}

// Load reads a YAML configuration file. Settings missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %s", path)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes a YAML configuration over the defaults.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "invalid config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	for _, s := range []struct{ field, value string }{
		{"self_name", c.SelfName},
		{"type_check", c.TypeCheck},
		{"args_name", c.ArgsName},
		{"prefixes.while_condition", c.Prefixes.WhileCondition},
		{"prefixes.while_body", c.Prefixes.WhileBody},
		{"prefixes.for_condition", c.Prefixes.ForCondition},
		{"prefixes.for_body", c.Prefixes.ForBody},
		{"prefixes.get_args", c.Prefixes.GetArgs},
		{"prefixes.set_args", c.Prefixes.SetArgs},
		{"prefixes.loop_index", c.Prefixes.LoopIndex},
		{"prefixes.loop_len", c.Prefixes.LoopLen},
		{"prefixes.loop_iter", c.Prefixes.LoopIter},
	} {
		if !isIdent(s.value) {
			return errors.Errorf("config: %s must be an identifier, got %q", s.field, s.value)
		}
	}
	if !isDotted(c.LoopPrimitive) {
		return errors.Errorf("config: loop_primitive must be a (dotted) name, got %q", c.LoopPrimitive)
	}
	if c.UndefinedVar != "" && !isDotted(c.UndefinedVar) {
		return errors.Errorf("config: undefined_var must be a (dotted) name, got %q", c.UndefinedVar)
	}
	return nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func isDotted(s string) bool {
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if !isIdent(s[start:i]) {
				return false
			}
			start = i + 1
		}
	}
	return true
}
