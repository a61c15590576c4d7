// Package snekconfig holds the compiler's optional YAML-backed
// configuration: the external assembler to invoke, the runtime shim
// to link against, and whether to colorize diagnostics. A config
// file is entirely optional; every field has a sensible default, and
// Load overlays only the fields the file sets onto those defaults.
package snekconfig

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables read from a .snekc.yaml file.
type Config struct {
	// Assembler is the external compiler/linker invoked on the
	// generated assembly, e.g. "gcc" or "cc".
	Assembler string `yaml:"assembler"`

	// RuntimeSource is the path to the C runtime shim linked into
	// every compiled binary.
	RuntimeSource string `yaml:"runtime_source"`

	// NoColor disables colored diagnostic output even when stderr
	// is a terminal.
	NoColor bool `yaml:"no_color"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Assembler:     "gcc",
		RuntimeSource: "runtime/snek_runtime.c",
		NoColor:       false,
	}
}

// Load reads path, overlaying its contents onto Default(). A missing
// file is not an error: Default() is returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "reading config file %q", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config file %q", path)
	}
	return cfg, nil
}
