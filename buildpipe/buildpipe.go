// Package buildpipe drives the external toolchain: it writes
// generated assembly to a uniquely-named temporary file, links it
// against the runtime shim via the system assembler/linker, and can
// launch the resulting binary. This generalizes the teacher's single
// "pipe assembly to gcc's stdin" call into a two-input build (the
// generated .s file plus the C runtime shim), which stdin piping
// cannot express, while keeping the same gcc-as-linker approach.
package buildpipe

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Pipeline holds the external tool names and runtime shim location
// needed to turn generated assembly into a runnable binary.
type Pipeline struct {
	Assembler     string // e.g. "gcc", "cc"
	RuntimeSource string // path to the runtime shim's C source
	NoColor       bool   // force-disable colored diagnostics
	log           *logrus.Logger
}

// New returns a Pipeline backed by the given assembler binary and
// runtime shim source path.
func New(assembler, runtimeSource string, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline{Assembler: assembler, RuntimeSource: runtimeSource, log: log}
}

// Assemble writes asmText to a uniquely-named temporary assembly
// file, then invokes the assembler to statically link it together
// with the runtime shim into outputBinary. The temporary file is
// removed before Assemble returns, whether or not the build
// succeeded.
func (p *Pipeline) Assemble(asmText, outputBinary string) error {
	tmpName := filepath.Join(os.TempDir(), "snekc-"+uuid.New().String()+".s")
	if err := os.WriteFile(tmpName, []byte(asmText), 0o600); err != nil {
		return errors.Wrap(err, "writing temporary assembly file")
	}
	defer os.Remove(tmpName)

	p.log.WithFields(logrus.Fields{
		"assembler": p.Assembler,
		"asm":       tmpName,
		"runtime":   p.RuntimeSource,
		"output":    outputBinary,
	}).Debug("invoking assembler")

	var stderr bytes.Buffer
	cmd := exec.Command(p.Assembler, "-static", "-o", outputBinary, tmpName, p.RuntimeSource)
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.printDiagnostics(stderr.String())
		return errors.Wrapf(err, "running %s", p.Assembler)
	}
	if stderr.Len() > 0 {
		p.printDiagnostics(stderr.String())
	}
	return nil
}

// Run launches a previously-built binary, forwarding its stdio.
func (p *Pipeline) Run(binary string, args ...string) error {
	cmd := exec.Command(binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running %s", binary)
	}
	return nil
}

// printDiagnostics echoes the assembler's stderr output, in red when
// writing to an interactive terminal.
func (p *Pipeline) printDiagnostics(output string) {
	if output == "" {
		return
	}
	if p.NoColor || !isatty.IsTerminal(os.Stderr.Fd()) {
		os.Stderr.WriteString(output)
		return
	}
	color.New(color.FgRed).Fprint(os.Stderr, output)
}
