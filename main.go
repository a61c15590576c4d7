// This is the main-driver for our compiler.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skx/snekc/buildpipe"
	"github.com/skx/snekc/compiler"
	"github.com/skx/snekc/parser"
	"github.com/skx/snekc/snekconfig"
)

var (
	debug      bool
	doCompile  bool
	doRun      bool
	outputAsm  string
	binaryName string
	configPath string
	verbose    bool

	log = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:   "snekc",
		Short: "snekc compiles a parenthesized expression language to x86-64 assembly",
	}

	compileCmd := &cobra.Command{
		Use:   "compile <input.snek> [input]",
		Short: "Compile a source file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCompile,
	}
	compileCmd.Flags().BoolVar(&debug, "debug", false, "Insert debug \"stuff\" in our generated output")
	compileCmd.Flags().BoolVar(&doCompile, "compile", false, "Compile the generated assembly, via invoking the configured assembler")
	compileCmd.Flags().BoolVar(&doRun, "run", false, "Run the binary, post-compile")
	compileCmd.Flags().StringVarP(&outputAsm, "output", "o", "", "Write the generated assembly to this file, instead of stdout")
	compileCmd.Flags().StringVar(&binaryName, "filename", "a.out", "The binary to write, when --compile is given")
	compileCmd.Flags().StringVar(&configPath, "config", "", "Path to a .snekc.yaml configuration file")
	compileCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(compileCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		os.Exit(1)
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetFormatter(&logrus.TextFormatter{})

	//
	// If we're running we're also compiling.
	//
	if doRun {
		doCompile = true
	}

	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	cfg, err := snekconfig.Load(configPath)
	if err != nil {
		return err
	}

	log.WithField("file", path).Debug("reading source")

	prog, err := parser.Parse(string(src))
	if err != nil {
		return fmt.Errorf("error parsing %s: %s", path, err.Error())
	}

	comp := compiler.New(log)
	comp.SetDebug(debug)

	out, err := comp.Compile(prog)
	if err != nil {
		return fmt.Errorf("error compiling: %s", err.Error())
	}

	if outputAsm != "" {
		if err := os.WriteFile(outputAsm, []byte(out), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", outputAsm, err)
		}
	} else if !doCompile {
		fmt.Printf("%s", out)
	}

	if !doCompile {
		return nil
	}

	pipe := buildpipe.New(cfg.Assembler, cfg.RuntimeSource, log)
	pipe.NoColor = cfg.NoColor

	if err := pipe.Assemble(out, binaryName); err != nil {
		return err
	}

	if !doRun {
		return nil
	}

	return pipe.Run(binaryName, args[1:]...)
}
