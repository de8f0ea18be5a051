// Package main provides the CLI entry point for TRPL.
//
// Usage:
//
//	trplvm run program.tasm            # Assemble and execute
//	trplvm run -v -trace program.tasm  # Execute with diagnostics and a trace
//	trplvm assemble program.tasm       # Assemble to bytecode (.tbc)
//	trplvm exec program.tbc            # Execute assembled bytecode
//	trplvm disasm program.tbc          # Disassemble bytecode
//	trplvm repl                        # Interactive shell
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/coder3112/trplvm/pkg/compiler"
	"github.com/coder3112/trplvm/pkg/config"
	"github.com/coder3112/trplvm/pkg/embed"
	"github.com/coder3112/trplvm/pkg/loader"
	"github.com/coder3112/trplvm/pkg/optimizer"
	"github.com/coder3112/trplvm/pkg/repl"
	"github.com/coder3112/trplvm/pkg/vm"
)

// Version info set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var log = commonlog.GetLogger("trplvm.cli")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) < 1 {
		return printUsage(stdout)
	}

	cmd := args[0]

	switch cmd {
	case "run":
		return runCommand(args[1:], stdout)
	case "assemble":
		return assembleCommand(args[1:], stdout)
	case "exec":
		return execCommand(args[1:], stdout)
	case "disasm":
		return disasmCommand(args[1:], stdout)
	case "repl":
		return replCommand(args[1:], stdin, stdout)
	case "version":
		fmt.Fprintf(stdout, "trplvm version %s\n", version)
		if commit != "none" {
			fmt.Fprintf(stdout, "  commit: %s\n", commit)
		}
		if date != "unknown" {
			fmt.Fprintf(stdout, "  built:  %s\n", date)
		}
		return nil
	case "help", "-h", "--help":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// parseArgs parses flags that may appear before or after positional
// arguments, as in "trplvm assemble prog.tasm -o prog.tbc".
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

// runFlags are the flags shared by run and exec.
type runFlags struct {
	verbose    *bool
	trace      *bool
	maxSteps   *int64
	timeout    *time.Duration
	regs       *string
	configPath *string
	snapshot   *string
	optimize   *bool
	all        *bool
}

func newRunFlags(name string) (*flag.FlagSet, *runFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return fs, &runFlags{
		verbose:    fs.Bool("v", false, "verbose output"),
		trace:      fs.Bool("trace", false, "print every instruction as it executes"),
		maxSteps:   fs.Int64("max-steps", 0, "stop after this many instructions (0: unlimited)"),
		timeout:    fs.Duration("timeout", 0, "stop after this long (0: no limit)"),
		regs:       fs.String("regs", "", "register preset table (.csv, .json, .parquet, .yaml)"),
		configPath: fs.String("config", "", "configuration file (default: nearest "+config.FileName+")"),
		snapshot:   fs.String("snapshot", "", "write the final engine state as CBOR to this file"),
		optimize:   fs.Bool("O", false, "optimize the program before running"),
		all:        fs.Bool("all", false, "print every register, not only the ones that changed"),
	}
}

// loadConfig reads the -config file, or the nearest trplvm.toml, or the
// defaults, then configures logging from it.
func loadConfig(path string, verbose bool) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		var wd string
		if wd, err = os.Getwd(); err == nil {
			cfg, err = config.FindAndLoad(wd)
		}
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}

	verbosity := cfg.Log.Verbosity
	if verbose && verbosity < 2 {
		verbosity = 2
	}
	commonlog.Configure(verbosity, cfg.LogFile())
	return cfg, nil
}

// execute runs program with the shared run flags and prints the outcome.
func execute(program []byte, fs *flag.FlagSet, f *runFlags, stdout io.Writer) error {
	cfg, err := loadConfig(*f.configPath, *f.verbose)
	if err != nil {
		return err
	}

	// Flags given on the command line win over the configuration file.
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	maxSteps := cfg.VM.MaxSteps
	if set["max-steps"] {
		maxSteps = *f.maxSteps
	}
	trace := cfg.VM.Trace || *f.trace
	presetPath := cfg.PresetPath()
	if set["regs"] {
		presetPath = *f.regs
	}

	if *f.optimize {
		before := len(program)
		program = optimizer.New(optimizer.WithAllOptimizations()).Optimize(program)
		log.Infof("optimized program from %d to %d bytes", before, len(program))
	}

	opts := []embed.Option{
		embed.WithMaxInstructions(maxSteps),
		embed.WithTimeout(*f.timeout),
		embed.WithPresetFile(presetPath),
	}
	if trace {
		opts = append(opts, embed.WithTrace(func(inst vm.Instruction) {
			fmt.Fprintf(stdout, "%04d  %s\n", inst.Offset, inst)
		}))
	}
	if *f.verbose {
		opts = append(opts, embed.WithStats())
	}

	result, runErr := embed.ExecuteBytes(program, opts...)
	if result == nil {
		return runErr
	}

	printResult(stdout, result, *f.all)

	if *f.snapshot != "" {
		if err := writeSnapshot(*f.snapshot, result.Snapshot); err != nil {
			return err
		}
		log.Infof("snapshot written to %s", *f.snapshot)
	}
	if result.Stats != nil {
		log.Infof("executed %d instructions in %s", result.Stats.StepsExecuted, time.Duration(result.Stats.ExecutionTimeNs))
	}

	return runErr
}

func printResult(stdout io.Writer, result *embed.Result, all bool) {
	if all {
		fmt.Fprint(stdout, loader.RegisterTable(&result.Registers).Table())
	} else {
		for i, v := range result.Registers {
			if v != vm.U8(0) {
				fmt.Fprintf(stdout, "%s = %s\n", vm.Register(i), v)
			}
		}
	}
	if result.Fault != nil && !result.Fault.Fatal() {
		fmt.Fprintf(stdout, "stopped: %s at pc %d\n", result.Fault.Kind, result.PC)
	}
}

func writeSnapshot(path string, s *vm.Snapshot) error {
	data, err := vm.MarshalSnapshot(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

func runCommand(args []string, stdout io.Writer) error {
	fs, f := newRunFlags("run")

	files, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	if len(files) < 1 {
		return fmt.Errorf("usage: trplvm run <file.tasm>")
	}

	path := files[0]

	if *f.verbose {
		fmt.Fprintf(stdout, "Executing: %s\n", path)
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	program, err := compiler.Compile(string(source))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return execute(program, fs, f, stdout)
}

func assembleCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("assemble", flag.ContinueOnError)
	output := fs.String("o", "", "output file (default: input with .tbc extension)")
	verbose := fs.Bool("v", false, "verbose output")
	optimize := fs.Bool("O", false, "enable optimizations (constant folding, dead code elimination)")

	files, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	if len(files) < 1 {
		return fmt.Errorf("usage: trplvm assemble <file.tasm> [-o output.tbc]")
	}

	inputPath := files[0]
	outputPath := *output

	if outputPath == "" {
		// Replace extension with .tbc
		ext := filepath.Ext(inputPath)
		outputPath = strings.TrimSuffix(inputPath, ext) + ".tbc"
	}

	if *verbose {
		fmt.Fprintf(stdout, "Assembling: %s -> %s\n", inputPath, outputPath)
	}

	// Read source
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	// Assemble to program bytes
	program, err := compiler.Compile(string(source))
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}

	// Apply optimizations if requested
	if *optimize {
		if *verbose {
			fmt.Fprintf(stdout, "Applying optimizations (before: %d bytes)\n", len(program))
		}
		opt := optimizer.New(optimizer.WithAllOptimizations())
		program = opt.Optimize(program)
		if *verbose {
			fmt.Fprintf(stdout, "After optimization: %d bytes\n", len(program))
		}
	}

	// Serialize to bytecode
	bytecode, err := vm.SerializeProgram(program)
	if err != nil {
		return fmt.Errorf("serializing: %w", err)
	}

	// Write output
	if err := os.WriteFile(outputPath, bytecode, 0644); err != nil {
		return fmt.Errorf("writing bytecode: %w", err)
	}

	if *verbose {
		fmt.Fprintf(stdout, "Assembled %d bytes of code\n", len(program))
		fmt.Fprintf(stdout, "Output: %s (%d bytes)\n", outputPath, len(bytecode))
	} else {
		fmt.Fprintf(stdout, "Assembled: %s\n", outputPath)
	}

	return nil
}

func execCommand(args []string, stdout io.Writer) error {
	fs, f := newRunFlags("exec")

	files, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	if len(files) < 1 {
		return fmt.Errorf("usage: trplvm exec <file.tbc>")
	}

	path := files[0]

	if *f.verbose {
		fmt.Fprintf(stdout, "Executing bytecode: %s\n", path)
	}

	// Read bytecode
	bytecode, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading bytecode: %w", err)
	}

	program, err := vm.ReadProgram(bytecode)
	if err != nil {
		return fmt.Errorf("deserializing: %w", err)
	}

	return execute(program, fs, f, stdout)
}

func disasmCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("disasm", flag.ContinueOnError)
	output := fs.String("o", "", "output file (default: stdout)")

	files, err := parseArgs(fs, args)
	if err != nil {
		return err
	}

	if len(files) < 1 {
		return fmt.Errorf("usage: trplvm disasm <file.tbc> [-o output.tasm]")
	}

	path := files[0]

	// Read bytecode
	bytecode, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading bytecode: %w", err)
	}

	program, err := vm.ReadProgram(bytecode)
	if err != nil {
		return fmt.Errorf("deserializing: %w", err)
	}

	// Disassemble
	asm := vm.Disassemble(program)

	// Output
	if *output != "" {
		if err := os.WriteFile(*output, []byte(asm), 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Fprintf(stdout, "Disassembled to: %s\n", *output)
	} else {
		fmt.Fprint(stdout, asm)
	}

	return nil
}

func replCommand(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose output")
	regs := fs.String("regs", "", "register preset table applied at start")
	configPath := fs.String("config", "", "configuration file (default: nearest "+config.FileName+")")

	if _, err := parseArgs(fs, args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, *verbose)
	if err != nil {
		return err
	}

	r := repl.New()
	r.VM().SetMaxSteps(cfg.VM.MaxSteps)

	presetPath := cfg.PresetPath()
	if *regs != "" {
		presetPath = *regs
	}
	if presetPath != "" {
		presets, err := loader.LoadPresets(context.Background(), presetPath)
		if err != nil {
			return err
		}
		if err := loader.Apply(r.VM().Registers(), presets); err != nil {
			return err
		}
	}

	r.Start(stdin, stdout)
	return nil
}

func printUsage(stdout io.Writer) error {
	fmt.Fprintln(stdout, `TRPL - typed register bytecode VM

Usage:
  trplvm <command> [arguments]

Commands:
  run <file.tasm>       Assemble and execute an assembly file
  assemble <file.tasm>  Assemble to bytecode (.tbc)
  exec <file.tbc>       Execute assembled bytecode
  disasm <file.tbc>     Disassemble bytecode to assembly
  repl                  Start interactive REPL
  version               Print version information
  help                  Show this help message

Run and Exec Options:
  -v                    Verbose output (debug logging, statistics)
  -trace                Print every instruction as it executes
  -max-steps <n>        Stop after n instructions
  -timeout <d>          Stop after duration d
  -regs <file>          Register preset table (.csv, .json, .parquet, .yaml)
  -config <file>        Configuration file (default: nearest trplvm.toml)
  -snapshot <file>      Write the final engine state as CBOR
  -O                    Optimize before running
  -all                  Print every register

Assemble Options:
  -o <file>             Output file (default: input with .tbc extension)
  -O                    Enable optimizations (constant folding, dead code elimination)
  -v                    Verbose output

Disasm Options:
  -o <file>             Output file (default: stdout)

REPL Options:
  -regs <file>          Register preset table applied at start
  -config <file>        Configuration file
  -v                    Verbose output

Examples:
  trplvm run program.tasm
  trplvm run -regs regs.csv -trace program.tasm
  trplvm assemble program.tasm -o program.tbc
  trplvm exec -snapshot state.cbor program.tbc
  trplvm disasm program.tbc
  trplvm repl`)
	return nil
}
