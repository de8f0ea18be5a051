// Package embed provides the Go embedding API for TRPL.
//
// Pass assembly text, get the final register file back.
//
// Basic usage:
//
//	result, err := embed.Execute(`
//	    LOAD  R0, i32 -8
//	    LOAD  R1, i32 8
//	    ADD   R0, R1, R2
//	    HALT
//	`)
//	r2 := result.Register(2) // i32 0
//
// With pre-loaded registers:
//
//	result, err := embed.ExecuteWithPresets(`
//	    MUL   R0, R1, R2
//	    HALT
//	`, []loader.Preset{
//	    {Register: 0, Value: vm.F64(1.5)},
//	    {Register: 1, Value: vm.F64(4)},
//	})
package embed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"github.com/coder3112/trplvm/pkg/compiler"
	"github.com/coder3112/trplvm/pkg/loader"
	"github.com/coder3112/trplvm/pkg/vm"
)

// Common errors
var (
	ErrTimeout          = errors.New("execution timeout exceeded")
	ErrInstructionLimit = errors.New("instruction limit exceeded")
)

// Result is the engine state after a run.
type Result struct {
	Registers vm.RegisterFile
	PC        int

	// Fault says why execution stopped; nil only if the engine never ran.
	Fault *vm.Fault

	// Stats is set when WithStats was given.
	Stats *vm.ExecutionStats

	// Snapshot is the engine state at the stop, ready for vm.MarshalSnapshot.
	Snapshot *vm.Snapshot
}

// Register returns the final value of register r, or None when r is out of
// range.
func (r *Result) Register(reg vm.Register) vm.Value {
	v, err := r.Registers.Get(reg)
	if err != nil {
		return vm.None()
	}
	return v
}

// Halted reports whether the program stopped on HALT.
func (r *Result) Halted() bool {
	return r.Fault != nil && r.Fault.Kind == vm.FaultHalted
}

// Execute assembles and runs TRPL assembly code, returns the result.
func Execute(code string) (*Result, error) {
	return ExecuteWithOptions(code)
}

// ExecuteFile reads a program and executes it. Files ending in .tbc (or
// carrying the bytecode magic) run as bytecode, anything else is assembled.
func ExecuteFile(path string, opts ...Option) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".tbc") || strings.HasPrefix(string(data), vm.BytecodeMagic) {
		program, err := vm.ReadProgram(data)
		if err != nil {
			return nil, err
		}
		return ExecuteBytes(program, opts...)
	}
	return ExecuteWithOptions(string(data), opts...)
}

// ExecuteWithPresets executes code with registers seeded from presets.
func ExecuteWithPresets(code string, presets []loader.Preset) (*Result, error) {
	return ExecuteWithOptions(code, WithPresets(presets...))
}

// Options configures execution behavior for ExecuteWithOptions.
type Options struct {
	// Presets are applied to the register file before the run.
	Presets []loader.Preset

	// PresetFile names a preset table (csv, json, parquet or yaml) applied
	// after Presets.
	PresetFile string

	// Timeout sets maximum execution time. Zero means no timeout.
	Timeout time.Duration

	// MaxInstructions limits the number of instructions executed.
	// Zero means unlimited.
	MaxInstructions int64

	// Trace is called with every decoded instruction.
	Trace func(vm.Instruction)

	// Logger receives HALT and ILLEGAL notices.
	Logger commonlog.Logger

	// Stats enables execution statistics on the Result.
	Stats bool

	// Context for cancellation. If nil, context.Background() is used.
	Context context.Context
}

// Option is a functional option for configuring execution.
type Option func(*Options)

// WithPresets appends register presets.
func WithPresets(presets ...loader.Preset) Option {
	return func(o *Options) {
		o.Presets = append(o.Presets, presets...)
	}
}

// WithPresetFile sets a preset table to load before running.
func WithPresetFile(path string) Option {
	return func(o *Options) {
		o.PresetFile = path
	}
}

// WithTimeout sets execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithMaxInstructions sets instruction limit.
func WithMaxInstructions(n int64) Option {
	return func(o *Options) {
		o.MaxInstructions = n
	}
}

// WithTrace sets the per-instruction trace callback.
func WithTrace(fn func(vm.Instruction)) Option {
	return func(o *Options) {
		o.Trace = fn
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(log commonlog.Logger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

// WithStats enables execution statistics.
func WithStats() Option {
	return func(o *Options) {
		o.Stats = true
	}
}

// WithContext sets the context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Context = ctx
	}
}

// ExecuteWithOptions executes code with advanced configuration.
// Supports presets, resource limits and timeouts.
//
// Example:
//
//	result, err := embed.ExecuteWithOptions(code,
//	    embed.WithTimeout(5*time.Second),
//	    embed.WithMaxInstructions(10000),
//	    embed.WithPresetFile("regs.csv"),
//	)
func ExecuteWithOptions(code string, opts ...Option) (*Result, error) {
	// Assemble
	program, err := compiler.Compile(code)
	if err != nil {
		return nil, err
	}
	return ExecuteBytes(program, opts...)
}

// ExecuteBytes runs raw program bytes. On a fatal fault the returned Result
// still holds the registers as they were when the fault hit.
func ExecuteBytes(program []byte, opts ...Option) (*Result, error) {
	// Apply options
	options := &Options{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Create VM with options
	machine := vm.New()
	if options.Logger != nil {
		machine.SetLogger(options.Logger)
	}
	machine.SetTrace(options.Trace)
	machine.SetMaxSteps(options.MaxInstructions)
	if options.Stats {
		machine.EnableStats()
	}

	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if err := seed(ctx, options, machine.Registers()); err != nil {
		return nil, err
	}

	// Load program
	machine.SetProgram(program)

	// Setup timeout context
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}
	machine.SetContext(ctx)

	// Execute
	err := machine.Run()
	result := &Result{
		Registers: *machine.Registers(),
		PC:        machine.PC(),
		Fault:     machine.LastFault(),
		Stats:     machine.Stats(),
		Snapshot:  machine.Snapshot(),
	}
	if err != nil {
		// Map VM errors to embed package errors
		switch {
		case errors.Is(err, vm.ErrStepLimitExceeded):
			return result, ErrInstructionLimit
		case errors.Is(err, context.DeadlineExceeded):
			return result, ErrTimeout
		}
		return result, err
	}

	return result, nil
}

func seed(ctx context.Context, options *Options, rf *vm.RegisterFile) error {
	if err := loader.Apply(rf, options.Presets); err != nil {
		return err
	}
	if options.PresetFile == "" {
		return nil
	}
	presets, err := loader.LoadPresets(ctx, options.PresetFile)
	if err != nil {
		return err
	}
	return loader.Apply(rf, presets)
}
