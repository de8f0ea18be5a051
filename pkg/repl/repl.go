// Package repl implements the interactive TRPL shell.
//
// Assembly typed at the prompt runs at once against the live register file.
// A program loaded with "load" stays installed across those lines and can be
// single-stepped.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/coder3112/trplvm/pkg/anyobject"
	"github.com/coder3112/trplvm/pkg/compiler"
	"github.com/coder3112/trplvm/pkg/loader"
	"github.com/coder3112/trplvm/pkg/vm"
)

const (
	promptASM  = "trpl> "
	promptCont = "...> "

	snapshotPrefix = "snapshot:"
)

// REPL provides an interactive Read-Eval-Print Loop.
type REPL struct {
	vm          *vm.VM
	log         commonlog.Logger
	ctx         context.Context
	history     []string
	multiline   strings.Builder
	inMultiline bool
	quit        bool
}

// New creates a new REPL instance with a fresh engine.
func New() *REPL {
	return &REPL{
		vm:      vm.New(),
		log:     commonlog.GetLogger("trplvm.repl"),
		ctx:     context.Background(),
		history: []string{},
	}
}

// VM returns the engine driven by the REPL.
func (r *REPL) VM() *vm.VM {
	return r.vm
}

// SetContext sets the context used for preset loading and runs.
func (r *REPL) SetContext(ctx context.Context) {
	r.ctx = ctx
	r.vm.SetContext(ctx)
}

// Start starts the REPL loop. It returns on EOF or quit.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "TRPL REPL - typed register VM")
	fmt.Fprintln(out, "Type 'help' for available commands, 'quit' to exit")
	fmt.Fprintln(out)

	for !r.quit {
		if r.inMultiline {
			fmt.Fprint(out, promptCont)
		} else {
			fmt.Fprint(out, promptASM)
		}

		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		// Handle multiline input
		if r.inMultiline {
			if line == "" {
				// End multiline input
				r.inMultiline = false
				input := r.multiline.String()
				r.multiline.Reset()
				r.eval(input, out)
			} else {
				r.multiline.WriteString(line)
				r.multiline.WriteString("\n")
			}
			continue
		}

		// Check for special commands
		if handled := r.handleCommand(line, out); handled {
			continue
		}

		// Check for multiline start (ends with \)
		if strings.HasSuffix(line, "\\") {
			r.inMultiline = true
			r.multiline.WriteString(strings.TrimSuffix(line, "\\"))
			r.multiline.WriteString("\n")
			continue
		}

		r.eval(line, out)
	}
}

func (r *REPL) handleCommand(line string, out io.Writer) bool {
	trimmed := strings.TrimSpace(line)
	parts := strings.Fields(trimmed)

	if len(parts) == 0 {
		return true
	}

	// Commands are lowercase only, so LOAD is assembly. So is a lowercase
	// load with an operand list.
	cmd := parts[0]
	if cmd == "load" && strings.Contains(trimmed, ",") {
		return false
	}

	switch cmd {
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Goodbye!")
		r.quit = true
		return true

	case "help", "h", "?":
		r.printHelp(out)
		return true

	case "regs":
		fmt.Fprint(out, loader.RegisterTable(r.vm.Registers()).Table())
		return true

	case "reg":
		if len(parts) != 2 {
			fmt.Fprintln(out, "Usage: reg <n>")
			return true
		}
		r.showRegister(parts[1], out)
		return true

	case "pc":
		fmt.Fprintf(out, "pc = %d (%s)\n", r.vm.PC(), r.vm.State())
		return true

	case "step":
		n := 1
		if len(parts) > 1 {
			var err error
			if n, err = strconv.Atoi(parts[1]); err != nil || n < 1 {
				fmt.Fprintln(out, "Usage: step [count]")
				return true
			}
		}
		r.step(n, out)
		return true

	case "run":
		r.report(r.vm.Run(), out)
		return true

	case "reset":
		r.vm.Reset()
		fmt.Fprintln(out, "Registers and program counter reset")
		return true

	case "load":
		if len(parts) != 2 {
			fmt.Fprintln(out, "Usage: load <file.tasm|file.tbc>")
			return true
		}
		r.loadProgram(parts[1], out)
		return true

	case "presets":
		if len(parts) != 2 {
			fmt.Fprintln(out, "Usage: presets <file.csv|.json|.parquet|.yaml>")
			return true
		}
		r.applyPresets(parts[1], out)
		return true

	case "disasm":
		fmt.Fprint(out, vm.Disassemble(r.vm.Program()))
		return true

	case "save":
		if len(parts) != 2 {
			fmt.Fprintln(out, "Usage: save <name>")
			return true
		}
		anyobject.Set(r.vm.Store(), snapshotPrefix+parts[1], r.vm.Snapshot())
		fmt.Fprintf(out, "Saved snapshot '%s'\n", parts[1])
		return true

	case "restore":
		if len(parts) != 2 {
			fmt.Fprintln(out, "Usage: restore <name>")
			return true
		}
		r.restore(parts[1], out)
		return true

	case "snapshots":
		r.listSnapshots(out)
		return true

	case "history":
		for i, cmd := range r.history {
			fmt.Fprintf(out, "%3d: %s\n", i+1, cmd)
		}
		return true
	}

	return false
}

// eval assembles input and runs it against the live registers. The installed
// program and its counter are put back afterwards.
func (r *REPL) eval(input string, out io.Writer) {
	if strings.TrimSpace(input) == "" {
		return
	}

	r.history = append(r.history, input)

	code, err := compiler.Compile(input)
	if err != nil {
		r.fail(err, out)
		return
	}
	if len(code) == 0 {
		return
	}

	before := *r.vm.Registers()
	saved := r.vm.Snapshot()

	// Pad so a trailing one-byte instruction is still decoded.
	r.vm.SetProgram(append(code, 0))
	runErr := r.vm.Run()
	fault := r.vm.LastFault()

	after := r.vm.Snapshot()
	saved.Registers = after.Registers
	if err := r.vm.Restore(saved); err != nil {
		r.fail(err, out)
		return
	}

	for i, v := range r.vm.Registers() {
		if v != before[i] {
			fmt.Fprintf(out, "=> %s = %s\n", vm.Register(i), v)
		}
	}
	if runErr != nil {
		r.fail(runErr, out)
		return
	}
	if fault != nil && fault.Kind != vm.FaultEndOfProgram {
		fmt.Fprintf(out, "stopped: %s\n", fault.Kind)
	}
}

func (r *REPL) step(n int, out io.Writer) {
	for i := 0; i < n; i++ {
		pc := r.vm.PC()
		if inst, err := vm.Decode(r.vm.Program(), pc); err == nil && pc < len(r.vm.Program())-1 {
			fmt.Fprintf(out, "%04d  %s\n", pc, inst)
		}

		stop, err := r.vm.Step()
		if err != nil || stop {
			r.report(err, out)
			return
		}
	}
}

// report prints how the installed program stopped.
func (r *REPL) report(err error, out io.Writer) {
	if err != nil {
		r.fail(err, out)
		return
	}
	if f := r.vm.LastFault(); f != nil {
		fmt.Fprintf(out, "stopped: %s at pc %d\n", f.Kind, r.vm.PC())
	}
}

func (r *REPL) fail(err error, out io.Writer) {
	r.log.Errorf("%s", err.Error())
	fmt.Fprintf(out, "Error: %v\n", err)
}

func (r *REPL) showRegister(arg string, out io.Writer) {
	n, err := strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(arg), "R"), 10, 8)
	if err != nil {
		fmt.Fprintf(out, "Error: %v: %q\n", vm.ErrInvalidRegister, arg)
		return
	}
	v, err := r.vm.Register(vm.Register(n))
	if err != nil {
		r.fail(err, out)
		return
	}
	fmt.Fprintf(out, "%s = %s\n", vm.Register(n), v)
}

func (r *REPL) loadProgram(path string, out io.Writer) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.fail(err, out)
		return
	}

	var code []byte
	if strings.EqualFold(filepath.Ext(path), ".tbc") || strings.HasPrefix(string(data), vm.BytecodeMagic) {
		code, err = vm.ReadProgram(data)
	} else {
		code, err = compiler.Compile(string(data))
	}
	if err != nil {
		r.fail(fmt.Errorf("loading %s: %w", path, err), out)
		return
	}

	r.vm.SetProgram(code)
	fmt.Fprintf(out, "Loaded %s (%d bytes)\n", path, len(code))
}

func (r *REPL) applyPresets(path string, out io.Writer) {
	presets, err := loader.LoadPresets(r.ctx, path)
	if err == nil {
		err = loader.Apply(r.vm.Registers(), presets)
	}
	if err != nil {
		r.fail(err, out)
		return
	}
	fmt.Fprintf(out, "Applied %d presets from %s\n", len(presets), path)
}

func (r *REPL) restore(name string, out io.Writer) {
	s, ok := anyobject.Lookup[*vm.Snapshot](r.vm.Store(), snapshotPrefix+name)
	if !ok {
		fmt.Fprintf(out, "No snapshot named '%s'\n", name)
		return
	}
	if err := r.vm.Restore(s); err != nil {
		r.fail(err, out)
		return
	}
	fmt.Fprintf(out, "Restored snapshot '%s' (pc %d)\n", name, r.vm.PC())
}

func (r *REPL) listSnapshots(out io.Writer) {
	var names []string
	for _, key := range r.vm.Store().Keys() {
		if name, ok := strings.CutPrefix(key, snapshotPrefix); ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No snapshots saved")
		return
	}

	fmt.Fprintln(out, "Snapshots:")
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", name)
	}
}

func (r *REPL) printHelp(out io.Writer) {
	help := `
TRPL REPL Commands:
  help, h, ?        Show this help message
  quit, exit, q     Exit the REPL
  regs              Show all registers
  reg <n>           Show one register
  pc                Show the program counter
  load <path>       Install a program (.tasm or .tbc)
  step [count]      Execute instructions of the installed program
  run               Run the installed program until it stops
  disasm            Disassemble the installed program
  reset             Clear registers and rewind
  presets <path>    Apply a register preset table
  save <name>       Snapshot the engine
  restore <name>    Go back to a snapshot
  snapshots         List snapshots
  history           Show command history

ASM Examples:
  LOAD  R0, i32 -8
  LOAD  R1, i32 8
  ADD   R0, R1, R2

Tips:
  - Commands are lowercase; mnemonics may be written in either case
  - End a line with \ for multiline input
  - Press Enter twice to execute multiline input
`
	fmt.Fprint(out, help)
}
