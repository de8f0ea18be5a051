// Package loader reads register presets from tabular files and renders
// register files back into tables.
//
// A preset table has three columns:
//
//	reg    register index, as 3 or R3
//	kind   value kind name: none, u8 ... f64
//	value  literal text of the payload, parsed like an assembler immediate
//
// CSV, JSON Lines and Parquet tables are read through dataframe-go; YAML is
// read with yaml.v3.
package loader

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/coder3112/trplvm/pkg/vm"
)

// Column names of a preset table.
const (
	ColumnRegister = "reg"
	ColumnKind     = "kind"
	ColumnValue    = "value"
)

// Preset is one register assignment applied before a run.
type Preset struct {
	Register vm.Register
	Value    vm.Value
}

// String returns the assembler spelling of the preset.
func (p Preset) String() string {
	return fmt.Sprintf("%s = %s", p.Register, p.Value)
}

// LoadFrame reads a preset table, picking the format from the file
// extension.
func LoadFrame(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(ctx, path)
	case ".json", ".jsonl":
		return LoadJSON(ctx, path)
	case ".parquet":
		return LoadParquet(ctx, path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, path)
	}
}

// LoadPresets reads the presets stored in path.
func LoadPresets(ctx context.Context, path string) ([]Preset, error) {
	df, err := LoadFrame(ctx, path)
	if err != nil {
		return nil, err
	}
	presets, err := FromFrame(df)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return presets, nil
}

// FromFrame converts the rows of a preset table into presets. Row numbers in
// errors are one-based.
func FromFrame(df *dataframe.DataFrame) ([]Preset, error) {
	cols := make(map[string]dataframe.Series, 3)
	for _, name := range []string{ColumnRegister, ColumnKind, ColumnValue} {
		idx, err := df.NameToColumn(name)
		if err != nil {
			if name == ColumnValue {
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cols[name] = df.Series[idx]
	}

	n := cols[ColumnRegister].NRows()
	presets := make([]Preset, 0, n)
	for row := 0; row < n; row++ {
		reg, err := parseRegister(cellText(cols[ColumnRegister].Value(row)))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}

		kindName := cellText(cols[ColumnKind].Value(row))
		kind, ok := vm.KindFromName(kindName)
		if !ok {
			return nil, fmt.Errorf("row %d: unknown kind %q", row+1, kindName)
		}

		var text string
		if s, ok := cols[ColumnValue]; ok {
			text = cellText(s.Value(row))
		}
		value, err := vm.ParseValue(kind, text)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row+1, err)
		}

		presets = append(presets, Preset{Register: reg, Value: value})
	}
	return presets, nil
}

// Apply writes the presets into rf in order; later rows win.
func Apply(rf *vm.RegisterFile, presets []Preset) error {
	for _, p := range presets {
		if err := rf.Set(p.Register, p.Value); err != nil {
			return fmt.Errorf("preset %s: %w", p, err)
		}
	}
	return nil
}

// RegisterTable renders a register file as a table with one row per
// register, suitable for DataFrame.Table.
func RegisterTable(rf *vm.RegisterFile) *dataframe.DataFrame {
	regs := make([]interface{}, vm.NumRegisters)
	kinds := make([]interface{}, vm.NumRegisters)
	values := make([]interface{}, vm.NumRegisters)
	for i, v := range rf {
		regs[i] = vm.Register(i).String()
		kinds[i] = v.Kind().String()
		values[i] = v.Text()
	}
	return dataframe.NewDataFrame(
		dataframe.NewSeriesString(ColumnRegister, nil, regs...),
		dataframe.NewSeriesString(ColumnKind, nil, kinds...),
		dataframe.NewSeriesString(ColumnValue, nil, values...),
	)
}

func parseRegister(text string) (vm.Register, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(text, "R"), "r")
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || int(n) >= vm.NumRegisters {
		return 0, fmt.Errorf("%w: %q", vm.ErrInvalidRegister, text)
	}
	return vm.Register(n), nil
}

// cellText renders a dataframe cell as literal text.
func cellText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}
