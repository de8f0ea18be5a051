package loader

import (
	"context"
	"errors"
	"fmt"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// Error definitions
var (
	ErrEmptyFile       = errors.New("empty preset file")
	ErrMissingColumn   = errors.New("preset table is missing a column")
	ErrUnsupportedType = errors.New("unsupported preset file type")
)

// presetColumns are read as text so integer payloads keep every digit.
func presetColumns() map[string]interface{} {
	return map[string]interface{}{
		ColumnRegister: "",
		ColumnKind:     "",
		ColumnValue:    "",
	}
}

// LoadCSV reads a CSV preset table and returns it as a DataFrame.
//   - First row is header (column names)
//   - The reg, kind and value columns are kept as strings
//   - Lines starting with # are ignored
func LoadCSV(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	df, err := imports.LoadFromCSV(ctx, file, imports.CSVLoadOptions{
		Comment:          '#',
		TrimLeadingSpace: true,
		DictateDataType:  presetColumns(),
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptyFile
	}

	return df, nil
}
