package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/imports"
)

// LoadJSON reads a JSON Lines preset table, one object per line:
//
//	{"reg": 0, "kind": "i32", "value": -8}
//	{"reg": 1, "kind": "f64", "value": "0.1"}
//
// Numbers are kept in their literal spelling.
func LoadJSON(ctx context.Context, path string) (*dataframe.DataFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	reader := bytes.NewReader(data)

	df, err := imports.LoadFromJSON(ctx, reader, imports.JSONLoadOptions{
		DictateDataType: presetColumns(),
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if df == nil || len(df.Series) == 0 {
		return nil, ErrEmptyFile
	}

	return df, nil
}
