package loader

import (
	"fmt"
	"os"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"gopkg.in/yaml.v3"
)

// yamlRow is one preset entry. Value stays a node so its scalar text is
// used verbatim.
type yamlRow struct {
	Reg   string    `yaml:"reg"`
	Kind  string    `yaml:"kind"`
	Value yaml.Node `yaml:"value"`
}

type yamlFile struct {
	Registers []yamlRow `yaml:"registers"`
}

// LoadYAML reads a YAML preset table. Either a top-level list or a mapping
// with a registers list is accepted:
//
//	registers:
//	  - {reg: R0, kind: i32, value: -8}
//	  - {reg: 1, kind: none}
func LoadYAML(path string) (*dataframe.DataFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if len(root.Content) == 0 {
		return nil, ErrEmptyFile
	}

	var rows []yamlRow
	doc := root.Content[0]
	if doc.Kind == yaml.SequenceNode {
		err = doc.Decode(&rows)
	} else {
		var f yamlFile
		err = doc.Decode(&f)
		rows = f.Registers
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	regs := make([]interface{}, len(rows))
	kinds := make([]interface{}, len(rows))
	values := make([]interface{}, len(rows))
	for i, r := range rows {
		regs[i] = r.Reg
		kinds[i] = r.Kind
		if r.Value.Kind == yaml.ScalarNode && r.Value.Tag != "!!null" {
			values[i] = r.Value.Value
		}
	}

	return dataframe.NewDataFrame(
		dataframe.NewSeriesString(ColumnRegister, nil, regs...),
		dataframe.NewSeriesString(ColumnKind, nil, kinds...),
		dataframe.NewSeriesString(ColumnValue, nil, values...),
	), nil
}
