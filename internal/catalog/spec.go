package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Engine kinds.
const (
	KindBool          = "bool"
	KindFunctionScore = "function_score"
)

// fileSpec is the YAML document of a catalog.
type fileSpec struct {
	Engines []engineSpec `yaml:"engines"`
}

type engineSpec struct {
	Name       string                 `yaml:"name"`
	Kind       string                 `yaml:"kind"`
	Config     configSpec             `yaml:"config"`
	Mapper     map[string]bindingSpec `yaml:"mapper"`
	Directives []directiveSpec        `yaml:"directives"`

	// function_score only
	ScoreMode string         `yaml:"score_mode"`
	BoostMode string         `yaml:"boost_mode"`
	MaxBoost  *float64       `yaml:"max_boost"`
	MinScore  *float64       `yaml:"min_score"`
	Functions []functionSpec `yaml:"functions"`
}

type configSpec struct {
	AndQueryOp  string `yaml:"and_query_op"`
	BaseMatchOp string `yaml:"base_match_op"`
	ValuePrefix string `yaml:"value_prefix"`
}

type bindingSpec struct {
	Fields    []fieldSpec    `yaml:"fields"`
	Values    []any          `yaml:"values"`
	ValuesMap map[string]any `yaml:"values_map"`
}

// fieldSpec is either a plain field name or a {name, path} nested field.
type fieldSpec struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

func (f *fieldSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Name, f.Path = node.Value, ""
		return nil
	}
	type plain fieldSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("field: %w", err)
	}
	*f = fieldSpec(p)
	return nil
}

type directiveSpec struct {
	Attr     string         `yaml:"attr"`
	Type     string         `yaml:"type"`
	Rule     string         `yaml:"rule"`
	Mode     string         `yaml:"mode"`
	Nullable bool           `yaml:"nullable"`
	Name     string         `yaml:"name"`
	Options  map[string]any `yaml:"options"`

	// Declared bindings, used when the mapper has no entry for Attr.
	Fields    []fieldSpec    `yaml:"fields"`
	Values    []any          `yaml:"values"`
	ValuesMap map[string]any `yaml:"values_map"`

	// waterfall
	Order []any  `yaml:"order"`
	Op    string `yaml:"op"`

	// script
	Script          string   `yaml:"script"`
	ScriptFile      string   `yaml:"script_file"`
	MandatoryParams []string `yaml:"mandatory_params"`

	// group
	Group    string          `yaml:"group"`
	Children []directiveSpec `yaml:"children"`
}

type functionSpec struct {
	Attr             string         `yaml:"attr"`
	Type             string         `yaml:"type"`
	Weight           *float64       `yaml:"weight"`
	NullFilterAction string         `yaml:"null_filter_action"`
	Nullable         bool           `yaml:"nullable"`
	Filter           *directiveSpec `yaml:"filter"`

	// script
	Script          string         `yaml:"script"`
	ScriptFile      string         `yaml:"script_file"`
	Params          map[string]any `yaml:"params"`
	Lang            string         `yaml:"lang"`
	MandatoryParams []string       `yaml:"mandatory_params"`

	// random, field_value_factor, decay
	Field    string   `yaml:"field"`
	Seed     any      `yaml:"seed"`
	Factor   *float64 `yaml:"factor"`
	Modifier string   `yaml:"modifier"`
	Missing  *float64 `yaml:"missing"`
	Decay    string   `yaml:"decay"` // gauss, exp, linear
	Origin   any      `yaml:"origin"`
	Scale    any      `yaml:"scale"`
	Offset   any      `yaml:"offset"`
	Rate     *float64 `yaml:"rate"`
}
