package frame

import (
	"fmt"

	"sigs.k8s.io/yaml"
)

// ExprConfig is the serialized form of NewExpr's arguments, for hosts
// that keep filter setup in a config file rather than Go code. Field
// names follow the same lowerCamelCase-via-json-tag convention as the
// teacher's table Definition struct.
type ExprConfig struct {
	Exprs    []string `json:"exprs"`
	Opt      int      `json:"opt,omitempty"`
	Boundary string   `json:"boundary,omitempty"` // "clamp" (default) or "mirror"
}

// ParseExprConfig decodes an Expr filter configuration from YAML or
// JSON (sigs.k8s.io/yaml accepts both).
func ParseExprConfig(data []byte) (*ExprConfig, error) {
	var cfg ExprConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing Expr config: %w", err)
	}
	return &cfg, nil
}

// NewExprFromConfig builds an ExprFilter from a parsed config plus the
// host-supplied clips and output formats.
func NewExprFromConfig(clips []Clip, cfg *ExprConfig, outFormat []PixelFormat) (*ExprFilter, error) {
	return NewExpr(clips, cfg.Exprs, outFormat, cfg.Opt, cfg.boundaryOpt())
}

func (cfg *ExprConfig) boundaryOpt() int {
	if cfg.Boundary == "mirror" {
		return 1
	}
	return 0
}

// SelectConfig is the serialized form of NewSelect's per-plane
// expression list.
type SelectConfig struct {
	Exprs []string `json:"exprs"`
}

// ParseSelectConfig decodes a Select filter configuration from YAML or
// JSON.
func ParseSelectConfig(data []byte) (*SelectConfig, error) {
	var cfg SelectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing Select config: %w", err)
	}
	return &cfg, nil
}

// NewSelectFromConfig builds a SelectFilter from a parsed config plus
// the host-supplied source and property clips.
func NewSelectFromConfig(srcClips, propClips []Clip, cfg *SelectConfig) (*SelectFilter, error) {
	return NewSelect(srcClips, propClips, cfg.Exprs)
}

// PropExprConfig is the serialized form of NewPropExpr's property
// dictionary.
type PropExprConfig struct {
	Dict map[string]DictValue `json:"dict"`
}

// ParsePropExprConfig decodes a PropExpr filter configuration from
// YAML or JSON. Dict entries decode the same way a literal dict value
// passed directly to NewPropExpr would: scalars stay scalars, and
// lists of scalars become per-frame-index cycles.
func ParsePropExprConfig(data []byte) (*PropExprConfig, error) {
	var cfg PropExprConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing PropExpr config: %w", err)
	}
	return &cfg, nil
}

// NewPropExprFromConfig builds a PropExprFilter from a parsed config.
func NewPropExprFromConfig(clips []Clip, cfg *PropExprConfig) (*PropExprFilter, error) {
	return NewPropExpr(clips, cfg.Dict)
}
