package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeParams holds the parsed per-node parameter tree loaded from
// NodeParamsPath, grounded on original_source's get_node_params /
// get_global_param helpers (a flat "global" section plus a per-node
// override section, read once at startup and shared read-only
// thereafter).
type NodeParams struct {
	Global map[string]interface{}            `yaml:"global"`
	Nodes  map[string]map[string]interface{} `yaml:"nodes"`
}

// LoadNodeParams reads the YAML file at path. A missing path yields an
// empty NodeParams rather than an error, since every lookup already
// falls back to a caller-supplied default.
func LoadNodeParams(path string) (*NodeParams, error) {
	np := &NodeParams{
		Global: map[string]interface{}{},
		Nodes:  map[string]map[string]interface{}{},
	}
	if path == "" {
		return np, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return np, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read node params %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, np); err != nil {
		return nil, fmt.Errorf("parse node params %q: %w", path, err)
	}
	if np.Global == nil {
		np.Global = map[string]interface{}{}
	}
	if np.Nodes == nil {
		np.Nodes = map[string]map[string]interface{}{}
	}
	return np, nil
}

// Get resolves a parameter for a node: the node's own override first,
// then the global section, then def. Mirrors the original's
// get_node_params(node, key, default) precedence.
func (np *NodeParams) Get(node, key string, def interface{}) interface{} {
	if np == nil {
		return def
	}
	if section, ok := np.Nodes[node]; ok {
		if v, ok := section[key]; ok {
			return v
		}
	}
	if v, ok := np.Global[key]; ok {
		return v
	}
	return def
}

// GetString is Get with a string-typed default and result.
func (np *NodeParams) GetString(node, key, def string) string {
	v := np.Get(node, key, def)
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// GetFloat is Get with a float64-typed default and result.
func (np *NodeParams) GetFloat(node, key string, def float64) float64 {
	v := np.Get(node, key, def)
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

// GetInt is Get with an int-typed default and result.
func (np *NodeParams) GetInt(node, key string, def int) int {
	v := np.Get(node, key, def)
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return def
}

// GetBool is Get with a bool-typed default and result.
func (np *NodeParams) GetBool(node, key string, def bool) bool {
	v := np.Get(node, key, def)
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}
