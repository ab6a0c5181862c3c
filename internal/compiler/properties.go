package compiler

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/blockgrid/internal/project"
	"github.com/specialistvlad/blockgrid/internal/storage"
)

// PropertiesFile is the override file path inside a block folder.
const PropertiesFile = ".blockgrid/block_properties.yaml"

// YAMLProperties reads overrides from `<BlocksDir>/<folder>/` + PropertiesFile.
// A missing or empty file yields no overrides.
type YAMLProperties struct {
	Store     storage.Store
	BlocksDir string
}

var _ PropertySource = (*YAMLProperties)(nil)

func (y *YAMLProperties) BlockProperties(fn *project.Function) (map[string]any, error) {
	path := y.Store.Join(y.BlocksDir, project.FolderName(fn.Title, fn.ID), PropertiesFile)

	ok, err := y.Store.Exists(path)
	if err != nil || !ok {
		return map[string]any{}, err
	}
	data, err := y.Store.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseProperties(path, data)
}

// ParseProperties decodes a YAML mapping. Scalars and sequences are errors.
func ParseProperties(path string, data []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unable to parse block properties %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return map[string]any{}, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return map[string]any{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("invalid block properties format in %s: expected a mapping", path)
	}

	props := map[string]any{}
	if err := root.Decode(&props); err != nil {
		return nil, fmt.Errorf("unable to decode block properties %s: %w", path, err)
	}
	return props, nil
}
