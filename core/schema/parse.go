package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// listFile is the YAML shape of a list definition. Fields are kept as
// a raw node so declaration order survives decoding (a plain map would
// lose it).
type listFile struct {
	Key    string    `yaml:"list"`
	Fields yaml.Node `yaml:"fields"`
}

// Parse parses a single list definition from YAML bytes.
func Parse(data []byte) (List, error) {
	var lf listFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return List{}, fmt.Errorf("parse yaml: %w", err)
	}

	if lf.Key == "" {
		return List{}, fmt.Errorf("list key is required")
	}

	l := List{Key: lf.Key}

	if lf.Fields.Kind != 0 {
		if lf.Fields.Kind != yaml.MappingNode {
			return List{}, fmt.Errorf("list %q: fields must be a mapping", lf.Key)
		}
		// Mapping nodes hold alternating key/value children.
		for i := 0; i+1 < len(lf.Fields.Content); i += 2 {
			keyNode := lf.Fields.Content[i]
			valNode := lf.Fields.Content[i+1]

			var f Field
			if err := valNode.Decode(&f); err != nil {
				return List{}, fmt.Errorf("list %q: field %q: %w", lf.Key, keyNode.Value, err)
			}
			f.Name = keyNode.Value
			l.Fields = append(l.Fields, f)
		}
	}

	return l, nil
}

// ParseFile parses a list definition from a YAML file.
func ParseFile(path string) (List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return List{}, fmt.Errorf("read file %s: %w", path, err)
	}
	l, err := Parse(data)
	if err != nil {
		return List{}, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// ParseDir parses all list definitions from a directory, including
// subdirectories. The collected set is validated as a whole so
// cross-list refs resolve.
func ParseDir(dir string) (Lists, error) {
	lists, err := parseDir(dir)
	if err != nil {
		return nil, err
	}
	if err := Validate(lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func parseDir(dir string) (Lists, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var lists Lists
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := parseDir(path)
			if err != nil {
				return nil, err
			}
			lists = append(lists, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		l, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}

	return lists, nil
}
