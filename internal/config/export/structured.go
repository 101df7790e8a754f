package export

import (
	"bytes"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	"github.com/dshills/dtshconf/internal/config/schema"
	"github.com/dshills/dtshconf/internal/config/store"
)

// jsonPath escapes the dots of a key part for sjson.
func jsonPath(part string) string {
	return strings.ReplaceAll(part, ".", `\.`)
}

// JSONPath returns the path of key in the JSON output, usable with gjson.
func JSONPath(key string) string {
	sec, name, ok := strings.Cut(key, ".")
	if !ok {
		sec, name = "", key
	}
	return jsonPath(sec) + "." + jsonPath(name)
}

func marshalJSON(entries []store.Entry) ([]byte, error) {
	out := []byte("{}")
	for _, e := range entries {
		var err error
		out, err = sjson.SetBytes(out, JSONPath(e.Key), e.Value.Any())
		if err != nil {
			return nil, err
		}
	}
	return pretty.Pretty(out), nil
}

func marshalYAML(entries []store.Entry) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, sec := range sections(entries) {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for i, e := range sec.entries {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: sec.names[i]},
				yamlScalar(e.Value),
			)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: sec.name},
			m,
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yamlScalar(v schema.Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch v.Type() {
	case schema.TypeBool:
		n.Tag = "!!bool"
		n.Value = "false"
		if v.Bool() {
			n.Value = "true"
		}
	case schema.TypeInt:
		n.Tag = "!!int"
		n.Value = v.String()
	case schema.TypeFloat:
		n.Tag = "!!float"
		n.Value = v.String()
	default:
		n.Tag = "!!str"
		n.Value = v.Str()
		// Quote what a plain scalar would lose or retype.
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func marshalTOML(entries []store.Entry) ([]byte, error) {
	tables := make(map[string]map[string]any)
	for _, sec := range sections(entries) {
		t := make(map[string]any, len(sec.entries))
		for i, e := range sec.entries {
			t[sec.names[i]] = e.Value.Any()
		}
		tables[sec.name] = t
	}
	return toml.Marshal(tables)
}
