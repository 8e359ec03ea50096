// Package appspec builds the AppSpec manifest submitted with a staged
// (blue/green) deployment. The manifest is produced from a user template
// file (YAML or JSON) or from a compiled-in default scaffold, with every
// target-service task-definition reference rewritten to the freshly
// registered revision, then serialized as ordered-key JSON. The SHA-256
// of that exact byte sequence travels with the content, so serialization
// must be deterministic.
package appspec

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultTemplate is the scaffold used when no template file is given.
// Load-balancer binding fields are placeholders the operator is expected
// to override with a real template in anything but a sample setup.
const defaultTemplate = `version: "0.0"
Resources:
  - TargetService:
      Type: AWS::ECS::Service
      Properties:
        TaskDefinition: "<TASK_DEFINITION>"
        LoadBalancerInfo:
          ContainerName: "sample-app"
          ContainerPort: 80
`

// ErrMissingResources is returned when the template has no Resources list.
var ErrMissingResources = errors.New("AppSpec file must include property 'resources'")

// Manifest is the serialized AppSpec content and its integrity digest.
type Manifest struct {
	Content string
	SHA256  string
}

// Build produces the deployment manifest for taskDefArn. templatePath
// selects the template file; when empty the default scaffold is used.
// Relative paths are resolved against root.
func Build(templatePath, root, taskDefArn string) (*Manifest, error) {
	data := []byte(defaultTemplate)
	if templatePath != "" {
		if !filepath.IsAbs(templatePath) && root != "" {
			templatePath = filepath.Join(root, templatePath)
		}
		b, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read AppSpec file: %w", err)
		}
		data = b
	}
	return build(data, taskDefArn)
}

func build(data []byte, taskDefArn string) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse AppSpec file: %w", err)
	}
	root := documentRoot(&doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, ErrMissingResources
	}

	resources := mappingValue(root, "Resources")
	if resources == nil {
		return nil, ErrMissingResources
	}
	rewriteTaskDefinitions(resources, taskDefArn)

	var buf bytes.Buffer
	if err := encodeJSON(&buf, root); err != nil {
		return nil, fmt.Errorf("failed to serialize AppSpec content: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return &Manifest{
		Content: buf.String(),
		SHA256:  hex.EncodeToString(sum[:]),
	}, nil
}

// rewriteTaskDefinitions points every resource entry that carries a
// target-service TaskDefinition property at taskDefArn. Templates with
// multiple resource entries have all of them rewritten.
func rewriteTaskDefinitions(resources *yaml.Node, taskDefArn string) {
	if resources.Kind != yaml.SequenceNode {
		return
	}
	for _, entry := range resources.Content {
		if entry.Kind != yaml.MappingNode {
			continue
		}
		for i := 1; i < len(entry.Content); i += 2 {
			target := entry.Content[i]
			if target.Kind != yaml.MappingNode {
				continue
			}
			props := mappingValue(target, "Properties")
			if props == nil || props.Kind != yaml.MappingNode {
				continue
			}
			if td := mappingValue(props, "TaskDefinition"); td != nil {
				td.Kind = yaml.ScalarNode
				td.Tag = "!!str"
				td.Value = taskDefArn
				td.Style = 0
				td.Content = nil
			}
		}
	}
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

// mappingValue returns the value node for key in a mapping node, or nil.
// Key comparison is exact; AppSpec property names are case-sensitive.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// encodeJSON writes n as JSON, preserving the mapping key order of the
// source document. The output bytes are the digest input, so every
// scalar is rendered in a single normalized form.
func encodeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return encodeJSON(buf, n.Content[0])
	case yaml.AliasNode:
		return encodeJSON(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := encodeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		return encodeScalar(buf, n)
	default:
		return fmt.Errorf("unsupported node kind %d", n.Kind)
	}
}

func encodeScalar(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Tag {
	case "!!null":
		buf.WriteString("null")
		return nil
	case "!!bool":
		b, err := strconv.ParseBool(strings.ToLower(n.Value))
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", n.Value, err)
		}
		buf.WriteString(strconv.FormatBool(b))
		return nil
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", n.Value, err)
		}
		buf.WriteString(strconv.FormatInt(v, 10))
		return nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return fmt.Errorf("invalid float %q: %w", n.Value, err)
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		return nil
	default:
		s, err := json.Marshal(n.Value)
		if err != nil {
			return err
		}
		buf.Write(s)
		return nil
	}
}
