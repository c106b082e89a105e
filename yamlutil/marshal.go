package yamlutil

import (
	"bytes"

	"go.yaml.in/yaml/v3"
)

func MarshalWithIndent(v any, indent int) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(indent)
	if err := encoder.Encode(v); err != nil {
		_ = encoder.Close()
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalStrict decodes YAML and rejects fields the target type does
// not declare, so configuration typos surface as errors instead of
// silently ignored keys.
func UnmarshalStrict(content []byte, v any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	return decoder.Decode(v)
}
