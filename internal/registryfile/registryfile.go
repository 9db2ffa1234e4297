// Package registryfile decodes the YAML or JSON files that back the endpoint
// and publisher registries.
package registryfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type decoder struct {
	name string
	ext  string
	fn   func([]byte, any) error
}

var decoders = []decoder{
	{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
	{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
	{name: "json", ext: ".json", fn: json.Unmarshal},
}

// Load reads path and decodes it into out. The extension picks the decoder;
// a file without one is tried as YAML, then JSON. kind names the registry in
// errors ("endpoints", "publishers").
func Load(path, kind string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%s file path is empty", kind)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", kind, err)
	}
	return Decode(raw, filepath.Ext(path), kind, out)
}

// Decode decodes data into out using the decoder for ext.
func Decode(data []byte, ext, kind string, out any) error {
	ext = strings.ToLower(strings.TrimSpace(ext))

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if err := d.fn(data, out); err != nil {
			errs = append(errs, fmt.Errorf("decode %s %s: %w", d.name, kind, err))
			continue
		}
		return nil
	}

	if len(errs) == 0 {
		return fmt.Errorf("%s file format not recognized (expected YAML or JSON)", kind)
	}
	return errors.Join(errs...)
}
