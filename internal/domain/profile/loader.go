package profile

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var builtins embed.FS

// Parse decodes and validates one YAML profile. Unknown keys are rejected
// and missing values stay zero, so an incomplete profile fails validation.
func Parse(data []byte) (Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Profile{}, fmt.Errorf("%w: empty document", ErrInvalidProfile)
		}
		return Profile{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// LoadFile reads a profile from disk.
func LoadFile(filename string) (Profile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrLoadProfile, err)
	}
	return Parse(data)
}

// Builtin returns one of the embedded profiles by name.
func Builtin(name string) (Profile, error) {
	data, err := builtins.ReadFile(path.Join("profiles", name+".yaml"))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return Parse(data)
}

// BuiltinNames lists the embedded profiles in lexical order.
func BuiltinNames() []string {
	entries, err := builtins.ReadDir("profiles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Resolve loads filename when set, otherwise the built-in named name.
func Resolve(name, filename string) (Profile, error) {
	if filename != "" {
		return LoadFile(filename)
	}
	return Builtin(name)
}
