package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Swind/go-task-profiler/profile"
)

// =============================================================================
// ResultSerializer Interface
// =============================================================================

// ResultSerializer encodes a SessionResult for output.
type ResultSerializer interface {
	// Serialize converts a result to bytes
	Serialize(result profile.SessionResult) ([]byte, error)

	// Name returns the format name used on the command line
	Name() string
}

// SerializerFor returns the serializer registered under name.
func SerializerFor(name string) (ResultSerializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return NewJSONSerializer(), nil
	case "yaml", "yml":
		return NewYAMLSerializer(), nil
	case "toml":
		return NewTOMLSerializer(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}

// =============================================================================
// JSONSerializer Implementation
// =============================================================================

// JSONSerializer writes indented JSON.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

func (s *JSONSerializer) Serialize(result profile.SessionResult) ([]byte, error) {
	data, err := json.MarshalIndent(normalize(result), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json marshal failed: %w", err)
	}
	return append(data, '\n'), nil
}

func (s *JSONSerializer) Name() string {
	return "json"
}

// =============================================================================
// YAMLSerializer Implementation
// =============================================================================

// YAMLSerializer writes YAML with two-space indentation.
type YAMLSerializer struct{}

// NewYAMLSerializer creates a new YAML serializer
func NewYAMLSerializer() *YAMLSerializer {
	return &YAMLSerializer{}
}

func (s *YAMLSerializer) Serialize(result profile.SessionResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(normalize(result)); err != nil {
		return nil, fmt.Errorf("yaml marshal failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("yaml marshal failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *YAMLSerializer) Name() string {
	return "yaml"
}

// =============================================================================
// TOMLSerializer Implementation
// =============================================================================

// TOMLSerializer writes TOML, one [[timelines]] table per worker.
type TOMLSerializer struct{}

// NewTOMLSerializer creates a new TOML serializer
func NewTOMLSerializer() *TOMLSerializer {
	return &TOMLSerializer{}
}

func (s *TOMLSerializer) Serialize(result profile.SessionResult) ([]byte, error) {
	data, err := toml.Marshal(normalize(result))
	if err != nil {
		return nil, fmt.Errorf("toml marshal failed: %w", err)
	}
	return data, nil
}

func (s *TOMLSerializer) Name() string {
	return "toml"
}

// normalize replaces nil slices so every format writes an empty list rather
// than null.
func normalize(result profile.SessionResult) profile.SessionResult {
	timelines := make([]profile.WorkerTimeline, len(result.Timelines))
	copy(timelines, result.Timelines)
	for i := range timelines {
		if timelines[i].Intervals == nil {
			timelines[i].Intervals = []profile.Interval{}
		}
	}
	result.Timelines = timelines
	return result
}
