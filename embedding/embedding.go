// Package embedding defines the contract to the external embedding model:
// text in, fixed-length L2-normalized vector out.
package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrUnavailable = errors.New("embedding provider unavailable")

const (
	DefaultProvider  = "ollama"
	DefaultBaseURL   = "http://localhost:11434"
	DefaultModel     = "all-minilm"
	DefaultDimension = 384
	DefaultTimeout   = Duration(30 * time.Second)
)

// Duration wraps time.Duration so config files can spell timeouts as "30s".
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() ([]byte, error) {
	str := d.Duration().String()
	return yaml.Marshal(str)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

type Config struct {
	Provider  string   `yaml:"provider"`
	BaseURL   string   `yaml:"baseURL"`
	Model     string   `yaml:"model"`
	Dimension int      `yaml:"dimension"`
	Timeout   Duration `yaml:"timeout"`
}

func (cfg *Config) ApplyDefaults() {
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
}

// Provider maps text to a vector of fixed dimensionality. Implementations
// must be deterministic for identical input and must L2-normalize their
// output, so that cosine similarity and dot-product ranking coincide.
//
// A provider performs its expensive one-time load lazily on first use;
// concurrent first callers share the same in-flight initialization. If the
// load fails, every subsequent Embed call fails with ErrUnavailable.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Normalize scales the vector to unit L2 norm in place and returns it.
// Zero vectors are returned unchanged.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}

	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}

	return vec
}
