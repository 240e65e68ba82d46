package embedding

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestConfigYAMLUnmarshal(t *testing.T) {
	assert := assert.New(t)

	input := `provider: ollama
baseURL: http://localhost:11434
model: all-minilm
dimension: 384
timeout: 45s`

	var cfg Config
	if err := yaml.Unmarshal([]byte(input), &cfg); err != nil {
		assert.Fail(err.Error())
		return
	}

	assert.Equal("ollama", cfg.Provider)
	assert.Equal("all-minilm", cfg.Model)
	assert.Equal(384, cfg.Dimension)
	assert.Equal(45*time.Second, cfg.Timeout.Duration())
}

func TestConfigDefaults(t *testing.T) {
	assert := assert.New(t)

	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(DefaultProvider, cfg.Provider)
	assert.Equal(DefaultBaseURL, cfg.BaseURL)
	assert.Equal(DefaultModel, cfg.Model)
	assert.Equal(DefaultDimension, cfg.Dimension)
	assert.Equal(30*time.Second, cfg.Timeout.Duration())
}

func TestNormalize(t *testing.T) {
	assert := assert.New(t)

	vec := Normalize([]float32{3, 4})

	assert.InDelta(0.6, vec[0], 1e-6)
	assert.InDelta(0.8, vec[1], 1e-6)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	assert.InDelta(1.0, math.Sqrt(sum), 1e-6)
}

func TestNormalizeZeroVector(t *testing.T) {
	assert := assert.New(t)

	vec := Normalize([]float32{0, 0, 0})

	assert.Equal([]float32{0, 0, 0}, vec)
}
