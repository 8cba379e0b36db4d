package relay

import (
	"fmt"
	"os"
	"strconv"

	"github.com/creasty/defaults"
	"sigs.k8s.io/yaml"
)

// Valves is the user-facing configuration of the relay, mirroring the
// knobs exposed in the Open WebUI admin panel.
type Valves struct {
	// BaseURL is the base request URL for the DeepSeek-compatible API.
	BaseURL string `json:"base_url" default:"https://api.siliconflow.com/v1"`
	// APIKey authenticates against the API. Streaming is refused when
	// it is empty.
	APIKey string `json:"api_key"`
	// Model names the model(s) for API requests. Multiple models are
	// separated with commas.
	Model string `json:"model" default:"deepseek-reasoner"`
	// TimeoutSeconds bounds one full streamed response.
	TimeoutSeconds int `json:"timeout_seconds" default:"300"`
}

// DefaultValves returns Valves with every default applied.
func DefaultValves() Valves {
	var v Valves
	// Only fails on non-struct input.
	_ = defaults.Set(&v)
	return v
}

// LoadValves reads Valves from a YAML file, filling unset fields with
// their defaults.
func LoadValves(path string) (Valves, error) {
	v := DefaultValves()
	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("failed to read valves file: %w", err)
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to parse valves file: %w", err)
	}
	return v, nil
}

// ValvesFromEnv builds Valves from RELAY_* environment variables,
// falling back to defaults for anything unset.
func ValvesFromEnv() Valves {
	v := DefaultValves()
	if s := os.Getenv("RELAY_BASE_URL"); s != "" {
		v.BaseURL = s
	}
	if s := os.Getenv("RELAY_API_KEY"); s != "" {
		v.APIKey = s
	}
	if s := os.Getenv("RELAY_MODEL"); s != "" {
		v.Model = s
	}
	if s := os.Getenv("RELAY_TIMEOUT_SECONDS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			v.TimeoutSeconds = n
		}
	}
	return v
}
