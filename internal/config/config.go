// internal/config/config.go
//
// This package handles configuration and the .waypoint directory structure.
// Every project that uses waypoint gets a .waypoint/ folder created in its
// root, holding config.yaml and the session logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// WaypointDir is the name of the directory we create in each project.
	WaypointDir = ".waypoint"

	defaultWorkflowID = "tech_support"
)

const defaultProjectConfigYAML = `# waypoint project configuration
version: 1

engine:
  # Hard cap on decisions per session before the engine forces the terminal
  # outcome. Prevents a misbehaving rule set from spinning forever.
  max_iterations: 10
  # Response types that end the turn loop immediately.
  terminal_response_types:
    - answer
    - question
    - final
    - error

# Arbiter backends. The wizard offers these at startup; "offline" needs no
# key and scores candidates heuristically.
providers:
  - name: gemini
    model: gemini-2.0-flash
    api_key_env: GEMINI_API_KEY
  - name: offline

workflows:
  default: tech_support
`

// EngineConfig tunes the decision engine.
type EngineConfig struct {
	MaxIterations         int      `yaml:"max_iterations"`
	TerminalResponseTypes []string `yaml:"terminal_response_types"`
}

// ProviderConfig declares one arbiter backend entry.
type ProviderConfig struct {
	Name      string `yaml:"name"`
	Model     string `yaml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// WorkflowConfig captures workflow preferences.
type WorkflowConfig struct {
	Default string `yaml:"default"`
}

// ProjectConfig models .waypoint/config.yaml.
type ProjectConfig struct {
	Version   int              `yaml:"version"`
	Engine    EngineConfig     `yaml:"engine"`
	Providers []ProviderConfig `yaml:"providers"`
	Workflows WorkflowConfig   `yaml:"workflows"`
}

// Config holds the runtime configuration for waypoint.
type Config struct {
	// ProjectDir is the directory where the user ran `waypoint` from.
	ProjectDir string

	// WaypointProjectDir is ProjectDir/.waypoint.
	WaypointProjectDir string

	Project ProjectConfig
}

// InitWaypointDir creates the .waypoint directory structure in the given
// project directory and seeds a default config.yaml on first run.
//
// Structure created:
// .waypoint/
// ├── logs/        <- Routing and arbitration logs
// └── config.yaml  <- Engine and provider configuration
func InitWaypointDir(projectDir string) error {
	waypointDir := filepath.Join(projectDir, WaypointDir)

	if err := os.MkdirAll(filepath.Join(waypointDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", waypointDir, err)
	}

	configPath := filepath.Join(waypointDir, "config.yaml")
	if _, err := os.Stat(configPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: stat %s: %w", configPath, err)
		}
		if err := os.WriteFile(configPath, []byte(defaultProjectConfigYAML), 0o644); err != nil {
			return fmt.Errorf("config: write default config: %w", err)
		}
	}
	return nil
}

// Load reads .waypoint/config.yaml from the project directory. Missing or
// empty fields fall back to defaults so an older config file keeps working.
func Load(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:         projectDir,
		WaypointProjectDir: filepath.Join(projectDir, WaypointDir),
		Project:            defaultProjectConfig(),
	}

	configPath := filepath.Join(cfg.WaypointProjectDir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", configPath, err)
	}

	var project ProjectConfig
	if err := yaml.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
	}
	applyDefaults(&project)
	cfg.Project = project
	return cfg, nil
}

// DefaultWorkflowID returns the configured default workflow.
func (c *Config) DefaultWorkflowID() string {
	if c == nil || c.Project.Workflows.Default == "" {
		return defaultWorkflowID
	}
	return c.Project.Workflows.Default
}

// Provider looks up a provider entry by name.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	if c == nil {
		return ProviderConfig{}, false
	}
	for _, p := range c.Project.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

func defaultProjectConfig() ProjectConfig {
	var project ProjectConfig
	if err := yaml.Unmarshal([]byte(defaultProjectConfigYAML), &project); err != nil {
		// The embedded default must parse; a failure here is a build defect.
		panic(fmt.Sprintf("config: default config invalid: %v", err))
	}
	return project
}

func applyDefaults(project *ProjectConfig) {
	def := defaultProjectConfig()
	if project.Version == 0 {
		project.Version = def.Version
	}
	if project.Engine.MaxIterations <= 0 {
		project.Engine.MaxIterations = def.Engine.MaxIterations
	}
	if len(project.Engine.TerminalResponseTypes) == 0 {
		project.Engine.TerminalResponseTypes = def.Engine.TerminalResponseTypes
	}
	if len(project.Providers) == 0 {
		project.Providers = def.Providers
	}
	if project.Workflows.Default == "" {
		project.Workflows.Default = def.Workflows.Default
	}
}
