package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/naval-duel/game/engine"
	"github.com/wricardo/naval-duel/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultConfigName is the rule set used when none is requested
const DefaultConfigName = "classic"

// extensions lists the rule-set file suffixes in lookup order. JSON files
// parse as YAML, so one decoder serves all of them.
var extensions = []string{".yaml", ".yml", ".json"}

// Manager handles rule-set loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.Rules
	configs       map[string]*engine.Rules
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.Rules),
	}

	m.loadDefaultConfig()
	return m, nil
}

// LoadConfig loads a rule set by name, with or without its file extension
func (m *Manager) LoadConfig(name string) (*engine.Rules, error) {
	name = trimExtension(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, name)
	}

	m.mu.RLock()
	// Check cache first
	if rules, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return rules, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if rules, exists := m.configs[name]; exists {
		return rules, nil
	}

	data, err := m.readConfigFile(name)
	if err != nil {
		return nil, err
	}

	// Start from the defaults so omitted fields keep sensible values
	rules := engine.DefaultRules()
	rules.Name = name
	rules.Description = ""
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, name, err)
	}

	if err := engine.ValidateRules(&rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[name] = &rules
	return &rules, nil
}

// ListConfigs returns information about all valid rule sets in the directory
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	configs := []*service.ConfigInfo{}
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !hasConfigExtension(entry.Name()) {
			continue
		}

		id := trimExtension(entry.Name())
		if seen[id] {
			continue
		}
		seen[id] = true

		rules, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid configs
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:     entry.Name(),
			ConfigID:     id,
			Name:         rules.Name,
			Description:  rules.Description,
			BoardSize:    rules.BoardSize,
			GraceSeconds: rules.GraceSeconds,
			StrictTurns:  rules.StrictTurns,
		})
	}

	return configs, nil
}

// GetDefault returns the default rule set
func (m *Manager) GetDefault() *engine.Rules {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default rule set by name
func (m *Manager) SetDefault(name string) error {
	rules, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = rules
	return nil
}

// RefreshCache drops cached rule sets so the next load rereads the files
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*engine.Rules)
	m.mu.Unlock()

	m.loadDefaultConfig()
}

// loadDefaultConfig picks classic, else the first valid file, else built-in defaults
func (m *Manager) loadDefaultConfig() {
	rules, err := m.LoadConfig(DefaultConfigName)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr == nil && len(configs) > 0 {
			rules, err = m.LoadConfig(configs[0].ConfigID)
		}
	}
	if err != nil || rules == nil {
		fallback := engine.DefaultRules()
		rules = &fallback
	}

	m.mu.Lock()
	m.defaultConfig = rules
	m.mu.Unlock()
}

// readConfigFile finds the file for name under any supported extension
func (m *Manager) readConfigFile(name string) ([]byte, error) {
	for _, ext := range extensions {
		data, err := os.ReadFile(filepath.Join(m.configDir, name+ext))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, name)
}

func hasConfigExtension(filename string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}

func trimExtension(name string) string {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
