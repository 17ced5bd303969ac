package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

const manifestFile = "plugin.json"

// Manager discovers plugins under a directory and serves lookups by name or event.
type Manager struct {
	pluginDir string
	plugins   map[string]*Plugin
	mu        sync.RWMutex
}

// NewManager creates a new plugin Manager with the given plugin directory.
func NewManager(pluginDir string) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		plugins:   make(map[string]*Plugin),
	}
}

// Discover scans the plugin directory for subdirectories holding a plugin.json
// manifest and replaces the known plugin set with what it finds. A missing
// directory yields no plugins. Unreadable or incomplete manifests are skipped.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	// A missing plugin directory is not an error
	info, err := os.Stat(m.pluginDir)
	switch {
	case os.IsNotExist(err):
		m.replace(found)
		return nil
	case err != nil:
		return err
	case !info.IsDir():
		m.replace(found)
		return nil
	}

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		return err
	}

	// Each subdirectory with a manifest is one plugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginPath := filepath.Join(m.pluginDir, entry.Name())
		p, err := loadPlugin(pluginPath)
		if err != nil {
			if !os.IsNotExist(err) {
				log.WithField("path", pluginPath).Warnf("skipping plugin: %v", err)
			}
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.replace(found)
	log.WithField("count", len(found)).Debug("plugins discovered")
	return nil
}

func loadPlugin(pluginPath string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(pluginPath, manifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	// Validate required fields
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}

	return &Plugin{
		Manifest:   manifest,
		Path:       pluginPath,
		Executable: filepath.Join(pluginPath, manifest.Executable),
	}, nil
}

func (m *Manager) replace(plugins map[string]*Plugin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plugins = plugins
}

// Get returns a plugin by name.
// Returns ErrPluginNotFound if the plugin does not exist.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}

	return plugin, nil
}

// List returns all discovered plugins ordered by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, plugin := range m.plugins {
		plugins = append(plugins, plugin)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})

	return plugins
}

// ForEvent returns the plugins subscribed to event ordered by name.
func (m *Manager) ForEvent(event string) []*Plugin {
	var out []*Plugin
	for _, p := range m.List() {
		if p.Manifest.Handles(event) {
			out = append(out, p)
		}
	}
	return out
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
