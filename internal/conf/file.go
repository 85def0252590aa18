package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rehanumarkhan/tele-monitor/internal/logging"
)

// LoadFile overlays a YAML configuration file onto cfg.
// With an empty path the usual locations are searched; finding no file is not an error.
func LoadFile(configPath string, cfg *Config) error {
	log := logging.Component("Config")

	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/monitor.yaml",
			"/etc/tele-monitor/monitor.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "monitor.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err == nil {
			data = content
			loadedPath = p
			break
		}
		if configPath != "" {
			return fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	if data == nil {
		log.Debug().Msg("no monitor.yaml found, using defaults and environment")
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", loadedPath, err)
	}
	log.Info().Str("path", loadedPath).Msg("loaded config file")
	return nil
}
