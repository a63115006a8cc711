package common

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

//go:embed config.default.yaml
var defaultConfig []byte

// ConfigPathEnv names the environment variable holding an override config file
const ConfigPathEnv = "CONFIG_PATH"

// ConfigManager loads layered configuration: embedded defaults, then the file
// named by CONFIG_PATH, then any explicit paths in order.
type ConfigManager[T any] struct {
	kf *koanf.Koanf
}

// NewConfigManager creates a config manager with defaults and overrides loaded
func NewConfigManager[T any](paths ...string) (*ConfigManager[T], error) {
	cm := &ConfigManager[T]{kf: koanf.New(".")}

	if err := cm.kf.Load(rawbytes.Provider(defaultConfig), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if envPath := os.Getenv(ConfigPathEnv); envPath != "" {
		paths = append([]string{envPath}, paths...)
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := cm.LoadFile(path); err != nil {
			return nil, err
		}
	}

	return cm, nil
}

// LoadFile merges a YAML or JSON file over the current configuration
func (cm *ConfigManager[T]) LoadFile(path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parser = json.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return fmt.Errorf("unsupported config file extension: %s", path)
	}

	if err := cm.kf.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("loaded config file")
	return nil
}

// GetConfig decodes the merged configuration into T
func (cm *ConfigManager[T]) GetConfig() (T, error) {
	var config T
	if err := cm.unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, nil
}

// Set overrides a single dotted config key
func (cm *ConfigManager[T]) Set(key string, value any) error {
	return cm.kf.Set(key, value)
}

func (cm *ConfigManager[T]) unmarshal(out *T) error {
	return cm.kf.UnmarshalWithConf("", out, koanf.UnmarshalConf{
		Tag: "key",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           out,
			WeaklyTypedInput: true,
		},
	})
}
