package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MLPREP_"

// DefaultConfigFiles are searched in the working directory when no file is given.
var DefaultConfigFiles = []string{"mlprep.yaml", "mlprep.yml"}

// findConfigFile returns the explicit path, or the first default file present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// flagKeys maps flag names whose config key is not the snake_case form.
var flagKeys = map[string]string{
	"data":   "data_path",
	"output": "output_dir",
	"format": "output_format",
	"method": "cleaning_method",
}

// Load resolves the configuration from defaults, a YAML file, MLPREP_
// environment variables and explicitly set flags, in increasing priority.
// It returns the resolved config and the config file used, if any.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Defaults
	d := NewConfig()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"output_dir":          d.OutputDir,
		"output_format":       d.OutputFormat,
		"imputation_strategy": d.ImputationStrategy,
		"zero_variance":       d.ZeroVariance,
		"normalize":           d.Normalize,
		"workers":             d.Workers,
	}, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: MLPREP_CLEANING_METHOD -> cleaning_method
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those set explicitly
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg, err := decode(k)
	if err != nil {
		return nil, "", err
	}
	resolved := cfg.WithDefaults()
	if err := resolved.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return &resolved, used, nil
}

// decode unmarshals k into a Config. A comma separated string decodes into
// a list, so validation_columns may be written either way.
func decode(k *koanf.Koanf) (Config, error) {
	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	for i, v := range cfg.ValidationColumns {
		cfg.ValidationColumns[i] = strings.TrimSpace(v)
	}
	for i, v := range cfg.Features {
		cfg.Features[i] = strings.TrimSpace(v)
	}
	return cfg, nil
}
