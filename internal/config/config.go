package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

// Config holds everything the binary needs at startup.
type Config struct {
	Listen     string  `koanf:"listen" validate:"required,hostname_port"`
	DataDir    string  `koanf:"data_dir" validate:"required"`
	Database   string  `koanf:"database" validate:"required"`
	ReposDir   string  `koanf:"repos_dir" validate:"required"`
	EssayPath  string  `koanf:"essay"` // optional teacher-authored essay definition
	DailyLimit int     `koanf:"daily_limit" validate:"gte=1"`
	StudyMode  string  `koanf:"study_mode" validate:"oneof=mixed mc typing audio"`
	SpeechRate float64 `koanf:"speech_rate" validate:"gt=0"`
}

// Load merges flags, an optional YAML config file and STUDYDESK_*
// environment variables, flags winning. args is os.Args[1:].
func Load(args []string) (*Config, error) {
	f := flag.NewFlagSet("studydesk", flag.ContinueOnError)
	f.String("config", "", "path to a YAML config file")
	f.String("listen", "127.0.0.1:8080", "address to serve the UI on")
	f.String("data-dir", "data", "directory for the persisted JSON documents")
	f.String("database", "studydesk.db", "path to the SQLite review log")
	f.String("repos-dir", "repos", "directory git deck sources are cloned into")
	f.String("essay", "", "path to an essay definition JSON file")
	f.Int("daily-limit", 20, "maximum cards per study session")
	f.String("study-mode", "mixed", "default task mode: mixed, mc, typing or audio")
	f.Float64("speech-rate", 1.0, "speech synthesis rate multiplier")
	if err := f.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// STUDYDESK_DAILY_LIMIT -> daily_limit
	if err := k.Load(env.Provider("STUDYDESK_", ".", func(s string) string {
		return stripPrefixLower(s, "STUDYDESK_")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(pf *flag.Flag) (string, any) {
		return normalizeFlagName(pf.Name), posflag.FlagVal(f, pf)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func stripPrefixLower(s, prefix string) string {
	out := make([]byte, 0, len(s))
	for i := len(prefix); i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// normalizeFlagName maps kebab-case flag names onto the snake_case keys
// used by the file and env providers.
func normalizeFlagName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '-' {
			out = append(out, '_')
			continue
		}
		out = append(out, name[i])
	}
	return string(out)
}

// ExpandDataDir resolves the data directory, creating it when absent.
func (c *Config) ExpandDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", c.DataDir, err)
	}
	return nil
}
