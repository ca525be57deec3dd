package animator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied over the config file and under flags
const (
	EnvFFmpeg     = "ANIMATOR_FFMPEG"
	EnvAnimateURL = "ANIMATOR_ANIMATE_URL"
	EnvConfig     = "ANIMATOR_CONFIG"
)

// LoadConfig layers configuration onto o: the YAML file at path (if any),
// then the environment (including a .env file), then the flags explicitly
// set on the command line, which always win. flags may be nil.
func LoadConfig(path string, o *Options, flags *pflag.FlagSet) error {
	set := map[string]string{}
	if flags != nil {
		flags.Visit(func(f *pflag.Flag) {
			set[f.Name] = f.Value.String()
		})
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, o); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvFFmpeg); v != "" {
		o.Encoder.FFmpegPath = v
	}
	if v := os.Getenv(EnvAnimateURL); v != "" {
		o.AnimateURL = v
	}

	for name, value := range set {
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("failed to reapply --%s: %w", name, err)
		}
	}
	return nil
}
