package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads the yaml config file and merges environment overrides.
// Env vars use underscore separators: DB_URL overrides db.url.
func Load(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("can't read config %s: %w", file, err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8000)
	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.timeout", "20m")
	v.SetDefault("sweep.interval", "1m")
	v.SetDefault("sweep.maxAge", "30m")
	v.SetDefault("storage.localPrefix", "local/")
}
