package config

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// InitLog configures the global zerolog logger from config.
// logger.level sets the level, logger.json switches off the console writer.
func InitLog(c *viper.Viper) {
	level := zerolog.InfoLevel
	if s := c.GetString("logger.level"); s != "" {
		if l, err := zerolog.ParseLevel(s); err == nil {
			level = l
		} else {
			log.Warn().Str("level", s).Msg("unknown log level")
		}
	}
	zerolog.SetGlobalLevel(level)
	if !c.GetBool("logger.json") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
