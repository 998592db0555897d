package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host string `env:"HOST,required=true"`
	Port int    `env:"PORT,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`

	JWTSecret   string        `env:"JWT_SECRET,required=true"`
	AuthTimeout time.Duration `env:"AUTH_TIMEOUT,required=true"`

	// Channels are static "id=name" declarations, comma separated; a bare id
	// doubles as its own name.
	Channels []string `env:"CHANNELS,required=true,separator=,"`

	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,required=true"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`

	CharReplacement string   `env:"CHARACTER_REPLACEMENT,required=true"`
	LimitMessages   int      `env:"LIMIT_MESSAGES"`
	AllowedOrigins  []string `env:"ALLOWED_ORIGINS,separator=,"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
