package tmconf

import "github.com/NicolasMassart/tessera/pkg/confutil"

// LogConfig controls the ambient logrus-backed logger.
type LogConfig struct {
	Level      *string `json:"level"`
	Format     *string `json:"format"`
	Filename   *string `json:"filename"`
	MaxSizeMB  *int    `json:"maxSizeMB"`
	MaxBackups *int    `json:"maxBackups"`
	MaxAgeDays *int    `json:"maxAgeDays"`
	Compress   *bool   `json:"compress"`
}

// LogDefaults is the zero-config logging setup: info level, prefixed
// console formatter, no file rotation.
var LogDefaults = &LogConfig{
	Level:  confutil.P("info"),
	Format: confutil.P("prefixed"),
}
