package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix starts every recognized environment variable.
const EnvPrefix = "TENSORSCOPE_"

// Environ collects the TENSORSCOPE_* variables from the given dotenv files
// and the process environment. Missing files are skipped. The process
// environment wins over the files, and later files win over earlier ones.
func Environ(dotenv ...string) (map[string]string, error) {
	env := make(map[string]string)
	for _, path := range dotenv {
		vars, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for k, v := range vars {
			if strings.HasPrefix(k, EnvPrefix) {
				env[k] = v
			}
		}
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

// ApplyEnv overlays the recognized variables of env onto m. Unknown
// TENSORSCOPE_* names are ignored.
func (m *Model) ApplyEnv(env map[string]string) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := env[EnvPrefix+name]; ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := env[EnvPrefix+name]; ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := env[EnvPrefix+name]; ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("SERVER_URL", &m.Server.URL)
	str("WS_URL", &m.Server.WSURL)
	str("TRANSPORT", &m.Server.Transport)
	duration("TIMEOUT", &m.Server.Timeout)
	integer("MAX_RECONNECT_ATTEMPTS", &m.Connection.MaxReconnectAttempts)
	duration("RECONNECT_INTERVAL", &m.Connection.ReconnectInterval)
	duration("DEBOUNCE", &m.Pipeline.Debounce)
	str("LOG_LEVEL", &m.Log.Level)
	str("LOG_FORMAT", &m.Log.Format)
	integer("STATUS_PORT", &m.Status.Port)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// ApplyEnvFiles is Environ followed by ApplyEnv.
func ApplyEnvFiles(m *Model, dotenv ...string) error {
	env, err := Environ(dotenv...)
	if err != nil {
		return err
	}
	return m.ApplyEnv(env)
}
