package env

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Environment variables read by zapgen.
const (
	VarLogLevel           = "ZAP_LOGLEVEL"
	VarTempState          = "ZAP_TEMPSTATE"
	VarStateDir           = "ZAP_DIR"
	VarSkipPostGeneration = "ZAP_SKIP_POST_GENERATION"
)

// DefaultStateDir is used when neither a flag nor ZAP_DIR names one.
const DefaultStateDir = "~/.zap"

// DefaultLogLevel is used when ZAP_LOGLEVEL is unset.
const DefaultLogLevel = "warn"

// Variable describes one environment variable for help output.
type Variable struct {
	Name        string
	Description string
}

// Variables lists the environment variables in help order.
var Variables = []Variable{
	{VarLogLevel, "Sets the log level. If unset, then default is: warn."},
	{VarTempState, "If set to 1, then instead of .zap, a unique temporary state directory will be created."},
	{VarStateDir, "Sets a state directory. Can be overridden by --stateDirectory option. If unset, default is: ~/.zap"},
	{VarSkipPostGeneration, "If there is a defined post-generation action, set this variable to 1 to skip it."},
}

// Settings are the environment-derived settings of one process.
type Settings struct {
	LogLevel           string
	TempState          bool
	StateDir           string
	SkipPostGeneration bool
}

// Load reads Settings from the process environment.
func Load() Settings {
	return LoadFrom(viper.New())
}

// LoadFrom reads Settings through v, binding the ZAP_* variables first.
func LoadFrom(v *viper.Viper) Settings {
	v.SetEnvPrefix("ZAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	_ = v.BindEnv("loglevel", VarLogLevel)
	_ = v.BindEnv("tempstate", VarTempState)
	_ = v.BindEnv("dir", VarStateDir)
	_ = v.BindEnv("skip-post-generation", VarSkipPostGeneration)
	v.SetDefault("loglevel", DefaultLogLevel)

	return Settings{
		LogLevel:           v.GetString("loglevel"),
		TempState:          isOne(v.GetString("tempstate")),
		StateDir:           v.GetString("dir"),
		SkipPostGeneration: isOne(v.GetString("skip-post-generation")),
	}
}

func isOne(s string) bool {
	s = strings.TrimSpace(s)
	return s == "1" || strings.EqualFold(s, "true")
}

// ResolveStateDir returns the state directory, creating it if needed.
//
// Precedence: the override argument (the --stateDirectory flag), then a
// unique temp directory when TempState is set, then ZAP_DIR, then ~/.zap.
// A leading "~/" is expanded to the user's home directory.
func (s Settings) ResolveStateDir(override string) (string, error) {
	var dir string
	switch {
	case strings.TrimSpace(override) != "":
		dir = override
	case s.TempState:
		tmp, err := os.MkdirTemp("", "zap.")
		if err != nil {
			return "", fmt.Errorf("create temporary state directory: %w", err)
		}
		return tmp, nil
	case strings.TrimSpace(s.StateDir) != "":
		dir = s.StateDir
	default:
		dir = DefaultStateDir
	}

	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("expand state directory %q: %w", dir, err)
	}
	expanded = filepath.Clean(expanded)
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}
	return expanded, nil
}
