package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	BreakerConfig struct {
		MaxFailures uint32
		OpenTimeout time.Duration
	}

	Config struct {
		Env            string
		AppName        string
		Build          string
		Debug          bool
		TestMode       bool
		APIURL         string
		RequestTimeout time.Duration
		SessionFile    string
		RollbarToken   string
		ThemeCacheTTL  time.Duration
		Breaker        BreakerConfig
	}
)

// ConfigDir is where the session file and the .env.<env> files live.
func ConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "schooladmin")
}

func newViper(env string) *viper.Viper {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", false)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "schooladmin")
	v.SetDefault("build", "dev")
	v.SetDefault("apiURL", "http://localhost:8000")
	v.SetDefault("requestTimeout", 30*time.Second)
	v.SetDefault("sessionFile", filepath.Join(ConfigDir(), "session.json"))
	v.SetDefault("rollbarToken", "")
	v.SetDefault("themeCacheTTL", 5*time.Minute)
	v.SetDefault("breaker.maxFailures", 3)
	v.SetDefault("breaker.openTimeout", 30*time.Second)

	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	v.SetEnvPrefix("SCHOOLADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the configuration of the current ENV (DEV by default).
// A .env.<env> file in ConfigDir() is loaded first if it exists.
func LoadConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	dotEnvPath := filepath.Join(ConfigDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	v := newViper(env)
	conf := &Config{
		Env:            env,
		AppName:        v.GetString("appName"),
		Build:          v.GetString("build"),
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		APIURL:         strings.TrimRight(v.GetString("apiURL"), "/"),
		RequestTimeout: v.GetDuration("requestTimeout"),
		SessionFile:    v.GetString("sessionFile"),
		RollbarToken:   v.GetString("rollbarToken"),
		ThemeCacheTTL:  v.GetDuration("themeCacheTTL"),
		Breaker: BreakerConfig{
			MaxFailures: v.GetUint32("breaker.maxFailures"),
			OpenTimeout: v.GetDuration("breaker.openTimeout"),
		},
	}
	if conf.APIURL == "" {
		return nil, errors.New("apiURL is required")
	}
	return conf, nil
}
