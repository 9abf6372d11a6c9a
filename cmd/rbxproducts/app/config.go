package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// EnvPrefix prefixes the environment variables that mirror config keys,
// e.g. RBXPRODUCTS_FILE or RBXPRODUCTS_JOURNAL.
const EnvPrefix = "RBXPRODUCTS"

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Catalog settings
	File        string
	Overwrite   bool
	Yes         bool
	Concurrency int
	Journal     string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied later by UpdateFromFlags)
//  2. Environment variables
//  3. .env files
//  4. Config file (configFile, or .rbxproducts.yaml in $HOME or the working directory)
//  5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("file", constants.DefaultDeclaredFile)
	v.SetDefault("concurrency", 1)

	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".rbxproducts")
		// A missing default config file is fine.
		_ = v.ReadInConfig()
	}

	return &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color") || os.Getenv("NO_COLOR") != "",
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		File:        v.GetString("file"),
		Overwrite:   v.GetBool("overwrite"),
		Yes:         v.GetBool("yes"),
		Concurrency: v.GetInt("concurrency"),
		Journal:     v.GetString("journal"),

		// An empty level lets -v and -q decide.
		LogLevel:  firstNonEmpty(os.Getenv("LOG_LEVEL"), v.GetString("log.level")),
		LogFormat: firstNonEmpty(os.Getenv("LOG_FORMAT"), v.GetString("log.format"), "auto"),
		LogOutput: firstNonEmpty(os.Getenv("LOG_OUTPUT"), v.GetString("log.output"), "stderr"),
	}, nil
}

// Flags carries the values of the global command-line flags. A nil field
// means the flag was not given.
type Flags struct {
	Verbose   *bool
	Quiet     *bool
	NoColor   *bool
	Format    *string
	LogLevel  *string
	File      *string
	Overwrite *bool
	Yes       *bool
	Journal   *string
}

// UpdateFromFlags applies the flags that were given on the command line
// over the loaded values.
func (c *Config) UpdateFromFlags(f Flags) {
	setIf(&c.Verbose, f.Verbose)
	setIf(&c.Quiet, f.Quiet)
	setIf(&c.NoColor, f.NoColor)
	setIf(&c.Format, f.Format)
	setIf(&c.LogLevel, f.LogLevel)
	setIf(&c.File, f.File)
	setIf(&c.Overwrite, f.Overwrite)
	setIf(&c.Yes, f.Yes)
	setIf(&c.Journal, f.Journal)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// loadEnvFiles loads environment variables from .env files.
// Variables already set in the environment are not overridden.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
