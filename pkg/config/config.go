// Package config is for app wide settings that are unmarshalled
// from Viper (see: cmd/lipidquant)
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/ChrisMcGann/lipidquant/pkg/aggregate"
	"github.com/ChrisMcGann/lipidquant/pkg/filter"
	"github.com/ChrisMcGann/lipidquant/pkg/isotope"
	"github.com/ChrisMcGann/lipidquant/pkg/translate"
)

// EnvPrefix is prepended to every environment override, e.g. LIPIDQUANT_ISOTOPES_COUNT
const EnvPrefix = "LIPIDQUANT"

// IsotopeConfig settings for the isotope calculator
type IsotopeConfig struct {
	// number of isotope peaks predicted per modification
	Count int `mapstructure:"count"`

	// how long a predicted distribution stays cached
	CacheTTL time.Duration `mapstructure:"cache-ttl"`
}

// StandardsConfig holds the name prefixes marking standards
type StandardsConfig struct {
	InternalPrefix string `mapstructure:"internal-prefix"`
	ExternalPrefix string `mapstructure:"external-prefix"`
}

// FilterConfig mirrors filter.Config
type FilterConfig struct {
	MaxIsotopes   int      `mapstructure:"max-isotopes"`
	AreaCutoff    float64  `mapstructure:"area-cutoff"`
	MinArea       float64  `mapstructure:"min-area"`
	Modifications []string `mapstructure:"modifications"`
	ChainTopN     int      `mapstructure:"chain-top-n"`
}

// TranslateConfig settings for chromatogram translation
type TranslateConfig struct {
	// external command; {file}, {format} and {pieces} are substituted
	Command string `mapstructure:"command"`

	Format       string        `mapstructure:"format"`
	MaxPieceMB   int64         `mapstructure:"max-piece-mb"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
}

// Config is the root-level settings struct and is a mix
// of settings available in a YAML file, the environment and
// those available from the command line
type Config struct {
	// path to the SQLite reference library
	Library string `mapstructure:"library"`
	// CSV overrides, used when no library is given
	Elements string `mapstructure:"elements"`
	Adducts  string `mapstructure:"adducts"`
	Rules    string `mapstructure:"rules"`

	Isotopes  IsotopeConfig   `mapstructure:"isotopes"`
	Standards StandardsConfig `mapstructure:"standards"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Translate TranslateConfig `mapstructure:"translate"`
}

// SetDefaults registers the default of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("isotopes.count", 3)
	v.SetDefault("isotopes.cache-ttl", isotope.DefaultCacheTTL)
	v.SetDefault("standards.internal-prefix", aggregate.DefaultInternalStandardPrefix)
	v.SetDefault("standards.external-prefix", aggregate.DefaultExternalStandardPrefix)
	v.SetDefault("filter.max-isotopes", 0)
	v.SetDefault("filter.area-cutoff", 0.0)
	v.SetDefault("filter.min-area", 0.0)
	v.SetDefault("filter.modifications", []string{})
	v.SetDefault("filter.chain-top-n", 0)
	v.SetDefault("translate.command", "")
	v.SetDefault("translate.format", translate.DefaultFormat)
	v.SetDefault("translate.max-piece-mb", translate.DefaultMaxPieceMB)
	v.SetDefault("translate.poll-interval", time.Second)
}

// NewViper returns a viper instance with defaults and environment binding.
// configFile is optional; when set it must exist.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	return v, nil
}

// New decodes and validates the settings held by v
func New(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every invalid setting
func (c Config) Validate() error {
	var errs *multierror.Error
	if c.Isotopes.Count < 1 {
		errs = multierror.Append(errs, fmt.Errorf("isotopes.count must be at least 1, got %d", c.Isotopes.Count))
	}
	if c.Isotopes.CacheTTL < 0 {
		errs = multierror.Append(errs, fmt.Errorf("isotopes.cache-ttl must not be negative"))
	}
	if c.Filter.AreaCutoff < 0 || c.Filter.AreaCutoff > 100 {
		errs = multierror.Append(errs, fmt.Errorf("filter.area-cutoff must be within 0-100, got %g", c.Filter.AreaCutoff))
	}
	if c.Filter.MaxIsotopes < 0 || c.Filter.ChainTopN < 0 {
		errs = multierror.Append(errs, errors.New("filter limits must not be negative"))
	}
	if c.Translate.MaxPieceMB < 1 {
		errs = multierror.Append(errs, fmt.Errorf("translate.max-piece-mb must be at least 1, got %d", c.Translate.MaxPieceMB))
	}
	if c.Translate.PollInterval <= 0 {
		errs = multierror.Append(errs, errors.New("translate.poll-interval must be positive"))
	}
	return errs.ErrorOrNil()
}

// HitFilter returns the hit filter described by the settings
func (c Config) HitFilter() *filter.Config {
	return &filter.Config{
		MaxIsotopes:   c.Filter.MaxIsotopes,
		AreaCutoff:    c.Filter.AreaCutoff,
		MinArea:       c.Filter.MinArea,
		Modifications: c.Filter.Modifications,
		ChainTopN:     c.Filter.ChainTopN,
	}
}
