package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	taxdomain "github.com/smallbiznis/salesdesk/internal/tax/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type TaxRulesConfig struct {
	SplitCodePrefixes []string       `mapstructure:"splitCodePrefixes"`
	SplitName         string         `mapstructure:"splitName"`
	DefaultSingleName string         `mapstructure:"defaultSingleName"`
	Labels            TaxLabelConfig `mapstructure:"labels"`
}

type TaxLabelConfig struct {
	LocalComponentA string `mapstructure:"localComponentA"`
	LocalComponentB string `mapstructure:"localComponentB"`
	RemoteComponent string `mapstructure:"remoteComponent"`
}

// TaxRulesHolder keeps the current tax detection rules and swaps them in
// place when taxrules.yml changes on disk.
type TaxRulesHolder struct {
	current atomic.Value // holds taxdomain.Rules
}

func NewTaxRulesHolder(cfg Config, log *zap.Logger) (*TaxRulesHolder, error) {
	log = log.Named("config.taxrules")
	v := viper.New()

	if cfg.TaxRulesFile != "" {
		v.SetConfigFile(cfg.TaxRulesFile)
	} else {
		v.SetConfigName("taxrules")
		v.SetConfigType("yml")
		v.AddConfigPath("/var/lib/salesdesk/config")
		v.AddConfigPath("/etc/salesdesk")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SALESDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := taxdomain.DefaultRules()
	v.SetDefault("tax.splitCodePrefixes", defaults.SplitCodePrefixes)
	v.SetDefault("tax.splitName", defaults.SplitName)
	v.SetDefault("tax.defaultSingleName", defaults.DefaultSingleName)
	v.SetDefault("tax.labels.localComponentA", defaults.LocalComponentA)
	v.SetDefault("tax.labels.localComponentB", defaults.LocalComponentB)
	v.SetDefault("tax.labels.remoteComponent", defaults.RemoteComponent)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Info("taxrules.yml not found, using defaults")
	}

	rules, err := loadTaxRules(v)
	if err != nil {
		return nil, err
	}

	holder := &TaxRulesHolder{}
	holder.current.Store(rules)

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := loadTaxRules(v)
			if err != nil {
				log.Warn("invalid tax rules ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("tax rules reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

// Rules returns the rules currently in effect.
func (h *TaxRulesHolder) Rules() taxdomain.Rules {
	return h.current.Load().(taxdomain.Rules)
}

func loadTaxRules(v *viper.Viper) (taxdomain.Rules, error) {
	// Unmarshal walks every leaf key, so file values merge with defaults.
	var file struct {
		Tax TaxRulesConfig `mapstructure:"tax"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return taxdomain.Rules{}, err
	}
	cfg := file.Tax
	if err := validateTaxRules(cfg); err != nil {
		return taxdomain.Rules{}, err
	}

	prefixes := make([]string, 0, len(cfg.SplitCodePrefixes))
	for _, p := range cfg.SplitCodePrefixes {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			prefixes = append(prefixes, p)
		}
	}

	return taxdomain.Rules{
		SplitCodePrefixes: prefixes,
		SplitName:         strings.TrimSpace(cfg.SplitName),
		LocalComponentA:   strings.TrimSpace(cfg.Labels.LocalComponentA),
		LocalComponentB:   strings.TrimSpace(cfg.Labels.LocalComponentB),
		RemoteComponent:   strings.TrimSpace(cfg.Labels.RemoteComponent),
		DefaultSingleName: strings.TrimSpace(cfg.DefaultSingleName),
	}, nil
}

func validateTaxRules(cfg TaxRulesConfig) error {
	if strings.TrimSpace(cfg.Labels.LocalComponentA) == "" || strings.TrimSpace(cfg.Labels.LocalComponentB) == "" {
		return errors.New("tax.labels local components cannot be empty")
	}
	if strings.TrimSpace(cfg.Labels.RemoteComponent) == "" {
		return errors.New("tax.labels.remoteComponent cannot be empty")
	}
	return nil
}
