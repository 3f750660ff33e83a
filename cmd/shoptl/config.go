package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ZaguanLabs/shoptl"
)

// config is the merged result of flags, SHOPTL_* environment variables and
// the optional .shoptl.yaml file, in that order of precedence.
type config struct {
	Handles       string
	HandlesFile   string
	Provider      string
	APIKey        string
	Model         string
	SourceLang    string
	Output        string
	Concurrency   int
	RPM           int
	Domain        string
	Fields        []string
	CacheTTL      int
	RedisURL      string
	CacheFile     string
	BulletJoin    string
	VerifyMasks   bool
	PrivateTokens bool
	JSON          bool
	Quiet         bool
	Locales       map[string]shoptl.LocaleTarget
}

// newViper creates a per-invocation viper instance. Using a fresh instance
// instead of the global one keeps repeated run calls independent.
func newViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".shoptl")
	}

	v.SetEnvPrefix("SHOPTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return v, nil
}

// loadConfig binds flags into v and resolves the final configuration.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet) (*config, error) {
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}

	cfg := &config{
		Handles:       v.GetString("handles"),
		HandlesFile:   v.GetString("handles-file"),
		Provider:      strings.ToLower(v.GetString("provider")),
		APIKey:        v.GetString("api-key"),
		Model:         v.GetString("model"),
		SourceLang:    v.GetString("source"),
		Output:        v.GetString("output"),
		Concurrency:   v.GetInt("concurrency"),
		RPM:           v.GetInt("rpm"),
		Domain:        v.GetString("domain"),
		Fields:        v.GetStringSlice("fields"),
		CacheTTL:      v.GetInt("cache-ttl"),
		RedisURL:      v.GetString("redis-url"),
		CacheFile:     v.GetString("cache-file"),
		BulletJoin:    v.GetString("bullet-join"),
		VerifyMasks:   v.GetBool("verify-masks"),
		PrivateTokens: v.GetBool("private-tokens"),
		JSON:          v.GetBool("json"),
		Quiet:         v.GetBool("quiet"),
	}

	if v.IsSet("locales") {
		if err := v.UnmarshalKey("locales", &cfg.Locales); err != nil {
			return nil, fmt.Errorf("parsing locales: %w", err)
		}
		for code, target := range cfg.Locales {
			// A locale given only one role uses its own code for the other.
			if target.Lang == "" {
				target.Lang = code
			}
			if target.URLSegment == "" {
				target.URLSegment = code
			}
			cfg.Locales[code] = target
		}
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "deepl":
			cfg.APIKey = os.Getenv("DEEPL_API_KEY")
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	return cfg, nil
}

// handleSet collects handles from --handles and --handles-file.
func (c *config) handleSet() (shoptl.HandleSet, error) {
	input := c.Handles
	if c.HandlesFile != "" {
		data, err := os.ReadFile(c.HandlesFile) // #nosec G304 - CLI tool reads user-specified files
		if err != nil {
			return nil, fmt.Errorf("reading handles file: %w", err)
		}
		input += "\n" + string(data)
	}

	handles := shoptl.ParseHandles(input)
	if len(handles) == 0 {
		return nil, shoptl.ErrNoHandles
	}
	return handles, nil
}

// fieldKinds returns the translatable field set, or nil for the default.
func (c *config) fieldKinds() map[string]shoptl.FieldKind {
	if len(c.Fields) == 0 {
		return nil
	}
	fields := make(map[string]shoptl.FieldKind, len(c.Fields))
	for _, f := range c.Fields {
		f = strings.TrimSpace(f)
		if f != "" {
			fields[f] = shoptl.KindForField(f)
		}
	}
	return fields
}

// cacheNamespace names the translator behind cached entries. The model only
// matters for the LLM provider.
func (c *config) cacheNamespace() string {
	if c.Provider == "openai" {
		return c.Provider + "/" + c.Model
	}
	return c.Provider
}
