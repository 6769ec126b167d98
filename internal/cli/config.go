package cli

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matzehuels/vibetiles/pkg/cache"
	"github.com/matzehuels/vibetiles/pkg/errors"
	"github.com/matzehuels/vibetiles/pkg/transform"
	"github.com/matzehuels/vibetiles/pkg/upstream"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// envPrefix prefixes every environment variable, e.g. VIBETILES_CACHE_DIR.
const envPrefix = "VIBETILES"

// Cache backends.
const (
	backendDisk  = "disk"
	backendRedis = "redis"
	backendNone  = "none"
)

// Defaults for settings without a library default.
const (
	defaultPort     = 5003
	defaultHost     = "0.0.0.0"
	defaultCacheDir = "/tmp/tile_cache"
	defaultRedisURL = "redis://localhost:6379/0"
)

// legacyEnv maps settings to the environment names the service has always
// read. They are consulted after the VIBETILES_ names.
var legacyEnv = map[string]string{
	"port":      "PORT",
	"cache-dir": "TILE_CACHE_DIR",
	"ai-url":    "AI_SERVICE_URL",
	"ai-key":    "AI_SERVICE_KEY",
	"ai-vibes":  "AI_VIBES",
}

// config is the resolved configuration of the serve command.
type config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	CacheBackend string `mapstructure:"cache-backend"`
	CacheDir     string `mapstructure:"cache-dir"`
	RedisURL     string `mapstructure:"redis-url"`
	RedisPrefix  string `mapstructure:"redis-prefix"`

	PublicBase  string `mapstructure:"public-base"`
	StaticDir   string `mapstructure:"static-dir"`
	FrontendDir string `mapstructure:"frontend-dir"`
	VibesFile   string `mapstructure:"vibes-file"`

	StyleURL     string        `mapstructure:"style-url"`
	TileTemplate string        `mapstructure:"tile-template"`
	RasterID     string        `mapstructure:"raster-id"`
	StyleTimeout time.Duration `mapstructure:"style-timeout"`
	TileTimeout  time.Duration `mapstructure:"tile-timeout"`

	AIURL     string        `mapstructure:"ai-url"`
	AIKey     string        `mapstructure:"ai-key"`
	AIVibes   string        `mapstructure:"ai-vibes"`
	AITimeout time.Duration `mapstructure:"ai-timeout"`

	NoSingleFlight bool `mapstructure:"no-single-flight"`
}

// addConfigFlags registers every setting as a flag on cmd.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "TOML config file (keys are the flag names)")

	f.String("host", defaultHost, "listen host")
	f.Int("port", defaultPort, "listen port (env PORT)")

	f.String("cache-backend", backendDisk, "tile store: disk, redis or none")
	f.String("cache-dir", defaultCacheDir, "tile store root for the disk backend (env TILE_CACHE_DIR)")
	f.String("redis-url", defaultRedisURL, "Redis URL for the redis backend")
	f.String("redis-prefix", cache.DefaultRedisPrefix, "key prefix for the redis backend")

	f.String("public-base", "", "public base URL written into styles (empty for relative URLs)")
	f.String("static-dir", "static", "directory holding sprites/ and glyphs/")
	f.String("frontend-dir", "", "directory served at / (disabled when empty)")
	f.String("vibes-file", "", "TOML vibe registry replacing the built-in one")

	f.String("style-url", upstream.DefaultStyleURL, "upstream canonical style URL")
	f.String("tile-template", upstream.DefaultTileTemplate, "upstream raster tile template")
	f.String("raster-id", upstream.DefaultRasterID, "marker identifying the upstream raster source in the style")
	f.Duration("style-timeout", upstream.DefaultStyleTimeout, "upstream style fetch timeout")
	f.Duration("tile-timeout", upstream.DefaultTileTimeout, "upstream tile fetch timeout")

	f.String("ai-url", "", "remote transform service URL (env AI_SERVICE_URL)")
	f.String("ai-key", "", "remote transform service key (env AI_SERVICE_KEY)")
	f.String("ai-vibes", "", "comma-separated vibes routed to the remote service (env AI_VIBES)")
	f.Duration("ai-timeout", transform.DefaultRemoteTimeout, "remote transform timeout")

	f.Bool("no-single-flight", false, "let concurrent misses of one tile each hit the upstream")
}

// loadConfig resolves flags, environment and config file, in that order of
// precedence.
func loadConfig(cmd *cobra.Command) (*config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envName(key), legacy); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, cfg.validate()
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

func (c *config) validate() error {
	switch c.CacheBackend {
	case backendDisk, backendRedis, backendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want disk, redis or none)", c.CacheBackend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New(errors.ErrCodeInvalidInput, "invalid port %d", c.Port)
	}
	if err := errors.ValidateURL(c.StyleURL); err != nil {
		return fmt.Errorf("style-url: %w", err)
	}
	if err := errors.ValidateTileTemplate(c.TileTemplate); err != nil {
		return fmt.Errorf("tile-template: %w", err)
	}
	if c.AIURL != "" {
		if err := errors.ValidateURL(c.AIURL); err != nil {
			return fmt.Errorf("ai-url: %w", err)
		}
	}
	return nil
}

// Addr returns the listen address.
func (c *config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// registry returns the configured vibe registry.
func (c *config) registry() (*vibe.Registry, error) {
	if c.VibesFile == "" {
		return vibe.Builtin(), nil
	}
	f, err := os.Open(c.VibesFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	reg, err := vibe.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.VibesFile, err)
	}
	return reg, nil
}

// remoteVibes parses AIVibes against reg. Base vibes are never restyled, so
// they are dropped from the list.
func (c *config) remoteVibes(reg *vibe.Registry) ([]vibe.ID, error) {
	ids, err := reg.ParseIDs(c.AIVibes)
	if err != nil {
		return nil, fmt.Errorf("ai-vibes: %w", err)
	}
	out := ids[:0]
	for _, id := range ids {
		if p, _ := reg.Lookup(id); !p.Base {
			out = append(out, id)
		}
	}
	return out, nil
}
