package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	RPGMaker RPGMakerConfig `mapstructure:"rpgmaker"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Game     GameConfig     `mapstructure:"game"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	Debug   bool   `mapstructure:"debug"`
	GameDir string `mapstructure:"game_dir"` // Path to the RMMZ project root (served at /)
}

type RPGMakerConfig struct {
	DataPath string `mapstructure:"data_path"`
	ImgPath  string `mapstructure:"img_path"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// GameConfig covers the selection flow and the frame loop.
// The switch/variable slots are read by event scripts elsewhere in the game
// and are part of the save-file contract.
type GameConfig struct {
	ScreenWidth       int    `mapstructure:"screen_width"`
	ScreenHeight      int    `mapstructure:"screen_height"`
	FadeSpeed         int    `mapstructure:"fade_speed"` // frames
	CatalogPath       string `mapstructure:"catalog_path"`
	SelectionSwitchID int    `mapstructure:"selection_switch_id"`
	CharacterIDVarID  int    `mapstructure:"character_id_var_id"`
	CharacterNameVar  int    `mapstructure:"character_name_var_id"`
	RepeatWait        int    `mapstructure:"repeat_wait"`     // frames before key repeat starts
	RepeatInterval    int    `mapstructure:"repeat_interval"` // frames between repeats
	FlushIntervalS    int    `mapstructure:"flush_interval_s"`
	DefaultParty      []int  `mapstructure:"default_party"` // used when System.json has no partyMembers
	StartMapID        int    `mapstructure:"start_map_id"`
	StartX            int    `mapstructure:"start_x"`
	StartY            int    `mapstructure:"start_y"`
	BackgroundImage   string `mapstructure:"background_image"` // img/titles1 name
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the WebSocket/SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	// File receives log output when stdout belongs to the terminal UI.
	File string `mapstructure:"file"`
}

// Default slot numbers of the save-file contract.
const (
	DefaultSelectionSwitchID = 1
	DefaultCharacterIDVarID  = 1
	DefaultCharacterNameVar  = 2
)

// Load reads config from the given YAML file path.
// Every key can be overridden with a CHARSELECT_ prefixed environment
// variable, e.g. CHARSELECT_SERVER_PORT.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// Defaults returns the configuration used when no file is given.
func Defaults() (*Config, error) {
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("charselect")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("rpgmaker.data_path", "./game/data")
	v.SetDefault("rpgmaker.img_path", "./game/img")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/save.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("game.screen_width", 816)
	v.SetDefault("game.screen_height", 624)
	v.SetDefault("game.fade_speed", 24)
	v.SetDefault("game.catalog_path", "")
	v.SetDefault("game.selection_switch_id", DefaultSelectionSwitchID)
	v.SetDefault("game.character_id_var_id", DefaultCharacterIDVarID)
	v.SetDefault("game.character_name_var_id", DefaultCharacterNameVar)
	v.SetDefault("game.repeat_wait", 24)
	v.SetDefault("game.repeat_interval", 6)
	v.SetDefault("game.flush_interval_s", 5)
	v.SetDefault("game.default_party", []int{1})
	v.SetDefault("game.start_map_id", 1)
	v.SetDefault("game.start_x", 8)
	v.SetDefault("game.start_y", 6)
	v.SetDefault("game.background_image", "fog")
	v.SetDefault("security.jwt_secret", "change-me")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("log.file", "charselect.log")
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NonDefaultSlots reports whether the save-file slots differ from the
// contract's defaults.
func (g GameConfig) NonDefaultSlots() bool {
	return g.SelectionSwitchID != DefaultSelectionSwitchID ||
		g.CharacterIDVarID != DefaultCharacterIDVarID ||
		g.CharacterNameVar != DefaultCharacterNameVar
}
