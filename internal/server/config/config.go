// internal/server/config/config.go
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
	"gopkg.in/yaml.v3"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
)

// Backends de stockage et de portefeuille
const (
	StorageMemory = "memory"
	StorageMySQL  = "mysql"
	StorageRedis  = "redis"

	WalletLedger = "ledger"
	WalletMySQL  = "mysql"
)

// Config représente la configuration du serveur
type Config struct {
	Server struct {
		Host           string `yaml:"host"`
		Port           string `yaml:"port"`
		AdminKey       string `yaml:"admin_key"`
		RequestTimeout int    `yaml:"request_timeout"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret      string `yaml:"jwt_secret"`
		AllowDevTokens bool   `yaml:"allow_dev_tokens"`
	} `yaml:"auth"`
	Storage struct {
		Driver string `yaml:"driver"`
	} `yaml:"storage"`
	Database struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTLHours int    `yaml:"ttl_hours"`
	} `yaml:"redis"`
	Wallet struct {
		Driver          string `yaml:"driver"`
		StartingBalance int64  `yaml:"starting_balance"`
	} `yaml:"wallet"`
	Game struct {
		AllowedStakes     []int64 `yaml:"allowed_stakes"`
		RoomTimeout       int     `yaml:"room_timeout"`
		CommissionPercent int     `yaml:"commission_percent"`
		QuickTokens       int     `yaml:"quick_tokens"`
		QuickWinTokens    int     `yaml:"quick_win_tokens"`
		AllowBlocking     bool    `yaml:"allow_blocking"`
		ExtraTurnOnSix    bool    `yaml:"extra_turn_on_six"`
	} `yaml:"game"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// Default retourne la configuration par défaut
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = constants.DefaultServerPort
	cfg.Server.RequestTimeout = 10
	cfg.Storage.Driver = StorageMemory
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = "3306"
	cfg.Database.Database = "ludo_stake"
	cfg.Redis.Addr = "127.0.0.1:6379"
	cfg.Redis.TTLHours = 72
	cfg.Wallet.Driver = WalletLedger
	cfg.Wallet.StartingBalance = 1000
	cfg.Game.RoomTimeout = constants.RoomTimeout
	cfg.Game.CommissionPercent = constants.DefaultCommissionPercent
	cfg.Game.QuickTokens = constants.QuickTokens
	cfg.Game.QuickWinTokens = constants.QuickWinTokens
	cfg.Game.AllowBlocking = true
	cfg.Game.ExtraTurnOnSix = true
	cfg.Logging.Level = "info"
	return cfg
}

// Load lit le fichier YAML puis applique les fichiers .env et les variables LUDO_*.
// Un fichier absent est ignoré; les variables du processus l'emportent sur les fichiers .env.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	fileEnv, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML charge la configuration depuis un fichier YAML
func (c *Config) loadYAML(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(existing...)
	if err != nil {
		return nil, fmt.Errorf("failed to read env files: %w", err)
	}
	return env, nil
}

// applyEnv surcharge la configuration avec les variables LUDO_*
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LUDO_HOST":           &c.Server.Host,
		"LUDO_PORT":           &c.Server.Port,
		"LUDO_ADMIN_KEY":      &c.Server.AdminKey,
		"LUDO_JWT_SECRET":     &c.Auth.JWTSecret,
		"LUDO_STORAGE":        &c.Storage.Driver,
		"LUDO_DB_HOST":        &c.Database.Host,
		"LUDO_DB_PORT":        &c.Database.Port,
		"LUDO_DB_USER":        &c.Database.Username,
		"LUDO_DB_PASSWORD":    &c.Database.Password,
		"LUDO_DB_NAME":        &c.Database.Database,
		"LUDO_REDIS_ADDR":     &c.Redis.Addr,
		"LUDO_REDIS_PASSWORD": &c.Redis.Password,
		"LUDO_WALLET":         &c.Wallet.Driver,
		"LUDO_LOG_LEVEL":      &c.Logging.Level,
		"LUDO_LOG_FILE":       &c.Logging.File,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LUDO_REQUEST_TIMEOUT":      &c.Server.RequestTimeout,
		"LUDO_REDIS_DB":             &c.Redis.DB,
		"LUDO_REDIS_TTL_HOURS":      &c.Redis.TTLHours,
		"LUDO_ROOM_TIMEOUT_SECONDS": &c.Game.RoomTimeout,
		"LUDO_COMMISSION_PERCENT":   &c.Game.CommissionPercent,
		"LUDO_QUICK_TOKENS":         &c.Game.QuickTokens,
		"LUDO_QUICK_WIN_TOKENS":     &c.Game.QuickWinTokens,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"LUDO_ALLOW_DEV_TOKENS":  &c.Auth.AllowDevTokens,
		"LUDO_ALLOW_BLOCKING":    &c.Game.AllowBlocking,
		"LUDO_EXTRA_TURN_ON_SIX": &c.Game.ExtraTurnOnSix,
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
	}

	if v, ok := lookup("LUDO_STARTING_BALANCE"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid LUDO_STARTING_BALANCE: %w", err)
		}
		c.Wallet.StartingBalance = n
	}
	if v, ok := lookup("LUDO_ALLOWED_STAKES"); ok {
		stakes, err := parseStakes(v)
		if err != nil {
			return err
		}
		c.Game.AllowedStakes = stakes
	}
	return nil
}

// parseStakes lit une liste "10,50,100"
func parseStakes(v string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid LUDO_ALLOWED_STAKES entry %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Validate vérifie la cohérence de la configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive")
	}
	if c.Auth.JWTSecret == "" && !c.Auth.AllowDevTokens {
		return errors.New("auth.jwt_secret is required unless auth.allow_dev_tokens is set")
	}
	switch c.Storage.Driver {
	case StorageMemory, StorageMySQL, StorageRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Wallet.Driver {
	case WalletLedger, WalletMySQL:
	default:
		return fmt.Errorf("unknown wallet driver %q", c.Wallet.Driver)
	}
	if c.Game.RoomTimeout < 0 {
		return errors.New("game.room_timeout cannot be negative")
	}
	if c.Game.CommissionPercent < 0 || c.Game.CommissionPercent > 100 {
		return errors.New("game.commission_percent must be between 0 and 100")
	}
	for _, s := range c.Game.AllowedStakes {
		if s <= 0 {
			return fmt.Errorf("game.allowed_stakes contains non-positive stake %d", s)
		}
	}
	if c.Game.QuickTokens < 1 || c.Game.QuickTokens > constants.ClassicTokens {
		return fmt.Errorf("game.quick_tokens must be between 1 and %d", constants.ClassicTokens)
	}
	if c.Game.QuickWinTokens < 1 || c.Game.QuickWinTokens > c.Game.QuickTokens {
		return errors.New("game.quick_win_tokens must be between 1 and game.quick_tokens")
	}
	return nil
}

// Addr retourne l'adresse d'écoute
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// RoomTimeout retourne le délai d'expiration des salles en attente
func (c *Config) RoomTimeout() time.Duration {
	return time.Duration(c.Game.RoomTimeout) * time.Second
}

// RequestTimeout retourne la durée maximale d'une requête
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

// RedisTTL retourne la durée de conservation des enregistrements Redis
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLHours) * time.Hour
}
