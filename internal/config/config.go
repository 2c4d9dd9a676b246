package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	Role        string `yaml:"role" validate:"required,oneof=server client"`
	Transport   string `yaml:"transport" validate:"required,oneof=tcp ws"`
	ListenAddr  string `yaml:"listen_addr" validate:"required_if=Role server"`
	ServerAddr  string `yaml:"server_addr" validate:"required_if=Role client"`
	ChosenColor string `yaml:"color" validate:"required,oneof=white black"` // client only: the color the client plays

	RedisURL    string `yaml:"redis_url" validate:"omitempty,url"`
	DatabaseURL string `yaml:"database_url"`
	WebhookURL  string `yaml:"webhook_url" validate:"omitempty,url"`
	StatusAddr  string `yaml:"status_addr"`
	SnapshotDir string `yaml:"snapshot_dir"`
	MessagesDir string `yaml:"messages_dir"`
	HistoryFile string `yaml:"history_file"`

	StockfishPath      string `yaml:"stockfish_path"`
	AutoplayDepth      int    `yaml:"autoplay_depth" validate:"gte=0,lte=30"`
	AutoplayMoveTimeMs int    `yaml:"autoplay_movetime_ms" validate:"gte=0"`
	AutoplaySkill      int    `yaml:"autoplay_skill" validate:"gte=0,lte=20"`
	AutoplayMultiPV    int    `yaml:"autoplay_multipv" validate:"gte=0,lte=5"`
	AutoplayResignCP   int    `yaml:"autoplay_resign_cp" validate:"gte=0"`
	AutoplayDrawCP     int    `yaml:"autoplay_accept_draw_cp" validate:"gte=-3000,lte=3000"` // accept offers at or below this own eval
	AutoplayDelayMs    int    `yaml:"autoplay_delay_ms" validate:"gte=0,lte=60000"`
	AutoplaySeed       int64  `yaml:"autoplay_seed"`
	AutoplayPreset     string `yaml:"autoplay_preset"` // overrides depth/skill/multipv when set
	AutoplayBookPath   string `yaml:"autoplay_book"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format  string `yaml:"format" validate:"omitempty,oneof=legacy console json"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
	Caller  bool   `yaml:"caller"`
}

var validate = validator.New()

func defaults() *AppConfig {
	return &AppConfig{
		Role:          "server",
		Transport:     "tcp",
		ListenAddr:    ":8384",
		ChosenColor:   "black",
		HistoryFile:   ".chess_duel_history",
		AutoplayDepth: 8,
		AutoplaySkill: 10,
		Log: LogConfig{
			Level:  "info",
			Format: "legacy",
			File:   "logs/duel.log",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// DUEL_CONFIG (if any), then environment variables.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("DUEL_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	normalize(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setString(&cfg.Role, "DUEL_ROLE")
	setString(&cfg.Transport, "DUEL_TRANSPORT")
	setString(&cfg.ListenAddr, "DUEL_LISTEN_ADDR")
	setString(&cfg.ServerAddr, "DUEL_SERVER_ADDR")
	setString(&cfg.ChosenColor, "DUEL_COLOR")

	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.WebhookURL, "DUEL_WEBHOOK_URL")
	setString(&cfg.StatusAddr, "DUEL_STATUS_ADDR")
	setString(&cfg.SnapshotDir, "DUEL_SNAPSHOT_DIR")
	setString(&cfg.MessagesDir, "DUEL_MESSAGES_DIR")
	setString(&cfg.HistoryFile, "DUEL_HISTORY_FILE")

	// Autoplay
	setString(&cfg.StockfishPath, "STOCKFISH_PATH")
	setInt(&cfg.AutoplayDepth, "DUEL_AUTOPLAY_DEPTH")
	setInt(&cfg.AutoplayMoveTimeMs, "DUEL_AUTOPLAY_MOVETIME_MS")
	setInt(&cfg.AutoplaySkill, "DUEL_AUTOPLAY_SKILL")
	setInt(&cfg.AutoplayMultiPV, "DUEL_AUTOPLAY_MULTIPV")
	setInt(&cfg.AutoplayResignCP, "DUEL_AUTOPLAY_RESIGN_CP")
	setSignedInt(&cfg.AutoplayDrawCP, "DUEL_AUTOPLAY_DRAW_CP")
	setInt(&cfg.AutoplayDelayMs, "DUEL_AUTOPLAY_DELAY_MS")
	setInt64(&cfg.AutoplaySeed, "DUEL_AUTOPLAY_SEED")
	setString(&cfg.AutoplayPreset, "DUEL_AUTOPLAY_PRESET")
	setString(&cfg.AutoplayBookPath, "DUEL_AUTOPLAY_BOOK")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Log.File, "LOG_FILE")
	setBool(&cfg.Log.Console, "LOG_TO_CONSOLE")
	setBool(&cfg.Log.Caller, "LOG_CALLER")
	if v := strings.TrimSpace(os.Getenv("LOG_TO_FILE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && !b {
			cfg.Log.File = ""
		}
	}
}

func normalize(cfg *AppConfig) {
	cfg.Role = strings.ToLower(strings.TrimSpace(cfg.Role))
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	switch strings.ToLower(strings.TrimSpace(cfg.ChosenColor)) {
	case "w", "white":
		cfg.ChosenColor = "white"
	case "b", "black":
		cfg.ChosenColor = "black"
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
}

// Validate checks struct constraints and reports the offending fields in one error.
func (c *AppConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			*dst = n
		}
	}
}

// setSignedInt accepts negative values; draw thresholds are evaluations.
func setSignedInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
