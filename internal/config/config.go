package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// BotConfig неизменяемая конфигурация, создается один раз при старте
// и передается в компоненты явно.
type BotConfig struct {
	TelegramToken string  `validate:"required"`
	DatabaseURL   string  `validate:"required"`
	AdminIDs      []int64 `validate:"dive,ne=0"`

	Timezone *time.Location `validate:"required"`

	// Политика рабочего дня
	DailyBreakLimitSeconds int64 `validate:"gt=0"`
	MinWorkSeconds         int64 `validate:"gt=0,lte=86400"`

	HolidaysFile string
	LogLevel     string `validate:"oneof=trace debug info warn error"`
	Debug        bool
}

// DailyBreakLimit возвращает дневной лимит перерывов
func (c *BotConfig) DailyBreakLimit() time.Duration {
	return time.Duration(c.DailyBreakLimitSeconds) * time.Second
}

// MinWork возвращает минимальную продолжительность рабочего дня
func (c *BotConfig) MinWork() time.Duration {
	return time.Duration(c.MinWorkSeconds) * time.Second
}

// IsAdmin проверяет, входит ли id в список администраторов из окружения
func (c *BotConfig) IsAdmin(id int64) bool {
	for _, adminID := range c.AdminIDs {
		if adminID == id {
			return true
		}
	}
	return false
}

// Load читает .env (если он есть) и переменные окружения.
func Load() (*BotConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading env variables: %w", err)
	}

	cfg := &BotConfig{
		TelegramToken:          getEnv("TELEGRAM_BOT_TOKEN", ""),
		DatabaseURL:            getEnv("DATABASE_URL", "hr-time-bot.db"),
		DailyBreakLimitSeconds: getEnvAsInt("DAILY_BREAK_LIMIT_SECONDS", 3600),
		MinWorkSeconds:         getEnvAsInt("MIN_WORK_SECONDS", 8*3600),
		HolidaysFile:           getEnv("HOLIDAYS_FILE", ""),
		LogLevel:               strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Debug:                  getEnvAsBool("BOT_DEBUG", false),
	}

	ids, err := parseIDs(getEnv("ADMIN_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("could not parse ADMIN_IDS: %w", err)
	}
	cfg.AdminIDs = ids

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Asia/Barnaul"))
	if err != nil {
		return nil, fmt.Errorf("could not load timezone: %w", err)
	}
	cfg.Timezone = loc

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}

	return defaultVal
}
