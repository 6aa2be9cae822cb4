package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Broker   BrokerConfig
	Strategy StrategyConfig
	Scanner  ScannerConfig
	Telegram TelegramConfig
	State    StateConfig
	Runtime  RuntimeConfig
}

type BrokerConfig struct {
	BaseUrl   string
	Token     string
	AccountID string
}

type StrategyConfig struct {
	Tickers            []string
	MaxLotRub          float64
	DipPct             float64
	LotsPerOrder       int64
	MaxLotCount        int64
	ForceExitMultiple  float64
	MinRelVolume       float64
	VolumeLookbackDays int
	VolumeCompare      string
	IndexTicker        string
	IndexFallbacks     []string
}

type ScannerConfig struct {
	MarketCachePath    string
	IndexCachePath     string
	PendingCooldownMin int
	MaxLotRub          float64
	CacheTTLDays       int
	Index              string
}

type TelegramConfig struct {
	BotToken          string
	ChatID            string
	ConfirmTimeoutSec int
}

type StateConfig struct {
	Path string
}

type RuntimeConfig struct {
	DryRun bool
	Log    LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func Load() (*Config, error) {

	cfg := &Config{}
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	viper.ReadInConfig()

	viper.SetDefault("broker.base_url", "https://invest-public-api.tinkoff.ru/rest")
	viper.SetDefault("strategy.dip_pct", 0.01)
	viper.SetDefault("strategy.max_lot_rub", 1000.0)
	viper.SetDefault("strategy.lots_per_order", 1)
	viper.SetDefault("strategy.force_exit_multiple", 1.30)
	viper.SetDefault("strategy.volume_lookback_days", 10)
	viper.SetDefault("strategy.index_ticker", "IMOEX")
	viper.SetDefault("strategy.index_fallbacks", []string{"TMOS", "SBMX"})
	viper.SetDefault("scanner.market_cache_path", "tmp/market_instruments_cache.json")
	viper.SetDefault("scanner.index_cache_path", "tmp/moex_index_cache.json")
	viper.SetDefault("scanner.pending_cooldown_min", 10)
	viper.SetDefault("scanner.max_lot_rub", 300.0)
	viper.SetDefault("scanner.cache_ttl_days", 7)
	viper.SetDefault("scanner.index", "IMOEX")
	viper.SetDefault("telegram.confirm_timeout_sec", 120)
	viper.SetDefault("state.path", "tmp/strategy_state.json")

	cfg.Broker = BrokerConfig{
		BaseUrl:   viper.GetString("broker.base_url"),
		Token:     envSub("broker.token"),
		AccountID: viper.GetString("broker.account_id"),
	}

	cfg.Strategy = StrategyConfig{
		Tickers:            viper.GetStringSlice("strategy.tickers"),
		MaxLotRub:          viper.GetFloat64("strategy.max_lot_rub"),
		DipPct:             viper.GetFloat64("strategy.dip_pct"),
		LotsPerOrder:       viper.GetInt64("strategy.lots_per_order"),
		MaxLotCount:        viper.GetInt64("strategy.max_lot_count"),
		ForceExitMultiple:  viper.GetFloat64("strategy.force_exit_multiple"),
		MinRelVolume:       viper.GetFloat64("strategy.min_rel_volume"),
		VolumeLookbackDays: viper.GetInt("strategy.volume_lookback_days"),
		VolumeCompare:      viper.GetString("strategy.volume_compare"),
		IndexTicker:        viper.GetString("strategy.index_ticker"),
		IndexFallbacks:     viper.GetStringSlice("strategy.index_fallbacks"),
	}

	cfg.Scanner = ScannerConfig{
		MarketCachePath:    viper.GetString("scanner.market_cache_path"),
		IndexCachePath:     viper.GetString("scanner.index_cache_path"),
		PendingCooldownMin: viper.GetInt("scanner.pending_cooldown_min"),
		MaxLotRub:          viper.GetFloat64("scanner.max_lot_rub"),
		CacheTTLDays:       viper.GetInt("scanner.cache_ttl_days"),
		Index:              viper.GetString("scanner.index"),
	}

	cfg.Telegram = TelegramConfig{
		BotToken:          envSub("telegram.bot_token"),
		ChatID:            envSub("telegram.chat_id"),
		ConfirmTimeoutSec: viper.GetInt("telegram.confirm_timeout_sec"),
	}

	cfg.State = StateConfig{
		Path: viper.GetString("state.path"),
	}

	cfg.Runtime = RuntimeConfig{
		DryRun: viper.GetBool("runtime.dry_run"),
		Log: LogConfig{
			Level:      viper.GetString("runtime.log.level"),
			Format:     viper.GetString("runtime.log.format"),
			File:       viper.GetString("runtime.log.file"),
			MaxSize:    viper.GetInt("runtime.log.max_size"),
			MaxBackups: viper.GetInt("runtime.log.max_backups"),
			MaxAge:     viper.GetInt("runtime.log.max_age"),
			Compress:   viper.GetBool("runtime.log.compress"),
		},
	}

	return cfg, nil
}

func envSub(key string) string {
	val := viper.GetString(key)
	if val == "" {
		return ""
	}

	re := regexp.MustCompile(`\$\{(\w+)\}`)
	return re.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
