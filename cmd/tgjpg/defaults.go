package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Global
	viper.SetDefault("state_dir", "~/.tgjpg")

	// Local asset corpus
	viper.SetDefault("assets.dir", "assets")
	viper.SetDefault("assets.public_base_url", "https://raw.githubusercontent.com/akira02/tg.jpg/master/assets")

	// Telegram
	viper.SetDefault("telegram.base_url", "https://api.telegram.org")
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.task_timeout", 2*time.Minute)
	viper.SetDefault("telegram.max_concurrency", 3)
	viper.SetDefault("telegram.inline_cache_time", 300)

	// Remote image search
	viper.SetDefault("search.endpoint", "https://www.google.com/search")
	viper.SetDefault("search.locale", "zh-TW")

	// Resolution
	viper.SetDefault("resolve.local_mode_default", false)
	viper.SetDefault("resolve.max_download_bytes", int64(10*1024*1024))

	// Health endpoint (disabled when empty)
	viper.SetDefault("health.listen", "")

	// Delivery journal
	viper.SetDefault("journal.rotate_max_bytes", int64(100*1024*1024))

	// Logging
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
}
