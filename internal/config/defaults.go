package config

import (
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.admin_token", "")

	v.SetDefault("database.path", "./dev.db")
	v.SetDefault("database.migrate_on_start", false)

	v.SetDefault("market.base_url", "https://west.albion-online-data.com/api/v2")
	v.SetDefault("market.locations", []string{"Caerleon", "Bridgewatch", "Lymhurst", "Martlock", "Thetford", "FortSterling"})
	v.SetDefault("market.timeout", 30*time.Second)
	v.SetDefault("market.requests_per_second", 3.0)
	v.SetDefault("market.burst", 3)
	v.SetDefault("market.max_retries", 3)
	v.SetDefault("market.backoff_base", time.Second)
	v.SetDefault("market.batch_size", 100)
	v.SetDefault("market.cache_ttl", 10*time.Minute)

	v.SetDefault("catalog.dump_url", "https://raw.githubusercontent.com/ao-data/ao-bin-dumps/master/formatted/items.txt")
	v.SetDefault("catalog.icon_base_url", "https://render.albiononline.com/v1/item/")
	v.SetDefault("catalog.timeout", 30*time.Second)
	v.SetDefault("catalog.cache_ttl", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("crafting.rank_concurrency", 4)
}
