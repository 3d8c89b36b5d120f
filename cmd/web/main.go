package main

import (
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"KataSweetShop/internal/cart"
	"KataSweetShop/internal/web"
	"KataSweetShop/pkg/kit"
)

func main() {
	service := "web"
	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	viper.SetDefault("WEB_PORT", ":8090")
	viper.SetDefault("API_URL", "http://localhost:8080")
	viper.SetDefault("CART_DB", "carts.db")
	viper.AutomaticEnv()

	db, err := cart.OpenDB(viper.GetString("CART_DB"))
	if err != nil {
		log.Fatal("open cart db", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	if err := cart.EnsureSchema(db); err != nil {
		log.Fatal("cart schema", zap.Error(err))
	}

	tpl, err := web.LoadTemplates(log)
	if err != nil {
		log.Fatal("load templates", zap.Error(err))
	}

	s := &web.Server{
		Log:       log,
		API:       web.NewAPIClient(viper.GetString("API_URL")),
		DB:        db,
		Templates: tpl,
	}

	if err := kit.RunHTTPServer(viper.GetString("WEB_PORT"), web.NewRouter(s), log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
