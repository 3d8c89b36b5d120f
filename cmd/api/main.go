package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"KataSweetShop/internal/api"
	"KataSweetShop/internal/auth"
	"KataSweetShop/internal/catalog"
	"KataSweetShop/internal/events"
	"KataSweetShop/pkg/kit"
)

const startupTimeout = 10 * time.Second

func main() {
	service := "api"
	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("JWT_SECRET", "dev-secret")
	viper.SetDefault("METRICS_ENABLED", true)
	viper.AutomaticEnv()

	addr := viper.GetString("APP_PORT")
	jwtSecret := viper.GetString("JWT_SECRET")
	databaseURL := viper.GetString("DATABASE_URL")
	rabbitURL := viper.GetString("RABBITMQ_URL")

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	users, sweets := openStores(ctx, log, databaseURL)
	bootstrapAdmin(ctx, log, users)

	publisher := openPublisher(log, rabbitURL)
	defer func() { _ = publisher.Close() }()

	jwt := auth.NewTokenMaker(jwtSecret)

	authSrv := &auth.Server{Log: log, Store: users, JWT: jwt}
	catalogSrv := &catalog.Server{Store: sweets, Log: log, JWT: jwt, Events: publisher}

	h := api.NewHandler(authSrv, catalogSrv, api.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: viper.GetBool("METRICS_ENABLED"),
		MetricsToken:   viper.GetString("METRICS_TOKEN"),
	})

	if err := kit.RunHTTPServer(addr, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

// openStores connects to Postgres when DATABASE_URL is set and falls back to
// in-memory stores (with a small seed catalog) otherwise.
func openStores(ctx context.Context, log *zap.Logger, databaseURL string) (auth.UserStore, catalog.Store) {
	if databaseURL == "" {
		log.Info("DATABASE_URL not set, using in-memory stores")
		sweets := catalog.NewMemStore()
		seedCatalog(ctx, log, sweets)
		return auth.NewMemStore(), sweets
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		log.Fatal("open postgres", zap.Error(err))
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	users := auth.NewPostgresStore(db)
	sweets := catalog.NewPostgresStore(db)
	if err := users.EnsureSchema(ctx); err != nil {
		log.Fatal("users schema", zap.Error(err))
	}
	if err := sweets.EnsureSchema(ctx); err != nil {
		log.Fatal("sweets schema", zap.Error(err))
	}
	return users, sweets
}

// bootstrapAdmin creates the configured admin account. Registration over the
// API always yields the user role, so this is the only way an admin appears.
func bootstrapAdmin(ctx context.Context, log *zap.Logger, users auth.UserStore) {
	email := viper.GetString("ADMIN_EMAIL")
	password := viper.GetString("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Info("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin bootstrap")
		return
	}

	id := "u_" + uuid.NewString()
	err := users.Create(ctx, id, "admin", email, password, auth.RoleAdmin)
	switch {
	case err == nil:
		log.Info("admin account created", zap.String("email", email))
	case err == auth.ErrEmailExists:
		log.Info("admin account already present", zap.String("email", email))
	default:
		log.Fatal("admin bootstrap", zap.Error(err))
	}
}

func openPublisher(log *zap.Logger, rabbitURL string) events.Publisher {
	if rabbitURL == "" {
		log.Info("RABBITMQ_URL not set, inventory events disabled")
		return events.Nop{}
	}
	p, err := events.NewAMQPPublisher(rabbitURL)
	if err != nil {
		log.Warn("rabbitmq unavailable, inventory events disabled", zap.Error(err))
		return events.Nop{}
	}
	log.Info("inventory events enabled")
	return p
}

func seedCatalog(ctx context.Context, log *zap.Logger, store catalog.Store) {
	now := time.Now().UTC()
	seeds := []catalog.Sweet{
		{Name: "Dark Chocolate Bar", Description: "70% single origin", Category: catalog.CategoryChocolate, PriceCents: 24900, Quantity: 40},
		{Name: "Sour Gummy Worms", Description: "Citrus dusted", Category: catalog.CategoryGummy, PriceCents: 9900, Quantity: 120},
		{Name: "Rainbow Lollipop", Description: "Hand spun swirl", Category: catalog.CategoryLollipop, PriceCents: 4900, Quantity: 60},
		{Name: "Butterscotch Candy", Description: "Tin of twelve", Category: catalog.CategoryCandy, PriceCents: 14900, Quantity: 25},
	}
	for _, s := range seeds {
		s.ID = "s_" + uuid.NewString()
		s.Image = catalog.DefaultImage
		s.CreatedAt = now
		s.UpdatedAt = now
		if err := store.Create(ctx, s); err != nil {
			log.Warn("seed sweet", zap.String("name", s.Name), zap.Error(err))
		}
	}
	log.Info("seeded demo catalog", zap.Int("sweets", len(seeds)))
}
