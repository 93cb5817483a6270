package main

import (
	"log"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/valkey-io/valkey-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/spire-panel/spire/identity"
	"github.com/spire-panel/spire/migrate"
	"github.com/spire-panel/spire/seed"
	"github.com/spire-panel/spire/server"
	"github.com/spire-panel/spire/store"
)

func main() {
	cfg := server.GetConfig()

	if err := migrate.RunFromEnv(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := seed.RunFromEnv(); err != nil {
		log.Fatalf("seed: %v", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	var provider identity.Provider
	if cfg.Identity.BaseURL != "" {
		provider = identity.NewHTTPProvider(cfg.Identity.BaseURL, cfg.Identity.APIKey)
	} else {
		log.Println("identity: no provider configured, using in-memory provider")
		provider = identity.NewMemoryProvider()
	}

	opts := []server.Option{}
	if cfg.Auth.JWTSecret != "" {
		opts = append(opts, server.WithJWTSecret(cfg.Auth.JWTSecret))
	}
	if cfg.Nodes.HealthTimeoutMS > 0 {
		opts = append(opts, server.WithHealthTimeout(time.Duration(cfg.Nodes.HealthTimeoutMS)*time.Millisecond))
	}
	if cfg.Valkey.Address != "" {
		client, err := valkey.NewClient(valkey.ClientOption{
			InitAddress: []string{cfg.Valkey.Address},
		})
		if err != nil {
			log.Fatalf("valkey: %v", err)
		}
		defer client.Close()
		ttl := time.Duration(cfg.Valkey.StatusTTLSeconds) * time.Second
		opts = append(opts, server.WithStatusCache(store.NewNodeStatusCache(client, ttl)))
	}

	srv := server.NewServer(db, provider, opts...)
	engine := server.NewGinEngine(srv)

	log.Printf("spire listening on %s", cfg.Listen)
	if err := engine.Run(cfg.Listen); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func openDatabase(cfg *server.AppConfig) (*gorm.DB, error) {
	dsn := cfg.DatabaseDSN()
	if cfg.Database.Driver == "postgres" {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}
	if dsn == "" {
		dsn = "spire.db"
	}
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
}
