package main

import (
	"context"
	"flag"
	"log"

	"music-shop/pkg/config"
	"music-shop/pkg/database/postgresql"
	"music-shop/pkg/service"
	"music-shop/seeders"
)

func main() {
	migrate := flag.Bool("migrate", false, "применить миграции перед наполнением")
	tokens := flag.Bool("tokens", false, "напечатать dev-токены стандартных пользователей")
	flag.Parse()

	cfg := config.New()
	log.Println("используется DSN:", cfg.Postgres.DSN)

	if *migrate {
		if err := postgresql.RunMigrations(cfg.Postgres.DSN); err != nil {
			log.Fatalf("ошибка применения миграций: %v", err)
		}
		log.Println("миграции применены")
	}

	dbPool, err := postgresql.ConnectDB(context.Background(), cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("не удалось подключиться к PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	seeders.SeedAll(dbPool)

	if *tokens {
		jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
		if err := seeders.PrintDevTokens(dbPool, jwtSvc); err != nil {
			log.Fatalf("ошибка генерации dev-токенов: %v", err)
		}
	}
}
