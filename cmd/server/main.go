package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // .env file loading for local development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/aubrac/kermesse-ticketing/internal/config"
    "github.com/aubrac/kermesse-ticketing/internal/database"
    "github.com/aubrac/kermesse-ticketing/internal/handler"
    "github.com/aubrac/kermesse-ticketing/internal/middleware"
    "github.com/aubrac/kermesse-ticketing/internal/queue"
    "github.com/aubrac/kermesse-ticketing/internal/repository"
    "github.com/aubrac/kermesse-ticketing/internal/router"
    "github.com/aubrac/kermesse-ticketing/internal/validation"
)

func main() {
    // Load .env when present; real deployments set the variables directly.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer func() { _ = db.Close() }()

    // Repositories over the shared *sql.DB.
    userRepo := repository.NewUserRepo(db)
    tokenRepo := repository.NewTokenRepo(db)
    reservationRepo := repository.NewReservationRepo(db)
    validationRepo := repository.NewValidationRepo(db)
    catalogRepo := repository.NewCatalogRepo(db)

    // The decision engine runs against the MySQL-backed stores; tests
    // swap in fakes through the same interfaces.
    engine := validation.NewEngine(reservationRepo, validationRepo)

    // Redis backs rate limiting and the public response cache. A nil
    // client degrades both middlewares to pass-through.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Println("redis unavailable; rate limiting and response cache disabled")
    }
    rateMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
    validationHandler := handler.NewValidationHandler(engine, userRepo)
    historyHandler := handler.NewHistoryHandler(validationRepo)
    agentHandler := handler.NewAgentHandler(cfg, userRepo)
    publicHandler := handler.NewPublicHandler(catalogRepo)

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterAuth(e, authHandler, cfg.JWTSecret)
    router.RegisterPublic(e, publicHandler, cacheMW)
    router.RegisterValidation(e, validationHandler, historyHandler, agentHandler, cfg.JWTSecret, rateMW)

    // Background audit consumer; it reconnects on its own and never
    // stops the server when the broker is down.
    go func() {
        if err := queue.StartValidationConsumer(); err != nil {
            log.Printf("validation consumer stopped: %v", err)
        }
    }()

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
