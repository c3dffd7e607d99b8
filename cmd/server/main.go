package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/feltworks/tableserver/internal/httpapi"
	"github.com/feltworks/tableserver/internal/hub"
	"github.com/feltworks/tableserver/internal/store"
	"github.com/feltworks/tableserver/internal/treasury"
	"github.com/feltworks/tableserver/internal/ws"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL is required")
	}
	st, err := store.Open(dsn, logger)
	if err != nil {
		logger.Fatal("store open failed", zap.Error(err))
	}

	econ, err := treasury.NewService(treasuryConfig(), st, logger)
	if err != nil {
		logger.Fatal("treasury init failed", zap.Error(err))
	}

	ctx := context.Background()
	tBal, jBal, err := st.LoadPoolBalances(ctx)
	if err != nil {
		logger.Fatal("pool balance load failed", zap.Error(err))
	}
	econ.Restore(tBal, jBal)

	h := hub.NewHub(ctx, econ, st, logger)

	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		logger.Fatal("AUTH_SECRET is required")
	}
	handler := httpapi.SetupRoutes(h, ws.HMACVerifier(secret), logger)

	addr := ":" + envOr("PORT", "8080")
	logger.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func treasuryConfig() treasury.Config {
	cfg := treasury.DefaultConfig()
	cfg.MinPotForRake = envInt64("MIN_POT_FOR_RAKE", cfg.MinPotForRake)
	cfg.RakePercent = envInt64("RAKE_PERCENTAGE", cfg.RakePercent)
	cfg.MaxRakePerPot = envInt64("MAX_RAKE_PER_POT", cfg.MaxRakePerPot)
	cfg.TreasuryPercent = envInt64("TREASURY_POOL_PERCENTAGE", cfg.TreasuryPercent)
	cfg.JackpotPercentFromRake = envInt64("JACKPOT_PERCENTAGE_FROM_RAKE", cfg.JackpotPercentFromRake)
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
