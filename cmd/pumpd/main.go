package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/radixpump/pumpengine/internal/config"
	"github.com/radixpump/pumpengine/internal/hooks/limitbuy"
	"github.com/radixpump/pumpengine/internal/logger"
	"github.com/radixpump/pumpengine/internal/oracle"
	"github.com/radixpump/pumpengine/internal/pump"
	"github.com/radixpump/pumpengine/internal/state"
	"github.com/radixpump/pumpengine/internal/types"
	"github.com/radixpump/pumpengine/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const ORACLE_POLL_INTERVAL = 2 * time.Second
const SNAPSHOT_INTERVAL = 60 * time.Second

// main is the entry point for the pump engine daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		if err := logger.InitializeWithFile(os.Getenv("LOG_LEVEL"), logFile); err != nil {
			log.Fatal().Err(err).Str("path", logFile).Msg("Failed to open log file")
		}
	} else {
		logger.Initialize(os.Getenv("LOG_LEVEL"))
	}
	log.Info().Msg("Pump engine starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// --- 2. Engine Assembly ---
	baseCurrency := os.Getenv("PUMP_BASE_CURRENCY")
	if baseCurrency == "" {
		baseCurrency = "resource_base"
	}

	oracleSeed := int64(mustAtoi(os.Getenv("PUMP_ORACLE_SEED"), 1))
	orc := oracle.NewSeededOracle(oracleSeed, config.OracleBatchBytes)

	sink := state.NewJournalSink()
	engine := pump.New(baseCurrency, orc, sink)
	orc.SetCallback(engine)

	// Deploy the limit buy hook and enable it for the price-lowering
	// operations it reacts to.
	limitBuyHook := limitbuy.New(baseCurrency, config.MaxMatchingOrders, config.MaxActiveOrdersPerCoin)
	limitBuyOps := []types.Operation{types.OpPostSell, types.OpPostRemoveLiquidity, types.OpTimer}
	if err := engine.RegisterHook(limitBuyHook, limitBuyOps); err != nil {
		log.Fatal().Err(err).Msg("Failed to register limit buy hook")
	}
	if err := engine.OwnerEnableHook(limitbuy.HookName, limitBuyOps); err != nil {
		log.Fatal().Err(err).Msg("Failed to enable limit buy hook")
	}
	log.Info().Str("base_currency", baseCurrency).Msg("Pump engine assembled")

	// --- 3. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, engine, limitBuyHook)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting pump engine API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Oracle Delivery Loop ---
	// Pending randomness requests are served on a fixed cadence so random
	// launch terminations make progress without manual intervention.
	go func() {
		ticker := time.NewTicker(ORACLE_POLL_INTERVAL)
		defer ticker.Stop()
		for range ticker.C {
			for orc.Pending() > 0 {
				if err := orc.DeliverNext(); err != nil {
					log.Error().Err(err).Msg("Randomness delivery failed")
					break
				}
			}
		}
	}()

	// --- 5. Pool Snapshot Loop ---
	go func() {
		ticker := time.NewTicker(SNAPSHOT_INTERVAL)
		defer ticker.Stop()
		for range ticker.C {
			for _, info := range engine.ListPools() {
				if _, err := state.SavePoolSnapshot(info); err != nil {
					log.Error().Err(err).Str("asset", info.Asset).Msg("Failed to save pool snapshot")
				}
			}
		}
	}()

	// --- 6. Wait for Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down pump engine")
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
