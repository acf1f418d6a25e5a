package config

import (
	"errors"
	"os"
	"strconv"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// ProtocolFeePct is the percentage of launch proceeds retained by the protocol.
	ProtocolFeePct sdkmath.LegacyDec

	// DefaultBuyFeePct is the pool buy fee applied when a creator does not set one.
	DefaultBuyFeePct sdkmath.LegacyDec
	// DefaultSellFeePct is the pool sell fee applied when a creator does not set one.
	DefaultSellFeePct sdkmath.LegacyDec
	// DefaultFlashLoanFeePct is the pool flash loan fee applied when a creator does not set one.
	DefaultFlashLoanFeePct sdkmath.LegacyDec

	// MaxMatchingOrders bounds how many resting orders a single trigger may inspect.
	MaxMatchingOrders int
	// MaxActiveOrdersPerCoin bounds the depth of a single coin's order book.
	MaxActiveOrdersPerCoin int

	// OracleBatchBytes is the number of random bytes delivered per oracle callback.
	OracleBatchBytes int
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Every variable has a production default; set the variable to override it.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	ProtocolFeePct, err = getEnvAsDec("PUMP_PROTOCOL_FEE_PCT", "0.5")
	if err != nil {
		return err
	}

	DefaultBuyFeePct, err = getEnvAsDec("PUMP_DEFAULT_BUY_FEE_PCT", "1")
	if err != nil {
		return err
	}

	DefaultSellFeePct, err = getEnvAsDec("PUMP_DEFAULT_SELL_FEE_PCT", "1")
	if err != nil {
		return err
	}

	DefaultFlashLoanFeePct, err = getEnvAsDec("PUMP_DEFAULT_FLASH_LOAN_FEE_PCT", "0.1")
	if err != nil {
		return err
	}

	MaxMatchingOrders, err = getEnvAsInt("PUMP_MAX_MATCHING_ORDERS", 30)
	if err != nil {
		return err
	}

	MaxActiveOrdersPerCoin, err = getEnvAsInt("PUMP_MAX_ACTIVE_ORDERS_PER_COIN", 100)
	if err != nil {
		return err
	}

	OracleBatchBytes, err = getEnvAsInt("PUMP_ORACLE_BATCH_BYTES", 128)
	if err != nil {
		return err
	}

	if err := validate(); err != nil {
		return err
	}

	log.Debug().
		Str("ProtocolFeePct", ProtocolFeePct.String()).
		Int("MaxMatchingOrders", MaxMatchingOrders).
		Int("MaxActiveOrdersPerCoin", MaxActiveOrdersPerCoin).
		Msg("Configuration loaded successfully.")

	return nil
}

// validate checks the loaded values against their legal ranges.
func validate() error {
	hundred := sdkmath.LegacyNewDec(100)
	for _, pct := range []sdkmath.LegacyDec{ProtocolFeePct, DefaultBuyFeePct, DefaultSellFeePct, DefaultFlashLoanFeePct} {
		if pct.IsNegative() || pct.GT(hundred) {
			return errors.New("fee percentages must be between 0 and 100, got: " + pct.String())
		}
	}
	if MaxMatchingOrders <= 0 {
		return errors.New("PUMP_MAX_MATCHING_ORDERS must be positive")
	}
	if MaxActiveOrdersPerCoin <= 0 {
		return errors.New("PUMP_MAX_ACTIVE_ORDERS_PER_COIN must be positive")
	}
	if OracleBatchBytes < 8 {
		return errors.New("PUMP_ORACLE_BATCH_BYTES must be at least 8")
	}
	return nil
}

// getEnvOr retrieves a string environment variable, falling back to a default.
func getEnvOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsDec retrieves an environment variable as a LegacyDec. Returns error if invalid.
func getEnvAsDec(key, fallback string) (sdkmath.LegacyDec, error) {
	valueStr := getEnvOr(key, fallback)
	value, err := sdkmath.LegacyNewDecFromStr(valueStr)
	if err != nil {
		return sdkmath.LegacyDec{}, errors.New("environment variable " + key + " must be a valid decimal, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if invalid.
func getEnvAsInt(key string, fallback int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}
