// Package config resolves engine-wide defaults from environment
// variables (optionally loaded from a .env file), with explicit flags or
// per-request fields always taking precedence over env, and env taking
// precedence over the hardcoded defaults below.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Engine holds process-wide tunables that are not part of a single
// analysis request.
type Engine struct {
	DBPath            string // sqlite database file backing the transcript store + seed index
	Workers           int    // bounded worker-pool size for per-candidate scoring fan-out
	CandidateCap      int    // ResourceExhausted cap: max candidates accepted per query
	DefaultMaxMM      int    // default max_seed_mismatches
	DefaultEnergyCut  float64
	DefaultAllowWobble bool
}

// Load reads a .env file if present (ignored if absent) and returns
// Engine populated from environment variables, falling back to defaults.
func Load() Engine {
	_ = godotenv.Load()

	return Engine{
		DBPath:             envString("SIRNA_DB_PATH", "sirna_offtarget.db"),
		Workers:            envInt("SIRNA_WORKERS", 4),
		CandidateCap:       envInt("SIRNA_CANDIDATE_CAP", 50000),
		DefaultMaxMM:       envInt("SIRNA_MAX_SEED_MISMATCHES", 1),
		DefaultEnergyCut:   envFloat("SIRNA_ENERGY_THRESHOLD", -10.0),
		DefaultAllowWobble: envBool("SIRNA_ALLOW_WOBBLE", true),
	}
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
