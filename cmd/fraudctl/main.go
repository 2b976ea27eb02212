// fraudctl is a command-line client for a running fraud scoring service.
//
// Usage:
//
//	fraudctl -addr http://localhost:8000 info
//	fraudctl health
//	fraudctl stats
//	fraudctl predict -amount 500 -time 3600
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"fraudscore/internal/client"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOrDefault("FRAUDSCORE_ADDR", "http://localhost:8000"), "service base URL")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	amount := flag.Float64("amount", 0, "transaction amount (predict)")
	txTime := flag.Float64("time", 0, "transaction time offset (predict)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: fraudctl [flags] info|health|stats|predict")
		os.Exit(2)
	}

	c := client.New(*addr, *timeout)

	var out any
	var err error
	switch cmd := flag.Arg(0); cmd {
	case "info":
		out, err = c.Info()
	case "health":
		out, err = c.Health()
	case "stats":
		out, err = c.Stats()
	case "predict":
		out, err = c.Predict(map[string]float64{
			"Time":   *txTime,
			"Amount": *amount,
		})
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("request failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("encode failed")
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
