package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Smart123s/FastLogin/internal/auth"
	"github.com/Smart123s/FastLogin/internal/server"
)

// token issues a bridge token for a proxy or lobby server.
func main() {
	host := flag.String("host", "", "name of the host the token is issued to")
	flag.Parse()

	if *host == "" {
		log.Fatal("missing -host")
	}

	if os.Getenv("APP_ENV") == "" {
		os.Setenv("APP_ENV", "development")
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := server.NewLogger(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	token, err := auth.NewService(&cfg.Auth, logger).GenerateToken(*host)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
