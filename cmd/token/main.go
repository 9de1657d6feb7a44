package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"newsapi/internal/config"
	"newsapi/internal/platform/crypto"
)

func main() {
	var (
		subject = flag.String("sub", "editor", "Token subject")
		ttl     = flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required to issue tokens")
	}

	token, err := crypto.GenerateToken(cfg.JWTSecret, *subject, *ttl)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}
	fmt.Println(token)
}
