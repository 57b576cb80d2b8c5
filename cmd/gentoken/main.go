// cmd/gentoken prints a signed access token for local testing.
// Usage: go run ./cmd/gentoken -user u-1 -role manager
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/middleware"
)

func main() {
	userID := flag.String("user", "dev-admin", "user_id claim (recorded as performedBy)")
	username := flag.String("name", "Dev Admin", "username claim")
	role := flag.String("role", middleware.RoleAdmin, "admin | manager | clerk")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if !middleware.KnownRole(*role) {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	ttl := time.Duration(cfg.JWTExpirationHours) * time.Hour
	token, err := middleware.IssueToken(cfg.JWTSecret, *userID, *username, *role, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
