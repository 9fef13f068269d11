package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	// Read admin credentials from environment
	secret := os.Getenv("ADMIN_JWT_SECRET")
	adminID := os.Getenv("ADMIN_ID")
	if secret == "" || adminID == "" {
		fmt.Fprintln(os.Stderr, "Error: ADMIN_JWT_SECRET and ADMIN_ID environment variables must be set")
		fmt.Fprintln(os.Stderr, "Usage: ADMIN_JWT_SECRET=secret ADMIN_ID=12345678 [SERVICE_NAME=scribe] [TTL=24h] go run scripts/generate-jwt.go")
		os.Exit(1)
	}
	if _, err := strconv.ParseInt(adminID, 10, 64); err != nil {
		fmt.Fprintf(os.Stderr, "Error: ADMIN_ID must be numeric, got %q\n", adminID)
		os.Exit(1)
	}

	issuer := os.Getenv("SERVICE_NAME")
	if issuer == "" {
		issuer = "scribe"
	}

	ttl := time.Hour
	if raw := os.Getenv("TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid TTL %q: %v\n", raw, err)
			os.Exit(1)
		}
		ttl = d
	}

	// The admin API accepts only tokens for the configured admin
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": adminID,
		"iss": issuer,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	// Create token with HS256
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// Sign the token
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing token: %v\n", err)
		os.Exit(1)
	}

	// Print the token
	fmt.Println(tokenString)
}
