// Command token mints a bearer token for local testing of the API.
//
//	go run ./cmd/token -user 0b6f... -email ada@example.com
//	go run ./cmd/token -user 5d1e... -roles event-service
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"eventhub/config"
	"eventhub/internal/adapters/auth"
)

func main() {
	userID := flag.String("user", "", "user id (subject)")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	roles := flag.String("roles", "", "comma-separated roles claim")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "token: -user is required")
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "token: JWT_SECRET is not set")
		os.Exit(1)
	}
	tok, err := auth.NewJWT(cfg.JWTSecret).Issue(*userID, *email, *ttl, splitRoles(*roles)...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

func splitRoles(s string) []string {
	var roles []string
	for r := range strings.SplitSeq(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
