// Command devtoken prints a signed access token for local development.
// Production tokens come from the identity service.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/seatly/internal/utils"
)

func main() {
	_ = godotenv.Load()
	sub := flag.String("sub", "dev-user", "token subject, used as the reservation holder")
	role := flag.String("role", "CUSTOMER", "role claim: CUSTOMER or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("devtoken: JWT_SECRET is not set")
	}
	tok, err := utils.NewAccessToken(secret, *sub, *role, *ttl)
	if err != nil {
		log.Fatalf("devtoken: %v", err)
	}
	fmt.Println(tok.Token)
}
