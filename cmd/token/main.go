// Command token mints a signed development token for local testing. The
// production issuer lives in the auth service; this tool only exists so the
// relay and its CLI can run without it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"chat-relay/auth"
)

func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "", "User id to embed in the token")
	displayName := flag.String("name", "", "Display name (defaults to the user id)")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	token, err := auth.GenerateToken([]byte(secret), *userID, *displayName, *ttl)
	if err != nil {
		log.Fatal("Token generation failed: ", err)
	}
	fmt.Println(token)
}
