// Command token-issuer prints a bearer token for a user ID, signed with the
// configured auth.jwt_secret. Use it to call the API by hand during
// development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/config"
	"github.com/phrazzld/taskpulse/internal/service/auth"
)

func main() {
	user := flag.String("user", "", "user UUID to issue the token for (random when empty)")
	flag.Parse()

	token, userID, err := issue(*user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token-issuer: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("User:  %s\nToken: %s\n", userID, token)
}

func issue(user string) (string, uuid.UUID, error) {
	userID := uuid.New()
	if user != "" {
		parsed, err := uuid.Parse(user)
		if err != nil {
			return "", uuid.Nil, fmt.Errorf("invalid -user: %w", err)
		}
		userID = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return "", uuid.Nil, err
	}
	token, err := jwtService.GenerateToken(context.Background(), userID)
	if err != nil {
		return "", uuid.Nil, err
	}
	return token, userID, nil
}
