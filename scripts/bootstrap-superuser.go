package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/plixa/plixa/internal/auth"
	"github.com/plixa/plixa/internal/model"
	"github.com/plixa/plixa/internal/repository"
)

type output struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "admin@plixa.local", "Superuser email")
		password    = flag.String("password", "", "Password (generated if empty)")
		firstName   = flag.String("first-name", "Plixa", "First name")
		lastName    = flag.String("last-name", "Admin", "Last name")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	plaintext := *password
	if plaintext == "" {
		generated, err := generatePassword()
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate password:", err)
			os.Exit(1)
		}
		plaintext = generated
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		fmt.Fprintln(os.Stderr, "run migrations:", err)
		os.Exit(1)
	}

	hash, err := auth.HashPassword(plaintext)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash password:", err)
		os.Exit(1)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Type:         model.TypeSuperuser,
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		FirstName:    *firstName,
		LastName:     *lastName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			fmt.Fprintln(os.Stderr, "a user with that email already exists")
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "create user:", err)
		os.Exit(1)
	}

	out := output{
		UserID:   user.ID,
		Email:    user.Email,
		Password: plaintext,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Password)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func generatePassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
