package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	sqliteadapter "github.com/aidaco/wwwmin/internal/adapter/driven/sqlite"
	"github.com/aidaco/wwwmin/internal/config"
	"github.com/aidaco/wwwmin/internal/domain/port/driven"
)

// passwordEnv supplies the password non-interactively, e.g. in provisioning
// scripts.
const passwordEnv = config.Prefix + "_ADMIN_PASSWORD"

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func addUser(ctx context.Context, cfg *config.Config, args []string, logger *slog.Logger) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: wwwmin adduser <username>")
	}
	username := args[0]

	password, err := promptPassword(os.Stderr)
	if err != nil {
		return err
	}

	db, err := sqliteadapter.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	auth := newAuthenticator(cfg, sqliteadapter.NewUserRepo(db), logger)
	if _, err := auth.CreateUser(ctx, username, password); err != nil {
		if errors.Is(err, driven.ErrUserExists) {
			return fmt.Errorf("user %q already exists: %w", username, err)
		}
		return err
	}
	return nil
}

// promptPassword reads the new password twice from the terminal without
// echo, unless it is set in the environment.
func promptPassword(w io.Writer) (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	first, err := readSecret(w, "Password: ")
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", errors.New("password must not be empty")
	}
	second, err := readSecret(w, "Repeat password: ")
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func readSecret(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}
