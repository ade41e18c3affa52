package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"expense-api/internal/service"
	"expense-api/internal/storage"

	"golang.org/x/term"
)

const defaultDBPath = "expenses.db"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email address")
	username := fs.String("user", "", "Username (letters and digits, starting with a letter)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	dbPath := fs.String("db", defaultDBPath, "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var missing []string
	if *email == "" {
		missing = append(missing, "email")
	}
	if *username == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		fmt.Fprintln(stdout, "Usage: adduser -email <email> -user <username> [-password <password>] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	// DB_PATH applies only when -db was left at its default.
	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == defaultDBPath {
		*dbPath = path
	}

	db, err := storage.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	user, err := service.NewAuthService(db, nil).Register(context.Background(), service.RegisterInput{
		Email:    *email,
		Username: *username,
		Password: password,
	})
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("invalid user: %s", describe(ve))
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Username, user.ID)
	return nil
}

func describe(ve *service.ValidationError) string {
	msgs := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		msgs[i] = f.Msg
	}
	return strings.Join(msgs, "; ")
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Pipes and tests.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
