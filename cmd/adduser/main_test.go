package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"expense-api/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	auth.Cost = bcrypt.MinCost
	os.Exit(m.Run())
}

func TestRun_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_success.db")

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-email", "test@example.com", "-user", "testuser", "-password", "secret1", "-db", dbPath}
	err := run(args, stdin, stdout, stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "User testuser created successfully with ID 1")
}

func TestRun_DuplicateUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_duplicate.db")
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-email", "test@example.com", "-user", "testuser", "-password", "secret1", "-db", dbPath}

	err := run(args, stdin, stdout, stderr)
	require.NoError(t, err, "first run should succeed")

	stdout.Reset()
	stderr.Reset()
	err = run(args, stdin, stdout, stderr)
	require.Error(t, err, "expected error on duplicate user")
	assert.Contains(t, err.Error(), "Email already exists")
	assert.Contains(t, err.Error(), "Username already exists")
}

func TestRun_MissingFlags(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-password", "secret1"}
	err := run(args, stdin, stdout, stderr)
	require.Error(t, err, "expected error for missing flags")
	assert.Contains(t, err.Error(), "missing required flags: email, user")
	assert.Contains(t, stdout.String(), "Usage:")

	stdout.Reset()
	err = run([]string{"-email", "a@example.com"}, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: user")
}

func TestRun_ValidationRules(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_rules.db")
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-email", "test@example.com", "-user", "test_user", "-password", "abc", "-db", dbPath}
	err := run(args, stdin, stdout, stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user")
	assert.Contains(t, err.Error(), "Password must be at least 6 characters long")
	assert.Contains(t, err.Error(), "Username must start with a letter")
}

func TestRun_InteractivePassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_interactive.db")
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	stdin := bytes.NewBufferString("interactive_secret\n")

	args := []string{"-email", "i@example.com", "-user", "interactive", "-db", dbPath}
	err := run(args, stdin, stdout, stderr)
	require.NoError(t, err)

	output := stdout.String()
	assert.Contains(t, output, "Password: ")
	assert.Contains(t, output, "User interactive created successfully")
}

func TestRun_InteractivePassword_Empty(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	stdin := bytes.NewBufferString("\n")

	args := []string{"-email", "e@example.com", "-user", "emptypass"}
	err := run(args, stdin, stdout, stderr)
	require.Error(t, err, "expected error for empty password")
	assert.Contains(t, err.Error(), "password cannot be empty")
}

func TestRun_EnvVarOverride(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test_env.db")

	t.Setenv("DB_PATH", dbPath)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-email", "env@example.com", "-user", "envuser", "-password", "secret1"}
	err := run(args, stdin, stdout, stderr)
	require.NoError(t, err)

	assert.FileExists(t, dbPath)
}

func TestRun_InvalidDBPath(t *testing.T) {
	// A directory cannot be opened as a database file.
	tmpDir := t.TempDir()

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-email", "f@example.com", "-user", "failuser", "-password", "secret1", "-db", tmpDir}
	err := run(args, stdin, stdout, stderr)
	require.Error(t, err, "expected error for invalid db path")
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestRun_InvalidFlag(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	stdin := new(bytes.Buffer)

	args := []string{"-invalid"}
	err := run(args, stdin, stdout, stderr)
	require.Error(t, err, "expected error for invalid flag")
	assert.Contains(t, err.Error(), "flag provided but not defined")
}
