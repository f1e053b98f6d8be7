package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/services"
	"spendlog/internal/storage"
)

func execute(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AMQP_URL", "")
	root, _ := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--backend", "file", "--data-dir", dataDir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

var addedID = regexp.MustCompile(`Added (\d+):`)

func TestAddListSummary(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "add", "-d", "Coffee", "-a", "4.50", "-t", "expense", "-c", "Food", "--date", "2024-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Coffee -$4.50 (expense)")

	_, err = execute(t, dir, "add", "-d", "Salary", "-a", "2000", "-t", "income", "-c", "Work", "--date", "2024-01-02")
	require.NoError(t, err)

	out, err = execute(t, dir, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "$1995.50")
	assert.Less(t, strings.Index(out, "Salary"), strings.Index(out, "Coffee"))

	out, err = execute(t, dir, "ls", "--query", "food")
	require.NoError(t, err)
	assert.Contains(t, out, "Coffee")
	assert.NotContains(t, out, "Salary")

	out, err = execute(t, dir, "ls", "-q", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, `No transactions match "nothing".`)

	out, err = execute(t, dir, "summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance:   $1995.50")
	assert.Contains(t, out, "Expenses:  $4.50")
	assert.Contains(t, out, "Food")
}

func TestAddRejectsInvalidInput(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "add", "-d", "Coffee", "--amount=-3", "-c", "Food")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "amount must be a positive number")

	out, err := execute(t, dir, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions yet.")
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "add", "-d", "Coffee", "-a", "4.50", "-c", "Food")
	require.NoError(t, err)
	m := addedID.FindStringSubmatch(out)
	require.Len(t, m, 2)

	out, err = execute(t, dir, "rm", m[1])
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+m[1])

	_, err = execute(t, dir, "rm", m[1])
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = execute(t, dir, "rm", "abc")
	assert.Error(t, err)
}

func TestChart(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "out.png")

	_, err := execute(t, dir, "chart", "-o", png)
	require.Error(t, err)
	assert.NoFileExists(t, png)

	_, err = execute(t, dir, "add", "-d", "Coffee", "-a", "4.50", "-c", "Food")
	require.NoError(t, err)

	out, err := execute(t, dir, "chart", "-o", png, "--width", "200", "--height", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+png)

	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestFailedCommandReleasesBackend(t *testing.T) {
	t.Setenv("AMQP_URL", "")
	store, err := services.OpenTransactionStore(context.Background(), storage.NewMemoryStore())
	require.NoError(t, err)

	root, a := newRootCmd()
	closed := 0
	a.store = store
	a.cleanup = func() error {
		closed++
		return nil
	}
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--backend", "memory", "rm", "999"})

	err = a.run(context.Background(), root)
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 1, closed)
	assert.Nil(t, a.store)
}

func TestEventsRequiresAMQP(t *testing.T) {
	_, err := execute(t, t.TempDir(), "events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMQP_URL")
}

func TestInvalidBackendFlag(t *testing.T) {
	root, _ := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--backend", "sheets", "ls"})
	assert.Error(t, root.Execute())
}

func TestFormatEvent(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tx := core.Transaction{ID: 7, Description: "Coffee", Amount: core.Money{Cents: 450}, Type: core.Expense, Date: core.NewDate(2024, 1, 1)}

	created := formatEvent(&amqp.TransactionEvent{Type: amqp.EventTransactionCreated, ID: 7, Transaction: &tx, Timestamp: ts})
	assert.Equal(t, "2024-01-02T03:04:05Z  transaction.created   7  2024-01-01  Coffee  -$4.50", created)

	deleted := formatEvent(&amqp.TransactionEvent{Type: amqp.EventTransactionDeleted, ID: 7, Timestamp: ts})
	assert.Equal(t, "2024-01-02T03:04:05Z  transaction.deleted   7", deleted)
}
