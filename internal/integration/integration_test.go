package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ledgerkiro/ledgerkiro/internal/bankaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/banking"
	"github.com/ledgerkiro/ledgerkiro/internal/houseaccount"
	"github.com/ledgerkiro/ledgerkiro/internal/journal"
	"github.com/ledgerkiro/ledgerkiro/internal/ledger"
	"github.com/ledgerkiro/ledgerkiro/internal/lock"
	"github.com/ledgerkiro/ledgerkiro/internal/money"
	"github.com/ledgerkiro/ledgerkiro/internal/outbox"
	"github.com/ledgerkiro/ledgerkiro/internal/projector"
	"github.com/ledgerkiro/ledgerkiro/internal/webhook"
)

// TestDepositEndToEnd opens a Retail/Checking USD bank account, approves it,
// deposits funds, lets the outbox worker settle the ledger side and enqueue
// a webhook delivery, and asserts the full pipeline landed: ledger view
// balance updated and a signed webhook delivered to a stub receiver. Grounded on the teacher's testcontainers-go Postgres harness
// (internal/integration), adapted from its generic events/accounts flow to
// this domain's BankAccount -> Ledger -> outbox -> webhook pipeline.
func TestDepositEndToEnd(t *testing.T) {
	ctx := context.Background()

	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	redisClient, redisCleanup := setupRedis(t, ctx)
	defer redisCleanup()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sys, err := banking.New(pool, logger, 1)
	require.NoError(t, err)

	houses := houseaccount.New(pool)

	// Bootstrap the house account's own zero-balance Ledger, then register
	// it, mirroring HouseAccountHandler.Create.
	houseLedgerID := uuid.New()
	_, _, err = sys.Ledgers.Execute(ctx, houseLedgerID, ledger.Init{
		ID:        houseLedgerID,
		AccountID: uuid.Nil,
		Amount:    money.Zero(money.USD),
	}, ledger.Services{})
	require.NoError(t, err)

	_, err = houses.Create(ctx, "USD House Account", money.USD, houseLedgerID)
	require.NoError(t, err)

	received := make(chan string, 1)
	stubReceiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("X-Ledger-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer stubReceiver.Close()

	var endpointID string
	err = pool.QueryRow(ctx, `
		INSERT INTO webhook_endpoints (url, secret, is_active)
		VALUES ($1, $2, true)
		RETURNING id
	`, stubReceiver.URL, "test-secret").Scan(&endpointID)
	require.NoError(t, err)

	accountID := uuid.New()
	_, _, err = sys.BankAccounts.Execute(ctx, accountID, bankaccount.OpenAccount{
		ID:          accountID,
		AccountType: bankaccount.Retail,
		Kind:        bankaccount.Checking,
		UserID:      "user-1",
		Currency:    money.USD,
	}, sys.BankAccountServices())
	require.NoError(t, err)

	ledgerID := uuid.New()
	_, _, err = sys.BankAccounts.Execute(ctx, accountID, bankaccount.ApproveAccount{
		ID:       accountID,
		LedgerID: ledgerID,
	}, sys.BankAccountServices())
	require.NoError(t, err)

	depositAmount, err := money.Parse("250.00", money.USD)
	require.NoError(t, err)
	_, _, err = sys.BankAccounts.Execute(ctx, accountID, bankaccount.Deposit{
		ID:     accountID,
		Amount: depositAmount,
	}, sys.BankAccountServices())
	require.NoError(t, err)

	var view projector.BankAccountView
	require.NoError(t, sys.BankAccountViews.Get(ctx, accountID, &view))
	require.Equal(t, bankaccount.StatusApproved, view.Status)
	require.Equal(t, ledgerID, view.LedgerID)

	var pendingRows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE processed = false`).Scan(&pendingRows))
	require.Equal(t, 1, pendingRows)

	riverClient := startRiverClient(t, ctx, pool)
	defer riverClient.Stop(ctx)

	outboxWorker := &outbox.Worker{
		Journal:      journal.New(pool),
		Lock:         lock.New(redisClient),
		Ledgers:      sys.Ledgers,
		River:        riverClient,
		Logger:       logger,
		TickInterval: 200 * time.Millisecond,
		BatchSize:    10,
	}
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()
	go outboxWorker.Run(workerCtx)

	require.Eventually(t, func() bool {
		var ledgerView projector.LedgerView
		if err := sys.LedgerViews.Get(ctx, ledgerID, &ledgerView); err != nil {
			return false
		}
		return ledgerView.Available == depositAmount.String()
	}, 10*time.Second, 100*time.Millisecond, "ledger view never reflected the settled deposit")

	select {
	case sig := <-received:
		require.NotEmpty(t, sig)
	case <-time.After(10 * time.Second):
		t.Fatal("webhook was never delivered to the stub receiver")
	}
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ledgerkiro_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	runSQLMigrations(t, ctx, pool)

	return pool, func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
}

func setupRedis(t *testing.T, ctx context.Context) (*redis.Client, func()) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, client.Ping(ctx).Err())

	return client, func() {
		client.Close()
		_ = container.Terminate(ctx)
	}
}

// runSQLMigrations applies every *.up.sql file under migrations/, the same
// files cmd/migrate/main.go runs in production, plus River's own migration
// set (the outbox worker's InsertTx needs river_job to exist).
func runSQLMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	migrationsDir := findMigrationsDir(t)
	files, err := os.ReadDir(migrationsDir)
	require.NoError(t, err)

	var upMigrations []string
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".up.sql") {
			upMigrations = append(upMigrations, f.Name())
		}
	}
	sort.Strings(upMigrations)

	for _, name := range upMigrations {
		content, err := os.ReadFile(filepath.Join(migrationsDir, name))
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(content))
		require.NoErrorf(t, err, "applying %s", name)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	require.NoError(t, err)
	_, err = migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	require.NoError(t, err)
}

// findMigrationsDir walks up from the test's working directory to the
// module root's migrations/ folder, so `go test ./...` works regardless of
// the invoking directory.
func findMigrationsDir(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		candidate := filepath.Join(dir, "migrations")
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	t.Fatal("could not locate migrations directory")
	return ""
}

func startRiverClient(t *testing.T, ctx context.Context, pool *pgxpool.Pool) *river.Client[pgx.Tx] {
	t.Helper()

	workers := river.NewWorkers()
	river.AddWorker(workers, webhook.NewWorker(pool))

	client, err := river.NewClient[pgx.Tx](riverpgxv5.New(pool), &river.Config{Workers: workers})
	require.NoError(t, err)
	require.NoError(t, client.Start(ctx))
	return client
}
