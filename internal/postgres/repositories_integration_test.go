package postgres

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stockchat/internal/domain"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	// Start PostgreSQL container once for all tests
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get connection string: %v\n", err)
		os.Exit(1)
	}

	testPool, err = Connect(ctx, databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to migrate: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testPool.Close()
	if err := container.Terminate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to terminate postgres container: %v\n", err)
	}
	os.Exit(code)
}

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// cleanTables truncates all data between tests.
func cleanTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `TRUNCATE messages, rooms, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func TestUserRepo_CreateAndGet(t *testing.T) {
	skipShort(t)
	cleanTables(t)
	repo := NewUserRepo(testPool)
	ctx := context.Background()

	user, err := repo.Create(ctx, "alice@example.com", "alice", "hash123")
	require.NoError(t, err)
	assert.Positive(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "hash123", user.PasswordHash)
	assert.False(t, user.CreatedAt.IsZero())

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func TestUserRepo_NotFound(t *testing.T) {
	skipShort(t)
	cleanTables(t)
	repo := NewUserRepo(testPool)
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserRepo_UniqueViolations(t *testing.T) {
	skipShort(t)
	cleanTables(t)
	repo := NewUserRepo(testPool)
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice@example.com", "alice", "hash")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "alice@example.com", "alice2", "hash")
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = repo.Create(ctx, "alice2@example.com", "alice", "hash")
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestRoomRepo_CreateGetList(t *testing.T) {
	skipShort(t)
	cleanTables(t)
	repo := NewRoomRepo(testPool)
	ctx := context.Background()

	created, err := repo.Create(ctx, "general")
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	_, err = repo.Create(ctx, "random")
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "general", got.Name)

	rooms, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	// Ordered by name
	assert.Equal(t, "general", rooms[0].Name)
	assert.Equal(t, "random", rooms[1].Name)
}

func TestRoomRepo_DuplicateName(t *testing.T) {
	skipShort(t)
	cleanTables(t)
	repo := NewRoomRepo(testPool)
	ctx := context.Background()

	_, err := repo.Create(ctx, "general")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "general")
	assert.ErrorIs(t, err, domain.ErrRoomNameTaken)
}

func TestRoomRepo_GetNotFound(t *testing.T) {
	skipShort(t)
	cleanTables(t)
	repo := NewRoomRepo(testPool)

	_, err := repo.Get(context.Background(), 99999)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestMessageRepo_AddAndListRecent(t *testing.T) {
	skipShort(t)
	cleanTables(t)
	rooms := NewRoomRepo(testPool)
	repo := NewMessageRepo(testPool)
	ctx := context.Background()

	room, err := rooms.Create(ctx, "general")
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		msg, err := repo.Add(ctx, room.ID, "alice", fmt.Sprintf("message %d", i))
		require.NoError(t, err)
		assert.False(t, msg.IsBot)
	}

	// The last 3 messages, oldest first.
	messages, err := repo.ListRecent(ctx, room.ID, 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "message 3", messages[0].Content)
	assert.Equal(t, "message 4", messages[1].Content)
	assert.Equal(t, "message 5", messages[2].Content)
}

func TestMessageRepo_ListRecentEmptyRoom(t *testing.T) {
	skipShort(t)
	cleanTables(t)
	rooms := NewRoomRepo(testPool)
	repo := NewMessageRepo(testPool)
	ctx := context.Background()

	room, err := rooms.Create(ctx, "general")
	require.NoError(t, err)

	messages, err := repo.ListRecent(ctx, room.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMessageRepo_RoomIsolation(t *testing.T) {
	skipShort(t)
	cleanTables(t)
	rooms := NewRoomRepo(testPool)
	repo := NewMessageRepo(testPool)
	ctx := context.Background()

	roomA, err := rooms.Create(ctx, "a")
	require.NoError(t, err)
	roomB, err := rooms.Create(ctx, "b")
	require.NoError(t, err)

	_, err = repo.Add(ctx, roomA.ID, "alice", "for room a")
	require.NoError(t, err)
	_, err = repo.Add(ctx, roomB.ID, "bob", "for room b")
	require.NoError(t, err)

	messages, err := repo.ListRecent(ctx, roomA.ID, 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "for room a", messages[0].Content)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	skipShort(t)

	// A second run finds the schema up to date.
	err := RunMigrations(context.Background(), testPool)
	assert.NoError(t, err)
}
