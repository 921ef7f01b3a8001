package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/planward/planward/pkg/models"
	"github.com/planward/planward/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"sessions", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("planward_test"),
			postgres.WithUsername("planward"),
			postgres.WithPassword("planward"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	persistence, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = persistence.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return persistence, ctx, databaseURL
}

func sampleSession() *models.Session {
	return &models.Session{
		ID:       uuid.New().String(),
		PlanText: "Secure the venue, then invite everyone.",
		Phase:    models.PhaseEditing,
		Nodes: []*models.GraphNode{
			{ID: "n1", Label: "Secure the venue", Position: models.Position{X: 0, Y: 0}},
			{ID: "n2", Label: "Invite everyone", Position: models.Position{X: 0, Y: 128}},
		},
		Edges: []*models.GraphEdge{
			{ID: "e1", Source: "n1", Target: "n2"},
		},
		Baseline: &models.Snapshot{
			Nodes: []models.SnapshotNode{
				{ID: "n1", Label: "Secure the venue"},
				{ID: "n2", Label: "Invite everyone"},
			},
			Edges: []models.SnapshotEdge{{Source: "n1", Target: "n2"}},
		},
		HasChanges: false,
		CheckCount: 2,
		Annotations: map[string]*models.Annotation{
			"n2": {Status: models.NodeStatusWarning, Reasons: []string{"date not set"}},
		},
		Insights: []*models.Insight{
			{Kind: models.InsightKindWarning, Message: "No budget step in the plan"},
		},
		Summary: "Plan is workable with one gap.",
		Failure: &models.CheckFailure{Kind: models.FailureKindGeneric, Message: "Something went wrong."},
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	err = db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'sessions')").
		Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPersistence_SaveAndLoadSession(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	original := sampleSession()
	require.NoError(t, p.SaveSession(ctx, original))

	loaded, err := p.SessionByID(ctx, original.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, original.PlanText, loaded.PlanText)
	assert.Equal(t, models.PhaseEditing, loaded.Phase)
	assert.Equal(t, 2, loaded.CheckCount)
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, "Invite everyone", loaded.Nodes[1].Label)
	require.NotNil(t, loaded.Baseline)
	assert.Len(t, loaded.Baseline.Nodes, 2)
	require.Contains(t, loaded.Annotations, "n2")
	assert.Equal(t, models.NodeStatusWarning, loaded.Annotations["n2"].Status)
	require.Len(t, loaded.Insights, 1)
	assert.Equal(t, models.InsightKindWarning, loaded.Insights[0].Kind)
	require.NotNil(t, loaded.Failure)
	assert.Equal(t, models.FailureKindGeneric, loaded.Failure.Kind)
}

func TestPersistence_SaveSession_UpsertsExistingRow(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	session := sampleSession()
	require.NoError(t, p.SaveSession(ctx, session))

	session.Summary = "Revised after second check."
	session.HasChanges = true
	session.Failure = nil
	require.NoError(t, p.SaveSession(ctx, session))

	loaded, err := p.SessionByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Revised after second check.", loaded.Summary)
	assert.True(t, loaded.HasChanges)
	assert.Nil(t, loaded.Failure)
}

func TestPersistence_SessionByID_MissingReturnsNil(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	loaded, err := p.SessionByID(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestPersistence_Sessions_ReturnsAllRows(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	require.NoError(t, p.SaveSession(ctx, sampleSession()))
	require.NoError(t, p.SaveSession(ctx, sampleSession()))

	sessions, err := p.Sessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestPersistence_DeleteSession(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	session := sampleSession()
	require.NoError(t, p.SaveSession(ctx, session))
	require.NoError(t, p.DeleteSession(ctx, session.ID))

	loaded, err := p.SessionByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting again is a no-op.
	require.NoError(t, p.DeleteSession(ctx, session.ID))
}

func TestPersistence_DeleteSessionsInactiveSince(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	session := sampleSession()
	require.NoError(t, p.SaveSession(ctx, session))

	removed, err := p.DeleteSessionsInactiveSince(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = p.DeleteSessionsInactiveSince(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
