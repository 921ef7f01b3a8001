//go:build integration

package web_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/planward/planward/pkg/agent"
	"github.com/planward/planward/pkg/mocks"
	"github.com/planward/planward/pkg/models"
	"github.com/planward/planward/pkg/persistence/postgresql"
	"github.com/planward/planward/pkg/planner"
	"github.com/planward/planward/pkg/web"
)

func setupTestDB(t *testing.T) (string, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "test_planward",
				"POSTGRES_USER":     "test_user",
				"POSTGRES_PASSWORD": "test_pass",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbURL := fmt.Sprintf("postgres://test_user:test_pass@%s:%s/test_planward?sslmode=disable", host, port.Port())

	// Give the container a moment to settle after the log line appears.
	time.Sleep(2 * time.Second)

	cleanup := func() {
		_ = container.Terminate(ctx)
	}

	return dbURL, cleanup
}

func setupIntegrationApp(t *testing.T, dbURL string) (*fiber.App, *mocks.MockAgent) {
	t.Helper()

	persistenceLayer, err := postgresql.NewPersistence(context.Background(), testLogger(), dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = persistenceLayer.Close(context.Background()) })

	agentMock := &mocks.MockAgent{}
	manager := planner.NewManager(planner.Dependencies{
		Agent:       agentMock,
		Persistence: persistenceLayer,
		Logger:      testLogger(),
	}, planner.ManagerConfig{})

	return setupApp(t, manager), agentMock
}

func TestSessionLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbURL, cleanup := setupTestDB(t)
	defer cleanup()

	app, agentMock := setupIntegrationApp(t, dbURL)

	// Generation against the scripted agent gives us a confirmed graph.
	session := editingSession(t, app, agentMock)
	require.Len(t, session.Nodes, 3)

	var cake models.GraphNode

	t.Run("Edit Graph", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/sessions/"+session.ID+"/nodes", web.CreateNodeRequest{
			Label:    "Order cake",
			Position: models.Position{X: 320, Y: 180},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&cake))

		_ = resp.Body.Close()

		catering := nodeByLabel(t, session, "Arrange catering")

		resp = doRequest(t, app, http.MethodPost, "/sessions/"+session.ID+"/edges", web.CreateEdgeRequest{
			Source: catering.ID,
			Target: cake.ID,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		_ = resp.Body.Close()

		payload := fetchSession(t, app, session.ID)
		assert.Len(t, payload.Nodes, 4)
		assert.Len(t, payload.Edges, 3)
		assert.True(t, payload.HasChanges)
		assert.Equal(t, 2, payload.UndoDepth)
	})

	t.Run("Check Changes", func(t *testing.T) {
		agentMock.On("ValidateChanges", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				tools, ok := args.Get(2).(agent.Tools)
				require.True(t, ok)

				ctx := context.Background()
				_, err := tools.FlagNode(ctx, cake.ID, models.NodeStatusOK, "a party needs cake")
				require.NoError(t, err)
				require.NoError(t, tools.SummarizeCheck(ctx, "The additions hold together."))
			}).
			Return(nil).Once()

		resp := doRequest(t, app, http.MethodPost, "/sessions/"+session.ID+"/check", nil)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		_ = resp.Body.Close()

		payload := waitForPhase(t, app, session.ID, models.PhaseEditing)
		assert.False(t, payload.HasChanges)
		assert.Equal(t, 1, payload.CheckCount)
		assert.Equal(t, "The additions hold together.", payload.Summary)
		assert.Equal(t, models.NodeStyleOK, payload.NodeStyles[cake.ID])
		require.NotNil(t, payload.Baseline)
		assert.Len(t, payload.Baseline.Nodes, 4)
	})

	t.Run("Survives Restart", func(t *testing.T) {
		// A fresh manager over the same database sees everything the
		// checks confirmed, but not the in-memory undo stack.
		restartedApp, _ := setupIntegrationApp(t, dbURL)

		payload := fetchSession(t, restartedApp, session.ID)
		assert.Equal(t, models.PhaseEditing, payload.Phase)
		assert.Len(t, payload.Nodes, 4)
		assert.Len(t, payload.Edges, 3)
		assert.False(t, payload.HasChanges)
		assert.Equal(t, "The additions hold together.", payload.Summary)
		assert.Equal(t, models.NodeStyleOK, payload.NodeStyles[cake.ID])
		require.NotNil(t, payload.Baseline)
		assert.Len(t, payload.Baseline.Nodes, 4)
		assert.Zero(t, payload.UndoDepth)
	})

	t.Run("Delete Session", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodDelete, "/sessions/"+session.ID, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		_ = resp.Body.Close()

		resp = doRequest(t, app, http.MethodGet, "/sessions/"+session.ID, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		_ = resp.Body.Close()
	})
}
