package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/matheus3301/msgr/internal/chat"
	"github.com/matheus3301/msgr/internal/devserver"
	"github.com/matheus3301/msgr/internal/profile"
	"github.com/matheus3301/msgr/internal/status"
	"github.com/matheus3301/msgr/internal/store"
)

func startDevServer(t *testing.T) string {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "msgrd.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)

	logger := zap.NewNop()
	metrics := devserver.NewMetrics()
	api := devserver.NewAPI(db, devserver.NewTokens("e2e", time.Hour), metrics, logger)
	srv := httptest.NewServer(devserver.NewRouter(api, metrics, logger))
	t.Cleanup(func() {
		srv.Close()
		http.DefaultTransport.(*http.Transport).CloseIdleConnections()
		_ = db.Close()
	})
	return srv.URL
}

func startApp(t *testing.T, name, url string) (*fxtest.App, *Client) {
	t.Helper()
	var c *Client
	app := fxtest.New(t,
		Module(Params{Profile: name, Binary: "test", ServerURL: url, Exclusive: true}),
		fx.Populate(&c),
		fx.NopLogger,
	)
	app.RequireStart()
	return app, c
}

func TestModuleAgainstDevServer(t *testing.T) {
	t.Setenv(profile.HomeEnv, t.TempDir())
	url := startDevServer(t)
	ctx := context.Background()

	aliceApp, alice := startApp(t, "alice", url)
	bobApp, bob := startApp(t, "bob", url)
	defer bobApp.RequireStop()

	assert.Equal(t, status.AuthRequired, alice.Status())

	_, err := alice.Register(ctx, "alice", "pw-alice")
	require.NoError(t, err)
	bobID, err := bob.Register(ctx, "bob", "pw-bob")
	require.NoError(t, err)

	hits, err := alice.SearchNow(ctx, "bo")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, bobID.ID, hits[0].ID)

	convID, err := alice.StartConversation(ctx, bobID.ID)
	require.NoError(t, err)
	assert.Equal(t, convID, alice.Store().Selection().Active())
	assert.Equal(t, status.Ready, alice.Status())

	sent, err := alice.Send(ctx, convID, "hello bob")
	require.NoError(t, err)
	assert.Equal(t, chat.Sent, sent.Delivery)

	msgs := alice.Store().Messages(convID)
	require.Len(t, msgs, 1)
	assert.Equal(t, chat.Confirmed, msgs[0].Delivery)
	assert.Equal(t, "hello bob", msgs[0].Body)

	require.NoError(t, bob.RefreshChats(ctx))
	convs := bob.Store().Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, "alice", convs[0].Counterpart.DisplayName)
	assert.Equal(t, "hello bob", convs[0].LastMessagePreview)
	assert.Equal(t, 1, convs[0].UnreadCount)

	// A second instance cannot take the profile while the first holds it.
	err = fx.New(Module(Params{Profile: "alice", Binary: "test", ServerURL: url, Exclusive: true}), fx.NopLogger).
		Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked by test")

	// Restarting restores the saved session.
	aliceApp.RequireStop()
	aliceApp, alice = startApp(t, "alice", url)
	assert.Equal(t, status.Syncing, alice.Status())
	require.NoError(t, alice.RefreshChats(ctx))
	assert.Equal(t, convID, alice.Store().Selection().Active())

	require.NoError(t, alice.Logout())
	assert.Equal(t, status.AuthRequired, alice.Status())
	_, err = os.Stat(profile.SessionPath("alice"))
	assert.True(t, os.IsNotExist(err))
	aliceApp.RequireStop()
}
