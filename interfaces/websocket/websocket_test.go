package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kbweb/domain/core/aggregates"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
	"kbweb/pkg/auth"
	"kbweb/pkg/common"
	"kbweb/pkg/errors"
)

type viewerFixture struct {
	hub      *Hub
	renderer *GraphRenderer
	url      string
}

func newViewerFixture(t *testing.T) *viewerFixture {
	t.Helper()
	hub := NewHub(nil, zap.NewNop())
	renderer := NewGraphRenderer(hub, zap.NewNop())
	server := NewServer(hub, auth.NewAuthenticator(nil), nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(httpHandler(server))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return &viewerFixture{
		hub:      hub,
		renderer: renderer,
		url:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func (f *viewerFixture) connect(t *testing.T, userID string) *gorilla.Conn {
	t.Helper()
	header := map[string][]string{"X-User-ID": {userID}}
	conn, _, err := gorilla.DefaultDialer.Dial(f.url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorilla.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func sampleGraph(t *testing.T) *aggregates.ResultGraph {
	t.Helper()
	g := aggregates.NewResultGraph()
	_, err := g.AddObject(aggregates.VisualObject{Addr: 7, Type: valueobjects.TypeNodeConst, Label: "apple"})
	require.NoError(t, err)
	g.Seal()
	return g
}

func waitForConnections(t *testing.T, hub *Hub, userID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ConnectionCount(userID) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestGraphRenderer_PushesToUserViewers(t *testing.T) {
	// Arrange
	f := newViewerFixture(t)
	alice := f.connect(t, "alice")
	bob := f.connect(t, "bob")
	assert.Equal(t, EventConnectionEstablished, readMessage(t, alice).Type)
	assert.Equal(t, EventConnectionEstablished, readMessage(t, bob).Type)
	waitForConnections(t, f.hub, "alice", 1)

	// Act
	ctx := common.WithUserID(context.Background(), "alice")
	err := f.renderer.Render(ctx, sampleGraph(t))

	// Assert
	require.NoError(t, err)
	msg := readMessage(t, alice)
	assert.Equal(t, EventResultGraph, msg.Type)
	var body struct {
		Objects []aggregates.VisualObject `json:"objects"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	require.Len(t, body.Objects, 1)
	assert.Equal(t, "apple", body.Objects[0].Label)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = bob.ReadMessage()
	assert.Error(t, err, "bob must not see alice's result")
}

func TestGraphRenderer_ReplaysLatestOnConnect(t *testing.T) {
	f := newViewerFixture(t)
	ctx := common.WithUserID(context.Background(), "alice")
	require.NoError(t, f.renderer.Render(ctx, sampleGraph(t)))

	late := f.connect(t, "alice")

	assert.Equal(t, EventConnectionEstablished, readMessage(t, late).Type)
	assert.Equal(t, EventResultGraph, readMessage(t, late).Type)
}

func TestGraphRenderer_RequiresViewer(t *testing.T) {
	f := newViewerFixture(t)

	err := f.renderer.Render(context.Background(), sampleGraph(t))

	assert.True(t, errors.IsValidation(err))
}

func TestGraphRenderer_PublishTemplates(t *testing.T) {
	f := newViewerFixture(t)
	conn := f.connect(t, "bob")
	readMessage(t, conn)
	waitForConnections(t, f.hub, "bob", 1)

	f.renderer.PublishTemplates([]entities.KBTemplate{entities.ExampleTemplate()})

	msg := readMessage(t, conn)
	assert.Equal(t, EventTemplatesUpdated, msg.Type)
	assert.Contains(t, string(msg.Data), `"title":"Example"`)
}

func TestHub_UnregistersClosedViewer(t *testing.T) {
	f := newViewerFixture(t)
	conn := f.connect(t, "alice")
	readMessage(t, conn)
	waitForConnections(t, f.hub, "alice", 1)

	conn.Close()

	waitForConnections(t, f.hub, "alice", 0)
}
