package scnet

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbweb/application/ports"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
	apperrors "kbweb/pkg/errors"
)

func TestGraphService_ClassifyElements(t *testing.T) {
	// Arrange
	server := newFakeServer(t)
	server.on(TypeCheckElements, func(t *testing.T, payload json.RawMessage) *fakeReply {
		assert.JSONEq(t, `[1,2,3]`, string(payload))
		return okReply([]uint32{33, 40, 0})
	})
	graph := dial(t, server, testConfig(server.url()))

	// Act
	types, err := graph.ClassifyElements(context.Background(), []valueobjects.Addr{1, 2, 3})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.ElementType{
		valueobjects.TypeNodeConst,
		valueobjects.TypeEdgeDCommonConst,
		valueobjects.TypeUnknown,
	}, types)
}

func TestGraphService_EmptyBatchesSkipTheWire(t *testing.T) {
	server := newFakeServer(t)
	graph := dial(t, server, testConfig(server.url()))
	ctx := context.Background()

	types, err := graph.ClassifyElements(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, types)

	contents, err := graph.FetchLinkContents(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, contents)

	require.NoError(t, graph.DeleteElements(ctx, nil))
	assert.Empty(t, server.requestsOf(TypeCheckElements))
	assert.Empty(t, server.requestsOf(TypeContent))
}

func TestGraphService_FetchLinkContents(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeContent, func(t *testing.T, payload json.RawMessage) *fakeReply {
		assert.JSONEq(t, `[{"command":"get","addr":7},{"command":"get","addr":8},{"command":"get","addr":9}]`, string(payload))
		return okReply([]interface{}{
			map[string]interface{}{"value": "Apple", "type": "string"},
			map[string]interface{}{"value": 42, "type": "int"},
			map[string]interface{}{"value": nil, "type": nil},
		})
	})
	graph := dial(t, server, testConfig(server.url()))

	contents, err := graph.FetchLinkContents(context.Background(), []valueobjects.Addr{7, 8, 9})

	require.NoError(t, err)
	require.Len(t, contents, 3)
	assert.Equal(t, "Apple", contents[0].Text())
	assert.Equal(t, "42", contents[1].Text())
	assert.True(t, contents[2].IsEmpty())
}

func TestGraphService_SetAndFindLinkContents(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeContent, func(t *testing.T, payload json.RawMessage) *fakeReply {
		var commands []map[string]interface{}
		require.NoError(t, json.Unmarshal(payload, &commands))
		switch commands[0]["command"] {
		case "set":
			assert.Equal(t, "int", commands[0]["type"])
			assert.Equal(t, float64(5), commands[0]["data"])
			return okReply([]bool{true})
		case "find":
			assert.Equal(t, "apple", commands[0]["data"])
			return okReply([][]uint64{{11, 12}})
		}
		return &fakeReply{Status: false, Errors: "unexpected"}
	})
	graph := dial(t, server, testConfig(server.url()))
	ctx := context.Background()

	set, err := graph.SetLinkContents(ctx, []ports.LinkContentUpdate{{Addr: 3, Content: valueobjects.NewIntContent(5)}})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, set)

	found, err := graph.FindLinksByContent(ctx, "apple")
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.Addr{11, 12}, found)
}

func TestGraphService_ResolveKeynodes(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeKeynodes, func(t *testing.T, payload json.RawMessage) *fakeReply {
		assert.JSONEq(t, `[
			{"command":"find","idtf":"nrel_main_idtf"},
			{"command":"resolve","idtf":"nrel_set_power","elType":1057}
		]`, string(payload))
		return okReply([]uint64{0, 77})
	})
	graph := dial(t, server, testConfig(server.url()))

	addrs, err := graph.ResolveKeynodes(context.Background(), []ports.KeynodeRequest{
		{Identifier: "nrel_main_idtf"},
		{Identifier: "nrel_set_power", Type: valueobjects.TypeNodeConstNoRole},
	})

	require.NoError(t, err)
	assert.Equal(t, []valueobjects.Addr{valueobjects.InvalidAddr, 77}, addrs)
}

func TestGraphService_SearchTemplate(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeSearchTemplate, func(t *testing.T, payload json.RawMessage) *fakeReply {
		assert.JSONEq(t, `[[
			{"type":"addr","value":1},
			{"type":"type","value":72},
			{"type":"type","value":66,"alias":"_link"}
		]]`, string(payload))
		return okReply(map[string]interface{}{
			"aliases": map[string]int{"_link": 2},
			"addrs":   [][]uint64{{1, 2, 3}, {1, 4, 5}},
		})
	})
	graph := dial(t, server, testConfig(server.url()))

	tmpl := entities.NewTemplate().Triple(
		entities.Fixed(1),
		entities.Var(valueobjects.TypeEdgeDCommonVar),
		entities.VarAs(valueobjects.TypeLinkVar, "_link"),
	)
	records, err := graph.SearchTemplate(context.Background(), ports.TemplateQuery{Template: tmpl})

	require.NoError(t, err)
	require.Len(t, records, 2)
	link, found := records[1].Get("_link")
	assert.True(t, found)
	assert.Equal(t, valueobjects.Addr(5), link)
	assert.Equal(t, []entities.Triple{{Source: 1, Edge: 2, Target: 3}}, records[0].Triples())
}

func TestGraphService_SearchTemplateText(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeSearchTemplate, func(t *testing.T, payload json.RawMessage) *fakeReply {
		assert.JSONEq(t, `"concept_apple _-> _x;;"`, string(payload))
		return okReply(map[string]interface{}{"aliases": map[string]int{}, "addrs": [][]uint64{}})
	})
	graph := dial(t, server, testConfig(server.url()))

	records, err := graph.SearchTemplate(context.Background(), ports.TemplateQuery{SCs: "concept_apple _-> _x;;"})

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGraphService_SearchTemplateRejectsBrokenTemplate(t *testing.T) {
	server := newFakeServer(t)
	graph := dial(t, server, testConfig(server.url()))

	tmpl := entities.NewTemplate().Triple(entities.Fixed(1), entities.Var(valueobjects.TypeEdgeDCommonVar), entities.Ref("_nowhere"))
	_, err := graph.SearchTemplate(context.Background(), ports.TemplateQuery{Template: tmpl})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, server.requestsOf(TypeSearchTemplate))
}

func TestGraphService_GenerateTemplate(t *testing.T) {
	server := newFakeServer(t)
	calls := 0
	server.on(TypeGenerateTemplate, func(t *testing.T, payload json.RawMessage) *fakeReply {
		calls++
		if calls == 1 {
			assert.JSONEq(t, `"concept_apple _=> nrel_main_idtf: _y;;"`, string(payload))
			return okReply(map[string]interface{}{"aliases": map[string]int{"_y": 2}, "addrs": []uint64{4, 5, 6}})
		}
		return okReply(nil)
	})
	graph := dial(t, server, testConfig(server.url()))
	query := ports.TemplateQuery{SCs: "concept_apple _=> nrel_main_idtf: _y;;"}

	record, err := graph.GenerateTemplate(context.Background(), query)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, []valueobjects.Addr{4, 5, 6}, record.Addrs())

	record, err = graph.GenerateTemplate(context.Background(), query)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestGraphService_GenerateStructuredTemplate(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeGenerateTemplate, func(t *testing.T, payload json.RawMessage) *fakeReply {
		return okReply(map[string]interface{}{"aliases": map[string]int{"_x": 0}, "addrs": []uint64{4, 5, 6}})
	})
	graph := dial(t, server, testConfig(server.url()))
	tmpl := entities.NewTemplate().Triple(
		entities.VarAs(valueobjects.TypeNodeVar, "_x"),
		entities.Var(valueobjects.TypeEdgeAccessVarPosPerm),
		entities.Fixed(9),
	)

	_, err := graph.GenerateTemplate(context.Background(), ports.TemplateQuery{
		Template: tmpl,
		Params:   map[string]valueobjects.Addr{"_x": 4},
	})
	require.NoError(t, err)
	_, err = graph.GenerateTemplate(context.Background(), ports.TemplateQuery{Template: tmpl})
	require.NoError(t, err)

	triples := `[[
		{"type":"type","value":65,"alias":"_x"},
		{"type":"type","value":2256},
		{"type":"addr","value":9}
	]]`
	sent := server.requestsOf(TypeGenerateTemplate)
	require.Len(t, sent, 2)
	assert.JSONEq(t, `{"templ":`+triples+`,"params":{"_x":4}}`, string(sent[0].Payload))
	assert.JSONEq(t, `{"templ":`+triples+`,"params":{}}`, string(sent[1].Payload))
}

func TestGraphService_GenerateTextRejectsParams(t *testing.T) {
	server := newFakeServer(t)
	graph := dial(t, server, testConfig(server.url()))

	_, err := graph.GenerateTemplate(context.Background(), ports.TemplateQuery{
		SCs:    "_x => nrel_main_idtf: _y;;",
		Params: map[string]valueobjects.Addr{"_x": 4},
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, server.requestsOf(TypeGenerateTemplate))
}

func TestGraphService_CreateElements(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeCreateElements, func(t *testing.T, payload json.RawMessage) *fakeReply {
		assert.JSONEq(t, `[
			{"el":"node","type":33},
			{"el":"edge","type":2224,"src":{"type":"addr","value":9},"trg":{"type":"ref","value":0}}
		]`, string(payload))
		return okReply([]uint64{20, 21})
	})
	graph := dial(t, server, testConfig(server.url()))

	c := entities.NewConstruction().
		CreateNode(valueobjects.TypeNodeConst, "n").
		CreateEdge(valueobjects.TypeEdgeAccessConstPosPerm, entities.AddrEndpoint(9), entities.RefEndpoint("n"), "")
	addrs, err := graph.CreateElements(context.Background(), c)

	require.NoError(t, err)
	assert.Equal(t, []valueobjects.Addr{20, 21}, addrs)
}

func TestGraphService_DeleteElements(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeDeleteElements, func(t *testing.T, payload json.RawMessage) *fakeReply {
		assert.JSONEq(t, `[20, 21]`, string(payload))
		return okReply(nil)
	})
	graph := dial(t, server, testConfig(server.url()))

	err := graph.DeleteElements(context.Background(), []valueobjects.Addr{20, 21})

	require.NoError(t, err)
	require.NoError(t, graph.DeleteElements(context.Background(), nil))
	assert.Len(t, server.requestsOf(TypeDeleteElements), 1)
}

func TestGraphService_FailedReplyIsProtocolError(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeSearchTemplate, func(t *testing.T, payload json.RawMessage) *fakeReply {
		return &fakeReply{Status: false, Errors: []map[string]string{{"message": "unknown identifier"}}}
	})
	graph := dial(t, server, testConfig(server.url()))

	_, err := graph.SearchTemplate(context.Background(), ports.TemplateQuery{SCs: "nothing _-> _x;;"})

	require.Error(t, err)
	assert.True(t, apperrors.IsProtocol(err))
	assert.Contains(t, err.Error(), "unknown identifier")
}

func TestGraphService_RequestTimeout(t *testing.T) {
	server := newFakeServer(t)
	cfg := testConfig(server.url())
	cfg.RequestTimeout = 100 * time.Millisecond
	graph := dial(t, server, cfg)

	_, err := graph.ClassifyElements(context.Background(), []valueobjects.Addr{1})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout))
}

func TestGraphService_BreakerOpensAfterFailures(t *testing.T) {
	server := newFakeServer(t)
	cfg := testConfig(server.url())
	cfg.RequestTimeout = 50 * time.Millisecond
	cfg.Breaker.MinRequests = 2
	cfg.Breaker.FailureThreshold = 0.5
	graph := dial(t, server, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := graph.ClassifyElements(ctx, []valueobjects.Addr{1})
		require.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout))
	}
	_, err := graph.ClassifyElements(ctx, []valueobjects.Addr{1})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
	assert.Len(t, server.requestsOf(TypeCheckElements), 2)
}

func TestGraphService_CancelledCallsKeepBreakerClosed(t *testing.T) {
	// Arrange: no handler yet, so only the caller can end a request
	server := newFakeServer(t)
	cfg := testConfig(server.url())
	cfg.Breaker.MinRequests = 2
	cfg.Breaker.FailureThreshold = 0.5
	graph := dial(t, server, cfg)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	for i := 0; i < 4; i++ {
		_, err := graph.ClassifyElements(cancelled, []valueobjects.Addr{1})
		require.ErrorIs(t, err, context.Canceled)
	}
	server.on(TypeCheckElements, func(t *testing.T, payload json.RawMessage) *fakeReply {
		return okReply([]uint32{33})
	})
	types, err := graph.ClassifyElements(context.Background(), []valueobjects.Addr{1})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.ElementType{valueobjects.TypeNodeConst}, types)
}

func TestGraphService_ResolveLabels(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeKeynodes, func(t *testing.T, payload json.RawMessage) *fakeReply {
		assert.JSONEq(t, `[{"command":"find","idtf":"nrel_system_identifier"}]`, string(payload))
		return okReply([]uint64{90})
	})
	server.on(TypeSearchTemplate, func(t *testing.T, payload json.RawMessage) *fakeReply {
		var body struct {
			Templ [][]struct {
				Type  string      `json:"type"`
				Value interface{} `json:"value"`
			} `json:"templ"`
		}
		require.NoError(t, json.Unmarshal(payload, &body))
		empty := map[string]interface{}{"aliases": map[string]int{}, "addrs": [][]uint64{}}
		if body.Templ[0][0].Value != float64(1) {
			return okReply(empty)
		}
		return okReply(map[string]interface{}{
			"aliases": map[string]int{"_rel_edge_1": 1, "_link": 2},
			"addrs":   [][]uint64{{1, 50, 100, 90, 51, 50}},
		})
	})
	server.on(TypeContent, func(t *testing.T, payload json.RawMessage) *fakeReply {
		assert.JSONEq(t, `[{"command":"get","addr":100}]`, string(payload))
		return okReply([]interface{}{map[string]interface{}{"value": "concept_apple", "type": "string"}})
	})
	graph := dial(t, server, testConfig(server.url()))

	labels, err := graph.ResolveLabels(context.Background(), []valueobjects.Addr{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[valueobjects.Addr]string{1: "concept_apple"}, labels)

	// the keynode is looked up once
	_, err = graph.ResolveLabels(context.Background(), []valueobjects.Addr{2})
	require.NoError(t, err)
	assert.Len(t, server.requestsOf(TypeKeynodes), 1)
}

func TestClient_Events(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeEvents, func(t *testing.T, payload json.RawMessage) *fakeReply {
		var body eventsPayload
		require.NoError(t, json.Unmarshal(payload, &body))
		if len(body.Create) > 0 {
			assert.Equal(t, "add_outgoing_edge", body.Create[0].Type)
			assert.Equal(t, valueobjects.Addr(1001), body.Create[0].Addr)
			return okReply([]int64{5})
		}
		assert.Equal(t, []int64{5}, body.Delete)
		return okReply([]int64{5})
	})
	graph := dial(t, server, testConfig(server.url()))
	ctx := context.Background()

	sub, err := graph.Subscribe(ctx, ports.EventAddOutgoingEdge, 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sub.ID())

	server.emit(5, 1001, 1500, 500)
	server.emit(5, 1001, 1501, 501)
	server.emit(6, 1, 2, 3) // unknown subscription

	for _, want := range []valueobjects.Addr{500, 501} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, ports.EventAddOutgoingEdge, ev.Kind)
			assert.Equal(t, valueobjects.Addr(1001), ev.Addr)
			assert.Equal(t, want, ev.Other)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
	}

	require.NoError(t, graph.Unsubscribe(ctx, sub))
	select {
	case _, open := <-sub.Events():
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestClient_ConnectionLoss(t *testing.T) {
	server := newFakeServer(t)
	server.on(TypeEvents, func(t *testing.T, payload json.RawMessage) *fakeReply {
		return okReply([]int64{1})
	})
	graph := dial(t, server, testConfig(server.url()))
	ctx := context.Background()
	sub, err := graph.Subscribe(ctx, ports.EventAddOutgoingEdge, 1001)
	require.NoError(t, err)

	server.drop()

	select {
	case <-graph.Client().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client did not notice the closed connection")
	}
	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Error(t, graph.Client().Err())

	_, err = graph.ClassifyElements(ctx, []valueobjects.Addr{1})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork))
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"missing", ``, "request failed"},
		{"string", `"bad request"`, "bad request"},
		{"strings", `["one","two"]`, "one; two"},
		{"objects", `[{"ref":1,"message":"no such element"}]`, "no such element"},
		{"other", `{"code":3}`, `{"code":3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorText(json.RawMessage(tt.raw)))
		})
	}
}
