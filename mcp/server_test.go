package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/schema"
)

func newTestServer(t *testing.T, input string) (*Server, *bytes.Buffer) {
	t.Helper()
	reg := gateway.NewRegistry()
	err := reg.Register(gateway.ToolDescriptor{
		Name:        "echo",
		Description: "Echo back the message",
		Input: schema.New(map[string]schema.FieldSpec{
			"message": {Type: schema.TypeString, Required: true},
		}),
	}, func(_ context.Context, params schema.Params) (any, error) {
		return map[string]any{"message": params.String("message")}, nil
	})
	if err != nil {
		t.Fatalf("Register = %v", err)
	}

	var out bytes.Buffer
	srv, err := NewServer(ServerConfig{
		Info:       ServerInfo{Name: "toolgate-test", Version: "0.0.1"},
		Dispatcher: gateway.NewDispatcher(reg, nil),
		Reader:     strings.NewReader(input),
		Writer:     &out,
	})
	if err != nil {
		t.Fatalf("NewServer = %v", err)
	}
	return srv, &out
}

// serveAll runs the session to peer EOF and parses every outbound frame.
func serveAll(t *testing.T, input string) []Message {
	t.Helper()
	srv, out := newTestServer(t, input)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Serve(ctx); err != nil {
		t.Fatalf("Serve = %v, want nil", err)
	}

	var replies []Message
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("outbound frame is not JSON: %v\n%s", err, line)
		}
		replies = append(replies, msg)
	}
	return replies
}

func replyByID(t *testing.T, replies []Message, id string) Message {
	t.Helper()
	for _, msg := range replies {
		if string(msg.ID) == id {
			return msg
		}
	}
	t.Fatalf("no reply with id %s in %d replies", id, len(replies))
	return Message{}
}

func TestServeInitializeHandshake(t *testing.T) {
	replies := serveAll(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","clientInfo":{"name":"peer"}}}`+"\n")

	reply := replyByID(t, replies, "1")
	var result InitializeResult
	if err := json.Unmarshal(reply.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.ProtocolVersion != protocolVersion {
		t.Errorf("protocolVersion = %s, want %s", result.ProtocolVersion, protocolVersion)
	}
	if result.ServerInfo.Name != "toolgate-test" {
		t.Errorf("serverInfo.name = %s", result.ServerInfo.Name)
	}
	if _, ok := result.Capabilities["tools"]; !ok {
		t.Error("capabilities missing tools")
	}
}

func TestServeNotificationGetsNoReply(t *testing.T) {
	replies := serveAll(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n")
	if len(replies) != 0 {
		t.Fatalf("replies = %d, want 0", len(replies))
	}
}

func TestServePing(t *testing.T) {
	replies := serveAll(t, `{"jsonrpc":"2.0","id":"p1","method":"ping"}`+"\n")
	reply := replyByID(t, replies, `"p1"`)
	if string(reply.Result) != "{}" {
		t.Errorf("ping result = %s, want {}", reply.Result)
	}
}

func TestServeToolsList(t *testing.T) {
	replies := serveAll(t, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`+"\n")

	reply := replyByID(t, replies, "2")
	var result ToolsListResult
	if err := json.Unmarshal(reply.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Tools) != 1 {
		t.Fatalf("tool count = %d, want 1", len(result.Tools))
	}
	tool := result.Tools[0]
	if tool.Name != "echo" {
		t.Errorf("name = %s, want echo", tool.Name)
	}
	if tool.InputSchema["type"] != "object" {
		t.Errorf("inputSchema type = %v, want object", tool.InputSchema["type"])
	}
}

func TestServeToolsCall(t *testing.T) {
	replies := serveAll(t, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"}}}`+"\n")

	reply := replyByID(t, replies, "3")
	var env gateway.Envelope
	if err := json.Unmarshal(reply.Result, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.IsError {
		t.Fatal("IsError = true, want false")
	}
	if len(env.Content) != 1 || !strings.Contains(env.Content[0].Text, `"hi"`) {
		t.Errorf("content = %+v", env.Content)
	}
}

func TestServeUnknownToolIsProtocolError(t *testing.T) {
	replies := serveAll(t, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"nope","arguments":{}}}`+"\n")

	reply := replyByID(t, replies, "4")
	if reply.Error == nil {
		t.Fatalf("error = nil, want protocol fault: %s", reply.Result)
	}
	if reply.Error.Code != CodeInvalidParams {
		t.Errorf("code = %d, want %d", reply.Error.Code, CodeInvalidParams)
	}
	if !strings.Contains(reply.Error.Message, "nope") {
		t.Errorf("message = %q, want tool name", reply.Error.Message)
	}
}

func TestServeUnknownMethod(t *testing.T) {
	replies := serveAll(t, `{"jsonrpc":"2.0","id":5,"method":"resources/list"}`+"\n")

	reply := replyByID(t, replies, "5")
	if reply.Error == nil || reply.Error.Code != CodeMethodNotFound {
		t.Fatalf("error = %+v, want method-not-found", reply.Error)
	}
}

func TestServePipelinedCallsAllAnswered(t *testing.T) {
	var input strings.Builder
	input.WriteString(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n")
	input.WriteString(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	input.WriteString(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"message":"a"}}}` + "\n")
	input.WriteString(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"message":"b"}}}` + "\n")
	input.WriteString(`{"jsonrpc":"2.0","id":4,"method":"tools/list"}` + "\n")

	replies := serveAll(t, input.String())
	if len(replies) != 4 {
		t.Fatalf("replies = %d, want 4", len(replies))
	}
	for _, id := range []string{"1", "2", "3", "4"} {
		replyByID(t, replies, id)
	}
}

func TestServeEchoesRawIDShapes(t *testing.T) {
	replies := serveAll(t, `{"jsonrpc":"2.0","id":"abc-123","method":"ping"}`+"\n")
	reply := replyByID(t, replies, `"abc-123"`)
	if reply.JSONRPC != jsonRPCVersion {
		t.Errorf("jsonrpc = %s, want %s", reply.JSONRPC, jsonRPCVersion)
	}
}

func TestServeParseErrorFrame(t *testing.T) {
	replies := serveAll(t, "{not json}\n")
	if len(replies) != 1 || replies[0].Error == nil || replies[0].Error.Code != CodeParseError {
		t.Fatalf("replies = %+v, want one parse error", replies)
	}
	if string(replies[0].ID) != "null" {
		t.Errorf("id = %q, want explicit null", replies[0].ID)
	}
}

func TestServeRequestShapedNotificationsGetNoReply(t *testing.T) {
	var input strings.Builder
	input.WriteString(`{"jsonrpc":"2.0","method":"initialize","params":{}}` + "\n")
	input.WriteString(`{"jsonrpc":"2.0","method":"ping"}` + "\n")
	input.WriteString(`{"jsonrpc":"2.0","method":"tools/list"}` + "\n")
	input.WriteString(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo","arguments":{"message":"x"}}}` + "\n")

	replies := serveAll(t, input.String())
	if len(replies) != 0 {
		t.Fatalf("replies = %d (%+v), want 0: requests without an id never produce replies", len(replies), replies)
	}
}

func TestServeNotificationToolsCallStillDispatches(t *testing.T) {
	var calls atomic.Int64
	reg := gateway.NewRegistry()
	err := reg.Register(gateway.ToolDescriptor{Name: "touch", Input: schema.New(nil)},
		func(context.Context, schema.Params) (any, error) {
			calls.Add(1)
			return map[string]any{}, nil
		})
	if err != nil {
		t.Fatalf("Register = %v", err)
	}

	var out bytes.Buffer
	srv, err := NewServer(ServerConfig{
		Info:       ServerInfo{Name: "toolgate-test"},
		Dispatcher: gateway.NewDispatcher(reg, nil),
		Reader:     strings.NewReader(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"touch","arguments":{}}}` + "\n"),
		Writer:     &out,
	})
	if err != nil {
		t.Fatalf("NewServer = %v", err)
	}
	if err := srv.Serve(context.Background()); err != nil {
		t.Fatalf("Serve = %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("dispatches = %d, want 1", got)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want no reply frames", out.String())
	}
}

func TestReadLoopStopsWhenServeIsGone(t *testing.T) {
	var input strings.Builder
	for range 40 {
		input.WriteString(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	}
	srv, _ := newTestServer(t, input.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frames := make(chan []byte, 16)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		srv.readLoop(ctx, frames, readErr)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop still running with no consumer after cancellation")
	}
}
