package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/schema"
)

// maxFrameBytes caps one inbound protocol frame.
const maxFrameBytes = 10 << 20

// ServerConfig wires a wire server to its dispatcher and channel endpoints.
type ServerConfig struct {
	Info       ServerInfo
	Dispatcher *gateway.Dispatcher
	Reader     io.Reader
	Writer     io.Writer
	Logger     *slog.Logger
}

// Server reads newline-delimited JSON-RPC frames from a single peer for the
// lifetime of the process, dispatches tools/call requests, and writes
// replies. tools/call requests run in their own goroutines, so a pipelining
// peer gets responses in completion order; writes are serialized.
type Server struct {
	info       ServerInfo
	dispatcher *gateway.Dispatcher
	reader     io.Reader
	logger     *slog.Logger

	writeMu sync.Mutex
	writer  io.Writer

	inflight sync.WaitGroup
}

// NewServer builds a wire server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("mcp: dispatcher is required")
	}
	if cfg.Reader == nil || cfg.Writer == nil {
		return nil, errors.New("mcp: reader and writer are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		info:       cfg.Info,
		dispatcher: cfg.Dispatcher,
		reader:     cfg.Reader,
		writer:     cfg.Writer,
		logger:     logger,
	}, nil
}

// Serve processes frames until the peer closes the channel or ctx is
// canceled. A clean peer close returns nil.
func (s *Server) Serve(ctx context.Context) error {
	frames := make(chan []byte, 16)
	readErr := make(chan error, 1)

	go s.readLoop(ctx, frames, readErr)

	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait()
			return ctx.Err()
		case err := <-readErr:
			s.drainFrames(ctx, frames)
			s.inflight.Wait()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case frame := <-frames:
			s.handleFrame(ctx, frame)
		}
	}
}

// drainFrames handles frames still buffered when the read loop finishes, so
// requests pipelined right before a peer close are not dropped.
func (s *Server) drainFrames(ctx context.Context, frames <-chan []byte) {
	for {
		select {
		case frame := <-frames:
			s.handleFrame(ctx, frame)
		default:
			return
		}
	}
}

func (s *Server) readLoop(ctx context.Context, frames chan<- []byte, readErr chan<- error) {
	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		frame := make([]byte, len(line))
		copy(frame, line)
		select {
		case frames <- frame:
		case <-ctx.Done():
			// Serve has stopped consuming; stop reading instead of
			// blocking on a full frame buffer.
			return
		}
	}
	if err := scanner.Err(); err != nil {
		readErr <- fmt.Errorf("mcp: read frame: %w", err)
		return
	}
	readErr <- io.EOF
}

func (s *Server) handleFrame(ctx context.Context, frame []byte) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		s.logger.Warn("discarding unparseable frame", "error", err.Error())
		// A parse-error response carries an explicit null id.
		s.writeError(json.RawMessage("null"), CodeParseError, "parse error")
		return
	}

	switch msg.Method {
	case "initialize":
		if msg.IsNotification() {
			return
		}
		s.handleInitialize(msg)
	case "notifications/initialized", "notifications/cancelled":
		// Peer lifecycle notifications need no reply.
	case "ping":
		if msg.IsNotification() {
			return
		}
		s.writeResult(msg.ID, map[string]any{})
	case "tools/list":
		if msg.IsNotification() {
			return
		}
		s.handleToolsList(msg)
	case "tools/call":
		// Run concurrently so pipelined calls interleave at backend I/O.
		// Notification-shaped calls still dispatch; no reply is written.
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.handleToolsCall(ctx, msg)
		}()
	default:
		if msg.IsNotification() {
			return
		}
		s.writeError(msg.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", msg.Method))
	}
}

func (s *Server) handleInitialize(msg Message) {
	result := InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: map[string]any{
			"tools": map[string]any{},
		},
		ServerInfo: s.info,
	}
	s.writeResult(msg.ID, result)
}

func (s *Server) handleToolsList(msg Message) {
	descriptors := s.dispatcher.Registry().Descriptors()
	tools := make([]Tool, 0, len(descriptors))
	for _, desc := range descriptors {
		tools = append(tools, toolFromDescriptor(desc))
	}
	s.writeResult(msg.ID, ToolsListResult{Tools: tools})
}

func (s *Server) handleToolsCall(ctx context.Context, msg Message) {
	var params ToolsCallParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		if !msg.IsNotification() {
			s.writeError(msg.ID, CodeInvalidParams, "tools/call params must be an object")
		}
		return
	}

	env, err := s.dispatcher.Dispatch(ctx, params.Name, params.Arguments)
	if msg.IsNotification() {
		return
	}
	if err != nil {
		// Only unknown-tool faults escape the dispatcher; they indicate a
		// malformed caller and surface as protocol errors, not envelopes.
		var unknown *gateway.ErrUnknownTool
		if errors.As(err, &unknown) {
			s.writeError(msg.ID, CodeInvalidParams, fmt.Sprintf("unknown tool %q", unknown.Name))
			return
		}
		s.writeError(msg.ID, CodeInternalError, err.Error())
		return
	}
	s.writeResult(msg.ID, env)
}

func (s *Server) writeResult(id json.RawMessage, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		s.writeError(id, CodeInternalError, fmt.Sprintf("encode result: %v", err))
		return
	}
	s.write(Message{JSONRPC: jsonRPCVersion, ID: id, Result: data})
}

func (s *Server) writeError(id json.RawMessage, code int, message string) {
	s.write(Message{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	})
}

func (s *Server) write(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encode outbound frame", "error", err.Error())
		return
	}
	data = append(data, '\n')

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.writer.Write(data); err != nil {
		s.logger.Error("write outbound frame", "error", err.Error())
	}
}

func toolFromDescriptor(desc gateway.ToolDescriptor) Tool {
	return Tool{
		Name:        desc.Name,
		Title:       desc.Title,
		Description: desc.Description,
		InputSchema: schema.JSONSchema(desc.Input),
	}
}
