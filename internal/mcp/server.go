// Package mcp exposes the imgbridge tools to an MCP client over stdio as
// line-delimited JSON-RPC 2.0: requests arrive one per line on stdin,
// responses leave one per line on stdout. Supported methods: initialize,
// tools/list, tools/call, ping.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"imgbridge/internal/workflow"
	"imgbridge/pkg/apperrors"
)

const protocolVersion = "2024-11-05"

// JSON-RPC error codes; toolErrorCode covers tool execution failures.
const (
	parseErrorCode     = -32700
	methodNotFoundCode = -32601
	invalidParamsCode  = -32602
	toolErrorCode      = -32000
)

type Server struct {
	svc     *workflow.Service
	log     *slog.Logger
	in      io.Reader
	out     io.Writer
	version string
}

func NewServer(svc *workflow.Service, log *slog.Logger, in io.Reader, out io.Writer, version string) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, log: log, in: in, out: out, version: version}
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Run processes requests until stdin closes or ctx is cancelled. Requests
// are handled strictly one at a time.
func (s *Server) Run(ctx context.Context) error {
	sc := bufio.NewScanner(s.in)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 16*1024*1024)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(response{JSONRPC: "2.0", Error: &responseError{Code: parseErrorCode, Message: "parse error"}})
			continue
		}

		resp := s.dispatch(ctx, req)
		if resp == nil {
			continue // notification
		}
		s.write(*resp)
	}
	return sc.Err()
}

func (s *Server) dispatch(ctx context.Context, req request) *response {
	// Requests without an id are notifications and get no response.
	isNotification := len(req.ID) == 0 || string(req.ID) == "null"

	var result any
	var respErr *responseError

	switch req.Method {
	case "initialize":
		result = map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "imgbridge", "version": s.version},
		}
	case "notifications/initialized":
		return nil
	case "ping":
		result = map[string]any{}
	case "tools/list":
		result = map[string]any{"tools": s.tools()}
	case "tools/call":
		result, respErr = s.callTool(ctx, req.Params)
	default:
		respErr = &responseError{Code: methodNotFoundCode, Message: fmt.Sprintf("method not found: %s", req.Method)}
	}

	if isNotification {
		return nil
	}
	return &response{JSONRPC: "2.0", ID: req.ID, Result: result, Error: respErr}
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (any, *responseError) {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &responseError{Code: invalidParamsCode, Message: "invalid tools/call params"}
	}

	handler, ok := s.handlers()[call.Name]
	if !ok {
		return nil, &responseError{Code: invalidParamsCode, Message: fmt.Sprintf("unknown tool: %s", call.Name)}
	}

	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	s.log.Debug("tool call", "tool", call.Name)
	payload, err := handler(ctx, args)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeInvalidParam) {
			return nil, &responseError{Code: invalidParamsCode, Message: err.Error()}
		}
		// Tool failures surface the upstream message verbatim as tool-result
		// content so the calling agent can relay it.
		return map[string]any{
			"content": []map[string]any{{"type": "text", "text": err.Error()}},
			"isError": true,
		}, nil
	}

	text, err := json.Marshal(payload)
	if err != nil {
		return nil, &responseError{Code: toolErrorCode, Message: err.Error()}
	}
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": string(text)}},
	}, nil
}

func (s *Server) write(resp response) {
	enc := json.NewEncoder(s.out)
	if err := enc.Encode(resp); err != nil {
		s.log.Error("write response", "err", err)
	}
}
