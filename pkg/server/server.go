package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/protocol"
	"github.com/richard-senior/podds/pkg/tools"
	"github.com/richard-senior/podds/pkg/transport"
	"github.com/richard-senior/podds/pkg/util"
)

// Some clients namespace tool names with this prefix
const toolPrefix = "mcp___"

// Server represents an MCP server
type Server struct {
	name      string
	version   string
	transport transport.Transport
	mu        sync.Mutex
	handlers  map[string]HandlerFunc
	toolFuncs map[string]tools.HandlerFunc
	tools     []protocol.Tool
}

// HandlerFunc is a function that handles an MCP request
type HandlerFunc func(params json.RawMessage) (any, error)

// New creates a server speaking over t with the built-in methods registered
func New(name, version string, t transport.Transport) *Server {
	s := &Server{
		name:      name,
		version:   version,
		transport: t,
		handlers:  make(map[string]HandlerFunc),
		toolFuncs: make(map[string]tools.HandlerFunc),
	}
	s.handlers[string(protocol.MethodInitialize)] = s.handleInitialize
	s.handlers[string(protocol.MethodPing)] = s.handlePing
	s.handlers[string(protocol.MethodToolsList)] = s.handleToolsList
	s.handlers[string(protocol.MethodToolsCall)] = s.handleToolsCall
	s.handlers[string(protocol.MethodShutdown)] = s.handlePing
	return s
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler tools.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, tool)
	s.toolFuncs[tool.Name] = handler
	logger.Info("Registered tool:", tool.Name)
}

// RegisterTools registers every definition
func (s *Server) RegisterTools(defs []tools.Definition) {
	for _, d := range defs {
		s.RegisterTool(d.Tool, d.Handler)
	}
}

// GetTools returns the list of registered tools
func (s *Server) GetTools() []protocol.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Tool(nil), s.tools...)
}

// Start processes requests until the client disconnects or the process is
// signalled
func (s *Server) Start() error {
	logger.Info("Starting MCP server", s.name, s.version)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ProcessRequests()
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("Received signal:", sig.String())
		return nil
	}
}

// ProcessRequests serves requests until EOF, which is a clean shutdown
func (s *Server) ProcessRequests() error {
	for {
		req, err := s.transport.ReadRequest()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var resp *protocol.JsonRpcResponse
		switch {
		case transport.IsParseError(err):
			logger.Warn("Rejecting malformed request", err.Error())
			resp = protocol.NewJsonRpcErrorResponse(protocol.ErrParse, err.Error(), nil, nil)
		case err != nil:
			return err
		default:
			// nil means no response is required
			resp = s.HandleRequest(req)
		}
		if resp == nil {
			continue
		}
		if err := s.transport.WriteResponse(resp); err != nil {
			return err
		}
	}
}

// HandleRequest dispatches one request. Notifications return nil.
func (s *Server) HandleRequest(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Info(">> ", req.Method)
	logger.Debug("Full request:", req.String())

	if req.IsNotification() || strings.HasPrefix(req.Method, "notifications/") {
		logger.Info("Received notification:", req.Method)
		return nil
	}

	handler := s.handlers[req.Method]
	if handler == nil {
		return protocol.NewJsonRpcErrorResponse(protocol.ErrMethodNotFound,
			fmt.Sprintf("Method not found: %s", req.Method), nil, req.ID)
	}

	result, err := handler(req.Params)
	if err != nil {
		var rpcErr *protocol.JsonRpcError
		if errors.As(err, &rpcErr) {
			return protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, rpcErr.Data, req.ID)
		}
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInternal, err.Error(), nil, req.ID)
	}

	resp, err := protocol.NewJsonRpcResponse(result, req.ID)
	if err != nil {
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInternal, "Failed to marshal result: "+err.Error(), nil, req.ID)
	}
	logger.Debug("Full response:", resp.String())
	return resp
}

func (s *Server) handleInitialize(params json.RawMessage) (any, error) {
	var p protocol.InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "invalid initialize parameters: " + err.Error()}
		}
	}
	version := p.ProtocolVersion
	if version == "" {
		version = protocol.MCPProtocolVersion
	}
	logger.Info("Handling initialize request from", p.ClientInfo.Name, "protocol", version, "with", len(s.GetTools()), "tools")

	capabilities := map[string]any{}
	if len(s.GetTools()) > 0 {
		capabilities["tools"] = map[string]any{"listChanged": false}
	}
	return protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    capabilities,
		ServerInfo:      protocol.ServerInfo{Name: s.name, Version: s.version},
	}, nil
}

func (s *Server) handlePing(json.RawMessage) (any, error) {
	return struct{}{}, nil
}

func (s *Server) handleToolsList(json.RawMessage) (any, error) {
	logger.Info("Handling tools/list request")
	return protocol.ToolsResponse{Tools: s.GetTools()}, nil
}

// lookupTool finds a handler by name, with or without the client prefix
func (s *Server) lookupTool(name string) (tools.HandlerFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.toolFuncs[name]; ok {
		return h, true
	}
	h, ok := s.toolFuncs[strings.TrimPrefix(name, toolPrefix)]
	return h, ok
}

func (s *Server) toolNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.toolFuncs))
	for n := range s.toolFuncs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Server) handleToolsCall(params json.RawMessage) (any, error) {
	var call protocol.ToolCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "invalid tools/call parameters: " + err.Error()}
	}
	logger.Info("Tool call requested for:", call.Name)

	handler, ok := s.lookupTool(call.Name)
	if !ok {
		msg := "tool not found: " + call.Name
		if near, found := util.ClosestMatch(strings.TrimPrefix(call.Name, toolPrefix), s.toolNames(), 3); found {
			msg += ", did you mean " + near + "?"
		}
		return nil, &protocol.JsonRpcError{Code: protocol.ErrMethodNotFound, Message: msg}
	}

	var args any
	if call.Arguments != nil {
		args = call.Arguments
	}
	result, err := handler(args)
	if err != nil {
		logger.Error("Tool failed:", call.Name, err.Error())
		return nil, &protocol.JsonRpcError{Code: protocol.ErrToolExecutionFailed, Message: "tool execution failed: " + err.Error()}
	}
	return result, nil
}
