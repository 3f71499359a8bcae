package protocol

import (
	"encoding/json"
	"fmt"
)

/**
MCP over stdio, one JSON-RPC message per line.
	client: {"method":"initialize","params":{"protocolVersion":"2024-11-05",...},"jsonrpc":"2.0","id":0}
	server: {"jsonrpc":"2.0","id":0,"result":{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"podds","version":"..."}}}
	client: {"method":"notifications/initialized","jsonrpc":"2.0"}   (notification, no reply)
	client: {"method":"tools/list","params":{},"jsonrpc":"2.0","id":1}
	server: the podds_* simulation tools with their input schemas
	client: {"method":"tools/call","params":{"name":"podds_simulate_match","arguments":{"path":"fixtures/elclasico.json"}},"jsonrpc":"2.0","id":2}
	server: {"jsonrpc":"2.0","id":2,"result":{"content":[{"type":"text","text":"..."}]}}
*/

// MethodType defines the JSON-RPC methods the server understands
type MethodType string

const (
	MethodInitialize              MethodType = "initialize"
	MethodInitialized             MethodType = "initialized"
	MethodNotificationInitialized MethodType = "notifications/initialized"
	MethodPing                    MethodType = "ping"
	MethodToolsList               MethodType = "tools/list"
	MethodToolsCall               MethodType = "tools/call"
	MethodShutdown                MethodType = "shutdown"
	MethodCancelRequest           MethodType = "$/cancelRequest"
)

// MCPProtocolVersion is the revision advertised during initialize
const MCPProtocolVersion = "2024-11-05"

// Version is the JSON-RPC protocol version
const JsonRpcVersion = "2.0"

// Request represents a JSON-RPC 2.0 request object
type JsonRpcRequest struct {
	// MUST be exactly "2.0"
	JsonRPC string `json:"jsonrpc"`

	Method string `json:"method"`

	// MAY be omitted
	Params json.RawMessage `json:"params,omitempty"`

	// absent means the message is a notification
	ID any `json:"id,omitempty"`
}

// IsNotification reports whether no response is expected
func (r *JsonRpcRequest) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC 2.0 response object
type JsonRpcResponse struct {
	JsonRPC string `json:"jsonrpc"`

	// REQUIRED on success, absent on error
	Result json.RawMessage `json:"result,omitempty"`

	// REQUIRED on error, absent on success
	Error *JsonRpcError `json:"error,omitempty"`

	// same as the request id, null when the request could not be parsed
	ID any `json:"id"`
}

// Error represents a JSON-RPC 2.0 error object
type JsonRpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard error codes defined by the JSON-RPC 2.0 specification
const (
	ErrParse          = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603

	// implementation defined, -32000 to -32099
	ErrToolExecutionFailed = -32000
)

// Error returns a string representation of the error
func (e *JsonRpcError) Error() string {
	return fmt.Sprintf("jsonrpc error: code=%d message=%s", e.Code, e.Message)
}

// NewJsonRpcRequest creates a new JSON-RPC 2.0 request
func NewJsonRpcRequest(method string, params any, id any) (*JsonRpcRequest, error) {
	var paramsJSON json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		paramsJSON = b
	}
	return &JsonRpcRequest{
		JsonRPC: JsonRpcVersion,
		Method:  method,
		Params:  paramsJSON,
		ID:      id,
	}, nil
}

// NewJsonRpcResponse creates a new JSON-RPC 2.0 success response
func NewJsonRpcResponse(result any, id any) (*JsonRpcResponse, error) {
	var resultJSON json.RawMessage
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		resultJSON = b
	} else {
		// an empty object rather than an absent member keeps the response valid
		resultJSON = json.RawMessage("{}")
	}
	return &JsonRpcResponse{
		JsonRPC: JsonRpcVersion,
		Result:  resultJSON,
		ID:      id,
	}, nil
}

// NewJsonRpcErrorResponse creates a new JSON-RPC 2.0 error response
func NewJsonRpcErrorResponse(code int, message string, data any, id any) *JsonRpcResponse {
	return &JsonRpcResponse{
		JsonRPC: JsonRpcVersion,
		Error: &JsonRpcError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// ParseJsonRpcRequest parses a JSON-RPC 2.0 request from raw JSON
func ParseJsonRpcRequest(data []byte) (*JsonRpcRequest, error) {
	var req JsonRpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if req.JsonRPC != JsonRpcVersion {
		return nil, fmt.Errorf("invalid JSON-RPC version: %q", req.JsonRPC)
	}
	if req.Method == "" {
		return nil, fmt.Errorf("request has no method")
	}
	return &req, nil
}

// ParseJsonRpcResponse parses a JSON-RPC 2.0 response from raw JSON
func ParseJsonRpcResponse(data []byte) (*JsonRpcResponse, error) {
	var resp JsonRpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.JsonRPC != JsonRpcVersion {
		return nil, fmt.Errorf("invalid JSON-RPC version: %q", resp.JsonRPC)
	}
	return &resp, nil
}

// String returns a JSON string representation of the request
func (r *JsonRpcRequest) String() string {
	bytes, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("Error marshaling request: %v", err)
	}
	return string(bytes)
}

// String returns a JSON string representation of the response
func (r *JsonRpcResponse) String() string {
	bytes, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("Error marshaling response: %v", err)
	}
	return string(bytes)
}
