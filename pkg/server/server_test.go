package server

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richard-senior/podds/pkg/protocol"
	"github.com/richard-senior/podds/pkg/tools"
	"github.com/richard-senior/podds/pkg/transport"
)

// serve runs the server over the given request lines and returns the
// responses it wrote
func serve(t *testing.T, lines ...string) []*protocol.JsonRpcResponse {
	t.Helper()
	var out bytes.Buffer
	s := New("podds", "test", transport.NewStreamTransport(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out))
	s.RegisterTools((&tools.Podds{}).Tools())
	require.NoError(t, s.ProcessRequests())

	var resps []*protocol.JsonRpcResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		resp, err := protocol.ParseJsonRpcResponse([]byte(line))
		require.NoError(t, err, line)
		resps = append(resps, resp)
	}
	return resps
}

func TestHandshake(t *testing.T) {
	resps := serve(t,
		`{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	require.Len(t, resps, 3, "notifications get no reply")

	var init protocol.InitializeResult
	require.NoError(t, json.Unmarshal(resps[0].Result, &init))
	assert.Equal(t, "2024-11-05", init.ProtocolVersion)
	assert.Equal(t, "podds", init.ServerInfo.Name)
	assert.Contains(t, init.Capabilities, "tools")

	var list protocol.ToolsResponse
	require.NoError(t, json.Unmarshal(resps[1].Result, &list))
	names := make([]string, 0, len(list.Tools))
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"podds_simulate_match", "podds_simulate_goals", "podds_simulate_btts",
		"podds_simulate_first_half", "podds_match_context",
	}, names)

	assert.Nil(t, resps[2].Error)
	assert.Equal(t, float64(2), resps[2].ID)
}

func TestToolsCall(t *testing.T) {
	resps := serve(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"mcp___podds_simulate_btts","arguments":{"path":"../podds/snapshot/testdata/elclasico.json"}}}`,
	)
	require.Len(t, resps, 1)
	require.Nil(t, resps[0].Error)

	var result protocol.ToolCallResult
	require.NoError(t, json.Unmarshal(resps[0].Result, &result))
	require.Len(t, result.Content, 1)

	var out tools.SimulationOutput
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &out))
	assert.Equal(t, "laliga-2025-36-elclasico", out.FixtureID)
	assert.Contains(t, out.Simulation.ProbabilityDistribution, "yes")
}

func TestErrors(t *testing.T) {
	resps := serve(t,
		`{not json`,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"podds_simulate_bts","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"podds_simulate_btts","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":"nope"}`,
	)
	require.Len(t, resps, 5)

	assert.Equal(t, protocol.ErrParse, resps[0].Error.Code)
	assert.Nil(t, resps[0].ID)

	assert.Equal(t, protocol.ErrMethodNotFound, resps[1].Error.Code)

	assert.Equal(t, protocol.ErrMethodNotFound, resps[2].Error.Code)
	assert.Contains(t, resps[2].Error.Message, "did you mean podds_simulate_btts")

	assert.Equal(t, protocol.ErrToolExecutionFailed, resps[3].Error.Code)
	assert.Contains(t, resps[3].Error.Message, "either fixture or path is required")

	assert.Equal(t, protocol.ErrInvalidParams, resps[4].Error.Code)
}
