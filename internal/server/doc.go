// Package server implements the MCP (Model Context Protocol) server for the
// consensus engines.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - consensus_clicks: click consensus for one image
//   - consensus_polygons: region consensus for one image
//   - consensus_threshold: resolve a relative threshold
//   - consensus_render: base64 PNG render of either analysis
//
// Engine options default to the loaded configuration; the clicks and
// polygons tools accept per-call overrides. A null result means no
// consensus survived.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with
// code -32000 and the Go error string as data. Invalid annotations (clicks
// or vertices off the grid) fail the call.
//
// # Usage
//
//	srv, err := server.New(cfg, version)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server
