// Package server implements the MCP (Model Context Protocol) server for X-ray
// scattering detector analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes radial integration,
// bad-pixel masking and background subtraction of detector frames through the
// MCP protocol.
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
// Frame Information:
//   - detector_load: Load a frame and get its statistics and metadata keys
//   - detector_dimensions: Get width and height
//
// Integration:
//   - radial_profile: Azimuthally integrate a frame, optionally within a wedge
//     and after masking
//
// Masking:
//   - ring_mask: Iterated ring-statistics outlier rejection
//
// Background:
//   - subtract_reference: Subtract the nearest preceding reference frame
//
// # Defaults
//
// Parameters a tool call omits are taken from the config.Config passed with
// WithConfig, or from config.Default.
//
// # Caching
//
// Loaded frames are cached by path, and coordinate maps by (shape, geometry),
// for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure or a recovered panic), -32602 for
//     malformed tools/call params, -32601 for unknown methods, or -32700 for a
//     request line that is not JSON
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(server.WithConfig(cfg))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
