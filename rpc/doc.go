// Package rpc exposes the catalog operations over newline-delimited
// JSON-RPC 2.0, the tool protocol spoken by model clients: one request
// object per line in, one response object per line out.
//
// Supported methods are initialize, ping, tools/list and tools/call.
// Requests without an id are notifications and get no response.
package rpc
