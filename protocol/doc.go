package protocol

// This package implements the RESP3 wire protocol that lumen uses to talk
// to Redis compatible servers.
//
// - `Command` - A client instruction, e.g. GET or SUBSCRIBE.
// - `Request` - One or more commands framed as a pipeline and written to
//               the server in a single write.
// - `Parser`  - An incremental decoder that turns inbound bytes into typed
//               events and drives an Adapter.
// - `Adapter` - A sink that materialises decoded events into values. The
//               adapter package provides implementations for the common
//               target shapes.
//
// === General syntax
//
// Every frame starts with a single type tag byte and ends in `\r\n`.
//
//   ```
//   Simple:    '<tag>' <text> '\r\n'
//   Blob:      '$' <len> '\r\n' <len bytes> '\r\n'
//   Aggregate: '<tag>' <count> '\r\n' followed by <count> child frames
//   ```
//
// Aggregates may declare a count of -1 (written as `?` on the wire) in
// which case they are streamed and terminated by a `.\r\n` frame. Blob
// strings may likewise be streamed as `;` chunks ended by `;0\r\n`.
//
// Outbound commands are always arrays of blob strings
//
//   ```
//   > *2\r\n$4\r\nPING\r\n$5\r\nHello\r\n
//   < +Hello\r\n
//   ```
//
// The server can also push frames that are not a response to any command
// (tag '>'). Pushes can interleave with command responses, but a single
// frame is atomic: you will never receive half of a response, then an
// entire push, then the rest of the response.
