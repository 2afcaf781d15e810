// Package httpd implements the small HTTP/1.1 server that fronts the relay
// board: one request per connection, GET and POST only, Content-Length
// framing, no keep-alive and no chunked encoding.
//
// # Request Flow
//
// Each accepted connection runs one flow:
//
//	Server.ServeConn
//	  -> Parser.Parse      one request line, headers, optional POST body
//	  -> Router.Dispatch   exact (method, path) routes, else static files
//	  -> ResponseWriter    status line, headers, Content-Length body
//	  -> conn.Close
//
// The parser reports how a read ended as an Outcome. Malformed input is
// answered with 400, a peer that goes away gets no bytes at all, and an
// unexpected fault is answered with 500 while the detail goes to the log.
//
// # Static Files
//
// StaticResponder serves files under a root directory of an fs.FS. When
// "<name>.gz" exists it is sent instead of "<name>" with
// Content-Encoding: gzip. Every static response carries Last-Modified
// (the file's modification time in Unix seconds) and a Cache-Control
// max-age. A request whose If-Modified-Since equals that token exactly is
// answered with 304 and no body.
//
// # Concurrency
//
// Flows run on their own goroutines and share only the Router, whose route
// table never changes after NewRouter returns. No read or write deadlines
// are set: a stalled peer holds its flow until it closes or Shutdown runs.
package httpd
