// Package command maps request values onto store operations. It draws the
// line between the two failure kinds a session cares about: an *Error is
// reported to the client and the session continues, while any other error is
// a handler fault that terminates the connection with no response.
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minikv/minikv/internal/protocol"
	"github.com/minikv/minikv/internal/store"
)

// ErrWrongArity marks a handler invoked with an argument list it cannot
// accept. It is a fault, not a recoverable command error.
var ErrWrongArity = errors.New("command: wrong number of arguments")

// Error is a recoverable command error. Its message is sent to the client
// verbatim as an error frame.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError creates a recoverable command error.
func NewError(msg string) *Error { return &Error{Message: msg} }

// Handler executes one command against the store.
type Handler func(s *store.Store, args []protocol.Value) (protocol.Value, error)

// Router holds the command table. It is immutable after construction and
// safe for concurrent use.
type Router struct {
	handlers map[string]Handler
}

// NewRouter creates a router with the full command set registered.
func NewRouter() *Router {
	return &Router{handlers: map[string]Handler{
		"GET":    handleGet,
		"SET":    handleSet,
		"DELETE": handleDelete,
		"FLUSH":  handleFlush,
		"MGET":   handleMGet,
		"MSET":   handleMSet,
	}}
}

// Lookup resolves a command name case-insensitively.
func (r *Router) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[strings.ToUpper(name)]
	return h, ok
}

// ParseRequest extracts the token list from a request value. Arrays pass
// through as-is. A simple or bulk string is split on whitespace into bulk
// string tokens, so plain text clients work without array framing. Every
// other kind is rejected with a recoverable error.
func ParseRequest(req protocol.Value) ([]protocol.Value, error) {
	if req.Type == protocol.TypeArray && !req.Null {
		return req.Array, nil
	}
	if req.IsString() {
		fields := strings.Fields(req.Str)
		tokens := make([]protocol.Value, len(fields))
		for i, f := range fields {
			tokens[i] = protocol.BulkString(f)
		}
		return tokens, nil
	}
	return nil, NewError("Request must be list or simple string")
}

// Dispatch parses req, resolves the command and runs it. The returned error
// is either an *Error to report to the client or a fault the session must
// treat as fatal.
func (r *Router) Dispatch(s *store.Store, req protocol.Value) (protocol.Value, error) {
	tokens, err := ParseRequest(req)
	if err != nil {
		return protocol.Value{}, err
	}
	if len(tokens) == 0 {
		return protocol.Value{}, NewError("Missing command")
	}
	name := tokens[0]
	if !name.IsString() {
		return protocol.Value{}, fmt.Errorf("command name is not a string")
	}
	h, ok := r.Lookup(name.Str)
	if !ok {
		return protocol.Value{}, NewError(fmt.Sprintf("Command not found: %s", strings.ToUpper(name.Str)))
	}
	return h(s, tokens[1:])
}

func handleGet(s *store.Store, args []protocol.Value) (protocol.Value, error) {
	if len(args) != 1 {
		return protocol.Value{}, ErrWrongArity
	}
	v, ok := s.Get(args[0].Text())
	if !ok {
		return protocol.NullBulkString(), nil
	}
	return v, nil
}

func handleSet(s *store.Store, args []protocol.Value) (protocol.Value, error) {
	if len(args) != 2 {
		return protocol.Value{}, ErrWrongArity
	}
	s.Set(args[0].Text(), args[1])
	return protocol.Integer(1), nil
}

func handleDelete(s *store.Store, args []protocol.Value) (protocol.Value, error) {
	if len(args) != 1 {
		return protocol.Value{}, ErrWrongArity
	}
	if s.Delete(args[0].Text()) {
		return protocol.Integer(1), nil
	}
	return protocol.Integer(0), nil
}

func handleFlush(s *store.Store, args []protocol.Value) (protocol.Value, error) {
	if len(args) != 0 {
		return protocol.Value{}, ErrWrongArity
	}
	return protocol.Integer(int64(s.Flush())), nil
}

func handleMGet(s *store.Store, args []protocol.Value) (protocol.Value, error) {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = a.Text()
	}
	return protocol.ArrayValue(s.MGet(keys)...), nil
}

// handleMSet pairs up the flat argument list. An odd list has no valid
// pairing and is an arity fault.
func handleMSet(s *store.Store, args []protocol.Value) (protocol.Value, error) {
	if len(args)%2 != 0 {
		return protocol.Value{}, ErrWrongArity
	}
	pairs := make([]store.KV, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		pairs = append(pairs, store.KV{Key: args[i].Text(), Value: args[i+1]})
	}
	return protocol.Integer(int64(s.MSet(pairs))), nil
}
