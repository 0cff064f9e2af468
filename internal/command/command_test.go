package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minikv/minikv/internal/protocol"
	"github.com/minikv/minikv/internal/store"
)

func request(tokens ...string) protocol.Value {
	items := make([]protocol.Value, len(tokens))
	for i, tok := range tokens {
		items[i] = protocol.BulkString(tok)
	}
	return protocol.ArrayValue(items...)
}

func TestDispatch_SetGet(t *testing.T) {
	r := NewRouter()
	s := store.New()

	res, err := r.Dispatch(s, request("SET", "k1", "v1"))
	require.NoError(t, err)
	assert.Equal(t, protocol.Integer(1), res)

	res, err = r.Dispatch(s, request("GET", "k1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", res.Str)
}

func TestDispatch_GetMissingReturnsNull(t *testing.T) {
	r := NewRouter()
	s := store.New()

	res, err := r.Dispatch(s, request("GET", "nope"))
	require.NoError(t, err)
	assert.True(t, res.Null)
}

func TestDispatch_CaseInsensitiveCommand(t *testing.T) {
	r := NewRouter()
	s := store.New()

	_, err := r.Dispatch(s, request("set", "k", "v"))
	require.NoError(t, err)

	res, err := r.Dispatch(s, request("gEt", "k"))
	require.NoError(t, err)
	assert.Equal(t, "v", res.Str)
}

func TestDispatch_Delete(t *testing.T) {
	r := NewRouter()
	s := store.New()

	_, err := r.Dispatch(s, request("SET", "k", "v"))
	require.NoError(t, err)

	res, err := r.Dispatch(s, request("DELETE", "k"))
	require.NoError(t, err)
	assert.Equal(t, protocol.Integer(1), res)

	res, err = r.Dispatch(s, request("DELETE", "k"))
	require.NoError(t, err)
	assert.Equal(t, protocol.Integer(0), res)
}

func TestDispatch_Flush(t *testing.T) {
	r := NewRouter()
	s := store.New()

	_, err := r.Dispatch(s, request("MSET", "a", "1", "b", "2", "c", "3"))
	require.NoError(t, err)

	res, err := r.Dispatch(s, request("FLUSH"))
	require.NoError(t, err)
	assert.Equal(t, protocol.Integer(3), res)
	assert.Equal(t, 0, s.Size())
}

func TestDispatch_MGet(t *testing.T) {
	r := NewRouter()
	s := store.New()

	_, err := r.Dispatch(s, request("MSET", "a", "1", "c", "3"))
	require.NoError(t, err)

	res, err := r.Dispatch(s, request("MGET", "a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, res.Array, 3)
	assert.Equal(t, "1", res.Array[0].Str)
	assert.True(t, res.Array[1].Null)
	assert.Equal(t, "3", res.Array[2].Str)
}

func TestDispatch_MGetNoKeys(t *testing.T) {
	r := NewRouter()
	s := store.New()

	res, err := r.Dispatch(s, request("MGET"))
	require.NoError(t, err)
	assert.Empty(t, res.Array)
}

func TestDispatch_MSet(t *testing.T) {
	r := NewRouter()
	s := store.New()

	res, err := r.Dispatch(s, request("MSET", "a", "1", "b", "2"))
	require.NoError(t, err)
	assert.Equal(t, protocol.Integer(2), res)
}

func TestDispatch_MSetOddArgsIsFault(t *testing.T) {
	r := NewRouter()
	s := store.New()

	_, err := r.Dispatch(s, request("MSET", "a", "1", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongArity)

	var cmdErr *Error
	assert.False(t, errors.As(err, &cmdErr))
}

func TestDispatch_WrongArityIsFault(t *testing.T) {
	r := NewRouter()
	s := store.New()

	for _, req := range []protocol.Value{
		request("GET"),
		request("GET", "a", "b"),
		request("SET", "only-key"),
		request("DELETE"),
		request("FLUSH", "extra"),
	} {
		_, err := r.Dispatch(s, req)
		assert.ErrorIs(t, err, ErrWrongArity)
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	r := NewRouter()
	s := store.New()

	_, err := r.Dispatch(s, request("nosuch", "x"))
	require.Error(t, err)

	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "Command not found: NOSUCH", cmdErr.Message)
}

func TestDispatch_MissingCommand(t *testing.T) {
	r := NewRouter()
	s := store.New()

	_, err := r.Dispatch(s, protocol.ArrayValue())
	require.Error(t, err)

	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "Missing command", cmdErr.Message)
}

func TestDispatch_StringRequestSplitsOnWhitespace(t *testing.T) {
	r := NewRouter()
	s := store.New()

	_, err := r.Dispatch(s, protocol.SimpleString("SET  k   v"))
	require.NoError(t, err)

	res, err := r.Dispatch(s, protocol.BulkString("GET k"))
	require.NoError(t, err)
	assert.Equal(t, "v", res.Str)
}

func TestDispatch_NonListRequest(t *testing.T) {
	r := NewRouter()
	s := store.New()

	for _, req := range []protocol.Value{
		protocol.Integer(42),
		protocol.NullBulkString(),
		protocol.MapValue(),
	} {
		_, err := r.Dispatch(s, req)
		require.Error(t, err)

		var cmdErr *Error
		require.ErrorAs(t, err, &cmdErr)
		assert.Equal(t, "Request must be list or simple string", cmdErr.Message)
	}
}

func TestDispatch_NonStringCommandNameIsFault(t *testing.T) {
	r := NewRouter()
	s := store.New()

	_, err := r.Dispatch(s, protocol.ArrayValue(protocol.Integer(1), protocol.BulkString("x")))
	require.Error(t, err)

	var cmdErr *Error
	assert.False(t, errors.As(err, &cmdErr))
	assert.NotErrorIs(t, err, ErrWrongArity)
}

func TestDispatch_StructuredValuesStored(t *testing.T) {
	r := NewRouter()
	s := store.New()

	nested := protocol.ArrayValue(
		protocol.BulkString("SET"),
		protocol.BulkString("k"),
		protocol.MapValue(protocol.Pair{Key: protocol.BulkString("a"), Value: protocol.Integer(1)}),
	)
	_, err := r.Dispatch(s, nested)
	require.NoError(t, err)

	res, err := r.Dispatch(s, request("GET", "k"))
	require.NoError(t, err)
	assert.Equal(t, byte(protocol.TypeMap), res.Type)
	require.Len(t, res.Pairs, 1)
}

func TestDispatch_IntegerKey(t *testing.T) {
	r := NewRouter()
	s := store.New()

	// An integer key addresses the same slot as its decimal text.
	_, err := r.Dispatch(s, protocol.ArrayValue(
		protocol.BulkString("SET"), protocol.Integer(7), protocol.BulkString("v"),
	))
	require.NoError(t, err)

	res, err := r.Dispatch(s, request("GET", "7"))
	require.NoError(t, err)
	assert.Equal(t, "v", res.Str)
}
