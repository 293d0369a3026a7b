package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLists keeps each list head-first, index 0 being LEFT.
type fakeLists struct {
	lists map[string][]string
	err   error
}

func newFakeLists() *fakeLists {
	return &fakeLists{lists: map[string][]string{}}
}

func (f *fakeLists) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, v := range values {
		f.lists[key] = append([]string{string(v.([]byte))}, f.lists[key]...)
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeLists) move(source, destination, srcpos, destpos string) (string, bool) {
	src := f.lists[source]
	if len(src) == 0 {
		return "", false
	}
	var v string
	if srcpos == "LEFT" {
		v, f.lists[source] = src[0], src[1:]
	} else {
		v, f.lists[source] = src[len(src)-1], src[:len(src)-1]
	}
	if destpos == "LEFT" {
		f.lists[destination] = append([]string{v}, f.lists[destination]...)
	} else {
		f.lists[destination] = append(f.lists[destination], v)
	}
	return v, true
}

func (f *fakeLists) BLMove(_ context.Context, source, destination, srcpos, destpos string, _ time.Duration) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.move(source, destination, srcpos, destpos)
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeLists) LMove(ctx context.Context, source, destination, srcpos, destpos string) *redis.StringCmd {
	return f.BLMove(ctx, source, destination, srcpos, destpos, 0)
}

func (f *fakeLists) LRem(_ context.Context, key string, count int64, value interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	target := string(value.([]byte))
	var kept []string
	var removed int64
	for _, v := range f.lists[key] {
		if v == target && removed < count {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	f.lists[key] = kept
	return redis.NewIntResult(removed, nil)
}

func (f *fakeLists) LLen(_ context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func TestListQueue_PopKeepsPayloadUntilAck(t *testing.T) {
	ctx := context.Background()
	client := newFakeLists()
	q := NewListQueue(client)

	require.NoError(t, q.Push(ctx, "jobs", []byte("first")))
	require.NoError(t, q.Push(ctx, "jobs", []byte("second")))

	got, err := q.Pop(ctx, "jobs", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
	assert.Equal(t, []string{"first"}, client.lists["jobs:processing"])

	n, err := q.Len(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, q.Ack(ctx, "jobs", got))
	assert.Empty(t, client.lists["jobs:processing"])
}

func TestListQueue_PopEmpty(t *testing.T) {
	q := NewListQueue(newFakeLists())

	_, err := q.Pop(context.Background(), "jobs", time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestListQueue_RecoverRestoresOrder(t *testing.T) {
	ctx := context.Background()
	client := newFakeLists()
	q := NewListQueue(client)

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(ctx, "jobs", []byte(p)))
	}
	// a consumer died holding a and b
	_, err := q.Pop(ctx, "jobs", time.Second)
	require.NoError(t, err)
	_, err = q.Pop(ctx, "jobs", time.Second)
	require.NoError(t, err)

	moved, err := q.Recover(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assert.Empty(t, client.lists["jobs:processing"])

	var order []string
	for i := 0; i < 3; i++ {
		got, err := q.Pop(ctx, "jobs", time.Second)
		require.NoError(t, err)
		order = append(order, string(got))
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestListQueue_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	client := newFakeLists()
	client.err = boom
	q := NewListQueue(client)

	assert.ErrorIs(t, q.Push(ctx, "jobs", []byte("x")), boom)
	_, err := q.Pop(ctx, "jobs", time.Second)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, q.Ack(ctx, "jobs", []byte("x")), boom)
	_, err = q.Recover(ctx, "jobs")
	assert.ErrorIs(t, err, boom)
	_, err = q.Len(ctx, "jobs")
	assert.ErrorIs(t, err, boom)
}
