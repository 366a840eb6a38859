package cache

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore(t *testing.T) {
	store, err := OpenBadger("", nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	_, err = store.Get(ctx, Key("missing"))
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, Key("abc"), []byte(`{"best_move":"wait_and_observe"}`), time.Hour))
	value, err := store.Get(ctx, Key("abc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"best_move":"wait_and_observe"}`, string(value))

	c := NewDecisionCache(store, time.Hour)
	c.Put(ctx, "fp", sampleRecommendation())
	got, ok := c.Get(ctx, "fp")
	require.True(t, ok)
	assert.Equal(t, "value_not_discount", got.Focus)
}

func TestBadgerStorePersistsToDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenBadger(dir, nil)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, store.Close())

	reopened, err := OpenBadger(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	value, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestBadgerLoggerForwardsToSlog(t *testing.T) {
	var buf bytes.Buffer
	l := &badgerLogger{logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	l.Errorf("value log %d corrupt\n", 3)
	l.Warningf("compaction slow")
	l.Infof("All %d tables opened", 0)

	out := buf.String()
	assert.Contains(t, out, `level=ERROR msg="value log 3 corrupt"`)
	assert.Contains(t, out, `level=WARN msg="compaction slow"`)
	assert.Contains(t, out, `level=DEBUG msg="All 0 tables opened"`)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, err := NewRedisStore(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, Key("abc"), []byte("payload"), time.Hour))
	value, err := store.Get(ctx, Key("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), value)
	assert.Equal(t, time.Hour, mr.TTL(Key("abc")))

	mr.FastForward(time.Hour + time.Second)
	_, err = store.Get(ctx, Key("abc"))
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisStoreUnavailableFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	c := NewDecisionCache(NewRedisStoreFromClient(client), time.Hour)
	mr.Close()

	ctx := context.Background()
	c.Put(ctx, "fp", sampleRecommendation())
	_, ok := c.Get(ctx, "fp")
	assert.False(t, ok)
}

func TestNewRedisStoreRejectsBadAddress(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
