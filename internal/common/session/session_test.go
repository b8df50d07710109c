package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "climate-risk-advisor/internal/common/errors"
	"climate-risk-advisor/internal/common/logger"
	"climate-risk-advisor/internal/common/metrics"
	"climate-risk-advisor/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// ==========================
// State
// ==========================

func TestState_History(t *testing.T) {
	s := NewState("s1", 0)
	s.AppendUserTurn("hello")
	s.AppendAssistantTurn("Hi there", models.AgentTagCanned)
	s.AppendUserTurn("  flood risk in Miami  ")

	assert.Equal(t, "User: hello\nBot: Hi there\nUser: flood risk in Miami", s.HistoryAsPromptContext())
	assert.Equal(t, 3, s.Len())

	turns := s.Turns()
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, models.AgentTagCanned, turns[1].AgentTag)
	assert.False(t, turns[0].CreatedAt.IsZero())
}

func TestState_HistoryWindow(t *testing.T) {
	exchange := func(s *State, q string) {
		s.AppendUserTurn(q)
		s.AppendAssistantTurn("climate notes for "+q, models.AgentTagClimate)
		s.AppendAssistantTurn("risk notes for "+q, models.AgentTagRisk)
		s.AppendAssistantTurn("report for "+q, models.AgentTagSynthesis)
	}

	tests := []struct {
		name   string
		window int
		want   string
	}{
		{"window counts exchanges", 2, "User: two\nBot: report for two\nUser: three\nBot: report for three"},
		{"window larger than history", 12, "User: one\nBot: report for one\nUser: two\nBot: report for two\nUser: three\nBot: report for three"},
		{"unbounded", 0, "User: one\nBot: report for one\nUser: two\nBot: report for two\nUser: three\nBot: report for three"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState("s1", tt.window)
			exchange(s, "one")
			exchange(s, "two")
			exchange(s, "three")

			history := s.HistoryAsPromptContext()
			assert.Equal(t, tt.want, history)
			assert.NotContains(t, history, "climate notes", "intermediate analyses are not replayed")
			assert.Equal(t, 12, s.Len(), "window only bounds the rendered history")
		})
	}
}

func TestState_HistoryWindow_CannedReplies(t *testing.T) {
	s := NewState("s1", 1)
	s.AppendUserTurn("hello")
	s.AppendAssistantTurn("Hi there", models.AgentTagCanned)
	s.AppendUserTurn("risks in Miami?")
	s.AppendAssistantTurn("Which location?", models.AgentTagCanned)

	assert.Equal(t, "User: risks in Miami?\nBot: Which location?", s.HistoryAsPromptContext())
}

func TestState_EmptyHistory(t *testing.T) {
	assert.Equal(t, "", NewState("s1", 5).HistoryAsPromptContext())
}

func TestState_LastLocation(t *testing.T) {
	s := NewState("s1", 0)

	_, ok := s.LastLocation()
	assert.False(t, ok)

	assert.True(t, s.SetLastLocation("Chicago"))
	loc, ok := s.LastLocation()
	assert.True(t, ok)
	assert.Equal(t, "Chicago", loc)

	tests := []string{"Global", "global", "Unknown", "", "  "}
	for _, sentinel := range tests {
		t.Run("ignores "+sentinel, func(t *testing.T) {
			assert.False(t, s.SetLastLocation(sentinel))
			loc, _ := s.LastLocation()
			assert.Equal(t, "Chicago", loc)
		})
	}
}

func TestState_SnapshotRoundTrip(t *testing.T) {
	s := NewState("s1", 3)
	s.AppendUserTurn("hi")
	s.SetLastLocation("Houston")

	restored := fromSnapshot(s.snapshot(), 3)
	assert.Equal(t, s.Turns(), restored.Turns())
	loc, ok := restored.LastLocation()
	assert.True(t, ok)
	assert.Equal(t, "Houston", loc)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	_, ok = s.LastLocation()
	assert.False(t, ok)
}

// ==========================
// Stores
// ==========================

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	_, ok, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	s := NewState("s1", 0)
	s.AppendUserTurn("hi")
	require.NoError(t, store.Save(ctx, s.snapshot()))

	snap, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, snap.Turns, 1)

	t.Run("expires idle sessions", func(t *testing.T) {
		store.now = func() time.Time { return now.Add(2 * time.Minute) }
		_, ok, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		store.now = func() time.Time { return now }
		require.NoError(t, store.Save(ctx, s.snapshot()))
		require.NoError(t, store.Delete(ctx, "s1"))
		_, ok, _ := store.Load(ctx, "s1")
		assert.False(t, ok)
	})
}

func TestRedisStore_Miniredis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, 30*time.Minute)

	s := NewState("abc", 0)
	s.AppendUserTurn("flooding in Miami?")
	s.SetLastLocation("Miami")
	require.NoError(t, store.Save(ctx, s.snapshot()))

	assert.True(t, mr.Exists("climate:session:abc"))
	assert.Equal(t, 30*time.Minute, mr.TTL("climate:session:abc"))

	snap, ok, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, snap.LastLocation)
	assert.Equal(t, "Miami", *snap.LastLocation)
	assert.Equal(t, "flooding in Miami?", snap.Turns[0].Content)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, ok, err = store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("load error", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet("climate:session:abc").SetErr(errors.New("connection refused"))

		_, _, err := NewRedisStore(client, time.Minute).Load(ctx, "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt payload", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectGet("climate:session:abc").SetVal("{not json")

		_, _, err := NewRedisStore(client, time.Minute).Load(ctx, "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode session")
	})

	t.Run("delete error", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectDel("climate:session:abc").SetErr(errors.New("readonly"))

		err := NewRedisStore(client, time.Minute).Delete(ctx, "abc")
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// ==========================
// Manager
// ==========================

type failingStore struct {
	*MemoryStore
	loadErr error
	saveErr error
}

func (f *failingStore) Load(ctx context.Context, id string) (snapshot, bool, error) {
	if f.loadErr != nil {
		return snapshot{}, false, f.loadErr
	}
	return f.MemoryStore.Load(ctx, id)
}

func (f *failingStore) Save(ctx context.Context, snap snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.Save(ctx, snap)
}

func TestManager_PersistsAcrossTurns(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Hour), 0, logger.NewTestLogger(t))

	err := m.WithSession(ctx, "s1", func(s *State) error {
		s.AppendUserTurn("risks in Chicago")
		s.SetLastLocation("Chicago")
		return nil
	})
	require.NoError(t, err)

	err = m.WithSession(ctx, "s1", func(s *State) error {
		loc, ok := s.LastLocation()
		assert.True(t, ok)
		assert.Equal(t, "Chicago", loc)
		assert.Equal(t, 1, s.Len())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, m.Reset(ctx, "s1"))
	_ = m.WithSession(ctx, "s1", func(s *State) error {
		assert.Equal(t, 0, s.Len())
		return nil
	})
}

func TestManager_SavesOnError(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Hour), 0, logger.NewTestLogger(t))
	boom := errors.New("boom")

	err := m.WithSession(ctx, "s1", func(s *State) error {
		s.AppendUserTurn("hi")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_ = m.WithSession(ctx, "s1", func(s *State) error {
		assert.Equal(t, 1, s.Len())
		return nil
	})
}

func TestManager_StoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("load failure starts a fresh conversation", func(t *testing.T) {
		before := testutil.ToFloat64(metrics.SessionStoreFailures.WithLabelValues("load"))
		store := &failingStore{MemoryStore: NewMemoryStore(time.Hour), loadErr: errors.New("down")}
		m := NewManager(store, 0, logger.NewTestLogger(t))

		called := false
		err := m.WithSession(ctx, "s1", func(s *State) error {
			called = true
			assert.Equal(t, 0, s.Len())
			s.AppendUserTurn("hi")
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.SessionStoreFailures.WithLabelValues("load")))

		store.loadErr = nil
		snap, ok, err := store.Load(ctx, "s1")
		require.NoError(t, err)
		require.True(t, ok, "the fresh state is still saved")
		assert.Len(t, snap.Turns, 1)
	})

	t.Run("save failure keeps the turn result", func(t *testing.T) {
		before := testutil.ToFloat64(metrics.SessionStoreFailures.WithLabelValues("save"))
		store := &failingStore{MemoryStore: NewMemoryStore(time.Hour), saveErr: errors.New("down")}
		m := NewManager(store, 0, logger.NewTestLogger(t))

		err := m.WithSession(ctx, "s1", func(s *State) error { return nil })
		assert.NoError(t, err)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.SessionStoreFailures.WithLabelValues("save")))
	})

	t.Run("save failure still reports fn error", func(t *testing.T) {
		store := &failingStore{MemoryStore: NewMemoryStore(time.Hour), saveErr: errors.New("down")}
		m := NewManager(store, 0, logger.NewTestLogger(t))
		boom := errors.New("boom")

		err := m.WithSession(ctx, "s1", func(s *State) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("reset failure is reported", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.ExpectDel("climate:session:s1").SetErr(errors.New("readonly"))
		m := NewManager(NewRedisStore(client, time.Minute), 0, logger.NewTestLogger(t))

		err := m.Reset(ctx, "s1")
		assert.Equal(t, apperrors.ErrCodeSessionStoreFailed, apperrors.CodeOf(err))
	})
}

func TestManager_SerialisesSameSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Hour), 0, logger.NewNoOpLogger())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithSession(ctx, "shared", func(s *State) error {
				s.AppendUserTurn("q")
				return nil
			})
		}()
	}
	wg.Wait()

	_ = m.WithSession(ctx, "shared", func(s *State) error {
		assert.Equal(t, n, s.Len())
		return nil
	})
	assert.Empty(t, m.locks)
}

func TestManager_AcquireHonoursContext(t *testing.T) {
	m := NewManager(NewMemoryStore(time.Hour), 0, logger.NewNoOpLogger())

	release, err := m.acquire(context.Background(), "s1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = m.WithSession(ctx, "s1", func(s *State) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	assert.Empty(t, m.locks)
}
