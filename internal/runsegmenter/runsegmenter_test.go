package runsegmenter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"titrack/internal/model"
)

func counter() func() model.RunId {
	var n int64
	return func() model.RunId {
		n++
		return model.RunId(n)
	}
}

func TestSegmenter(t *testing.T) {
	scope := model.PlayerScope{PlayerId: "p1"}
	t0 := time.Unix(1_700_000_000, 0)

	t.Run("plain zone from Idle opens a run", func(t *testing.T) {
		s := New(counter())
		tr := s.Enter(scope, "/Game/Art/Maps/SomeMap/Main", 1, 1, 555, t0)
		require.NotNil(t, tr.Opened)
		assert.Empty(t, tr.Closed)
		id, ok := s.ActiveRunId()
		require.True(t, ok)
		assert.Equal(t, model.RunId(1), id)
	})

	t.Run("hub zone closes the active run and returns to Idle", func(t *testing.T) {
		s := New(counter())
		s.Enter(scope, "/Game/Art/Maps/SomeMap/Main", 1, 1, 555, t0)
		tr := s.Enter(scope, "/Game/Art/Maps/Town/Main", 1, 1, 1, t0.Add(time.Minute))
		require.Len(t, tr.Closed, 1)
		_, ok := s.ActiveRunId()
		assert.False(t, ok)
	})

	t.Run("sub-zone opens a child run under InMap without closing the outer run", func(t *testing.T) {
		s := New(counter())
		s.Enter(scope, "/Game/Art/Maps/SomeMap/Main", 1, 1, 555, t0)
		tr := s.Enter(scope, "/Game/Art/Maps/Nightmare/Main", 1, 1, 777, t0.Add(time.Minute))
		require.NotNil(t, tr.Opened)
		assert.Empty(t, tr.Closed)
		require.NotNil(t, tr.Opened.Run.ParentRunId)
		assert.Equal(t, model.RunId(1), *tr.Opened.Run.ParentRunId)
	})

	t.Run("returning to the outer zone from a sub-zone splices: closes sub-run, no new run opens", func(t *testing.T) {
		s := New(counter())
		s.Enter(scope, "/Game/Art/Maps/SomeMap/Main", 1, 1, 555, t0)
		s.Enter(scope, "/Game/Art/Maps/Nightmare/Main", 1, 1, 777, t0.Add(time.Minute))

		tr := s.Enter(scope, "/Game/Art/Maps/SomeMap/Main", 1, 1, 555, t0.Add(2*time.Minute))
		require.Len(t, tr.Closed, 1)
		assert.NotNil(t, tr.Closed[0].SpliceParent)
		assert.Nil(t, tr.Opened)

		id, ok := s.ActiveRunId()
		require.True(t, ok)
		assert.Equal(t, model.RunId(1), id)
	})

	t.Run("identical zone re-entry while InMap closes and reopens", func(t *testing.T) {
		s := New(counter())
		s.Enter(scope, "/Game/Art/Maps/SomeMap/Main", 1, 1, 555, t0)
		tr := s.Enter(scope, "/Game/Art/Maps/SomeMap/Main", 1, 1, 555, t0.Add(time.Minute))
		require.Len(t, tr.Closed, 1)
		require.NotNil(t, tr.Opened)
		id, ok := s.ActiveRunId()
		require.True(t, ok)
		assert.Equal(t, model.RunId(2), id)
	})

	t.Run("sub-zone entered directly from Idle is tracked as its own run", func(t *testing.T) {
		s := New(counter())
		tr := s.Enter(scope, "/Game/Art/Maps/Nightmare/Main", 1, 1, 777, t0)
		require.NotNil(t, tr.Opened)
		assert.Nil(t, tr.Opened.Run.ParentRunId)
	})

	t.Run("LoadActiveRun restores a single outer run as InMap", func(t *testing.T) {
		s := New(counter())
		outer := OpenRun{Scope: scope, StartTs: t0, ZoneSignature: "Rift of Dimensions", LevelId: 555}
		s.LoadActiveRun([]OpenRun{outer}, []model.RunId{42})

		id, ok := s.ActiveRunId()
		require.True(t, ok)
		assert.Equal(t, model.RunId(42), id)

		tr := s.Enter(scope, "/Game/Art/Maps/Town/Main", 1, 1, 1, t0.Add(time.Minute))
		require.Len(t, tr.Closed, 1)
		assert.Equal(t, outer.ZoneSignature, tr.Closed[0].Run.ZoneSignature)
	})

	t.Run("LoadActiveRun restores an outer+sub pair as InSubZone", func(t *testing.T) {
		s := New(counter())
		outer := OpenRun{Scope: scope, StartTs: t0, ZoneSignature: "Rift of Dimensions", LevelId: 555}
		sub := OpenRun{Scope: scope, StartTs: t0.Add(time.Second), ZoneSignature: "Rift of Dimensions/Nightmare", LevelId: 777, IsSubZone: true}
		s.LoadActiveRun([]OpenRun{outer, sub}, []model.RunId{42, 43})

		id, ok := s.ActiveRunId()
		require.True(t, ok)
		assert.Equal(t, model.RunId(43), id)

		tr := s.Enter(scope, "/Game/Art/Maps/SomeMap/Main", 1, 1, 555, t0.Add(2*time.Minute))
		require.Len(t, tr.Closed, 2)
	})
}
