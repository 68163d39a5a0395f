package audit_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	audit "datatrail/pkg/platform/audit"
	"datatrail/pkg/platform/audit/mocks"
	"datatrail/pkg/platform/audit/store/memory"
	"datatrail/pkg/requestcontext"
)

type stubActors struct{ actor audit.Actor }

func (s stubActors) CurrentActor(context.Context) audit.Actor { return s.actor }

type recordingMirror struct {
	entries []audit.Entry
	err     error
}

func (m *recordingMirror) Publish(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return m.err
}

func int64Ptr(v int64) *int64 { return &v }

func TestWriter_Record(t *testing.T) {
	fixed := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

	t.Run("completes and stores the entry", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		actorID := int64(55)
		w := audit.NewWriter(store, audit.WithActors(stubActors{audit.Actor{Name: "Ana Torres", ID: &actorID}}))

		ctx := requestcontext.WithTime(context.Background(), fixed)
		ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.7", "Mozilla/5.0")

		out := w.Record(ctx, audit.Entry{TableName: "USUARIO", RecordID: int64Ptr(3), Kind: audit.KindCreate})

		require.True(t, out.OK())
		assert.Equal(t, int64(1), out.Entry.ID)
		assert.Equal(t, fixed, out.Entry.Timestamp)
		assert.Equal(t, "Ana Torres", out.Entry.ActorName)
		assert.Equal(t, int64(55), *out.Entry.ActorID)
		assert.Equal(t, "Creation of record in table USUARIO", out.Entry.Description)
		assert.Equal(t, "10.0.0.7", *out.Entry.IPAddress)
		assert.Equal(t, "Mozilla/5.0", *out.Entry.UserAgent)

		stored, err := store.ListAll(context.Background())
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, out.Entry, stored[0])
	})

	t.Run("keeps caller supplied fields", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		w := audit.NewWriter(store, audit.WithActors(stubActors{audit.SystemActor()}))

		out := w.Record(context.Background(), audit.Entry{
			TableName:   "VEHICULO",
			Kind:        audit.KindDelete,
			ActorName:   "batch import",
			Timestamp:   fixed,
			Description: "Removed by reconciliation",
		})

		require.True(t, out.OK())
		assert.Equal(t, "batch import", out.Entry.ActorName)
		assert.Equal(t, fixed, out.Entry.Timestamp)
		assert.Equal(t, "Removed by reconciliation", out.Entry.Description)
		assert.Nil(t, out.Entry.IPAddress)
	})

	t.Run("background work is credited to SYSTEM", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		w := audit.NewWriter(store)

		out := w.Record(context.Background(), audit.Entry{TableName: "VIVIENDA", Kind: audit.KindCreate})

		require.True(t, out.OK())
		assert.Equal(t, audit.SystemActorName, out.Entry.ActorName)
	})

	t.Run("storage failure is reported in the outcome and logged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("connection refused")).Times(1)

		var logs bytes.Buffer
		reg := prometheus.NewRegistry()
		metrics := audit.NewMetrics(reg)
		w := audit.NewWriter(store,
			audit.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
			audit.WithMetrics(metrics),
			audit.WithActors(stubActors{audit.SystemActor()}),
		)

		var out audit.Outcome
		require.NotPanics(t, func() {
			out = w.Record(context.Background(), audit.Entry{TableName: "USUARIO", RecordID: int64Ptr(8), Kind: audit.KindUpdate})
		})

		assert.False(t, out.OK())
		assert.ErrorContains(t, out.Err, "connection refused")
		assert.Contains(t, logs.String(), "audit entry not persisted")
		assert.Contains(t, logs.String(), "table=USUARIO")
		assert.Contains(t, logs.String(), "record_id=8")
		assert.Contains(t, logs.String(), "kind=UPDATE")
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.PersistFailures.WithLabelValues("USUARIO", "UPDATE")))
	})

	t.Run("panicking store is contained", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, *audit.Entry) error {
			panic("driver bug")
		})
		w := audit.NewWriter(store, audit.WithLogger(slog.New(slog.DiscardHandler)))

		out := w.Record(context.Background(), audit.Entry{TableName: "USUARIO", Kind: audit.KindCreate})

		assert.False(t, out.OK())
		assert.ErrorContains(t, out.Err, "driver bug")
	})

	t.Run("invalid entries are rejected without touching the store", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().Append(gomock.Any(), gomock.Any()).Times(0)
		w := audit.NewWriter(store, audit.WithLogger(slog.New(slog.DiscardHandler)))

		field := "placa"
		out := w.Record(context.Background(), audit.Entry{TableName: "VEHICULO", Kind: audit.KindCreate, FieldName: &field})
		assert.False(t, out.OK())

		out = w.Record(context.Background(), audit.Entry{Kind: audit.KindCreate})
		assert.False(t, out.OK())
	})

	t.Run("stored entries are mirrored and mirror errors are swallowed", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		mirror := &recordingMirror{err: errors.New("broker unavailable")}
		reg := prometheus.NewRegistry()
		metrics := audit.NewMetrics(reg)
		w := audit.NewWriter(store,
			audit.WithMirror(mirror),
			audit.WithMetrics(metrics),
			audit.WithLogger(slog.New(slog.DiscardHandler)),
		)

		out := w.Record(context.Background(), audit.Entry{TableName: "USUARIO", Kind: audit.KindCreate})

		require.True(t, out.OK())
		require.Len(t, mirror.entries, 1)
		assert.Equal(t, out.Entry.ID, mirror.entries[0].ID)
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MirrorFailures))
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Written.WithLabelValues("USUARIO", "CREATE")))
	})
}
