package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityResolver(t *testing.T) {
	t.Run("probes the id field", func(t *testing.T) {
		r := NewIdentityResolver(profileSchema)
		id := r.Resolve(&profile{ID: 9})
		require.NotNil(t, id)
		assert.Equal(t, int64(9), *id)
	})

	t.Run("falls through nil candidates in priority order", func(t *testing.T) {
		type vehiculo struct {
			ID       *int64
			RecordID int32
		}
		r := NewIdentityResolver(SchemaOf[vehiculo]())
		id := r.Resolve(&vehiculo{RecordID: 12})
		require.NotNil(t, id)
		assert.Equal(t, int64(12), *id)
	})

	t.Run("per-domain aliases extend the probe list", func(t *testing.T) {
		type vivienda struct {
			IDVivienda string
		}
		schema := SchemaOf[vivienda]()

		assert.Nil(t, NewIdentityResolver(schema).Resolve(&vivienda{IDVivienda: "31"}))

		id := NewIdentityResolver(schema, WithProbeNames[vivienda]("id_vivienda")).Resolve(&vivienda{IDVivienda: "31"})
		require.NotNil(t, id)
		assert.Equal(t, int64(31), *id)
	})

	t.Run("accessor takes precedence", func(t *testing.T) {
		r := NewIdentityResolver(profileSchema, WithAccessor(func(p *profile) (int64, bool) {
			return 100 + p.ID, true
		}))
		id := r.Resolve(&profile{ID: 1})
		require.NotNil(t, id)
		assert.Equal(t, int64(101), *id)
	})

	t.Run("absent id is nil, never a panic", func(t *testing.T) {
		type note struct{ Texto string }
		assert.Nil(t, NewIdentityResolver(SchemaOf[note]()).Resolve(&note{Texto: "x"}))
		assert.Nil(t, NewIdentityResolver(profileSchema).Resolve(nil))

		panicky := NewIdentityResolver(profileSchema, WithAccessor(func(*profile) (int64, bool) {
			panic("boom")
		}))
		assert.Nil(t, panicky.Resolve(&profile{ID: 1}))
	})
}
