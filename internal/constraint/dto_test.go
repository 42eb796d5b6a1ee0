package constraint

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestDTORoundTrip(t *testing.T) {
	p := ids(6)
	l := ids(2)

	constraints := []Constraint{
		NewDistance("dist", p[0], p[1], 2.5),
		NewAngle("ang", p[0], p[1], p[2], 45),
		NewParallel("par", l[0], l[1]),
		NewPerpendicular("perp", l[0], l[1]),
		NewFixedPoint("pin", p[0], [3]float64{1, -2, 3}),
		NewCollinear("col", p[0], p[1], p[2], p[3]),
		NewCoplanar("cop", p[0], p[1], p[2], p[3], p[4]),
		NewEqualDistances("eqd", [2]uuid.UUID{p[0], p[1]}, [2]uuid.UUID{p[2], p[3]}),
		NewEqualAngles("eqa", [3]uuid.UUID{p[0], p[1], p[2]}, [3]uuid.UUID{p[3], p[4], p[5]}),
	}

	for _, c := range constraints {
		t.Run(string(c.Base().Type), func(t *testing.T) {
			c.Base().Group = "bundle"
			c.Base().Tags = []string{"calib", "survey"}
			c.Base().Notes = "measured on site"
			c.Base().Priority = 7
			c.Base().Tolerance = 1e-4

			d := c.ToDTO()

			// Through JSON, as the project file does it.
			raw, err := json.Marshal(d)
			require.NoError(t, err)
			var d2 DTO
			require.NoError(t, json.Unmarshal(raw, &d2))

			back, err := FromDTO(d2)
			require.NoError(t, err)
			// Compare against the decoded DTO: encoding strips the
			// monotonic clock reading from the timestamps.
			assert.Equal(t, d2, back.ToDTO())
		})
	}
}

func TestFromDTOErrors(t *testing.T) {
	valid := NewDistance("d", uuid.New(), uuid.New(), 1).ToDTO()

	t.Run("bad id", func(t *testing.T) {
		d := valid
		d.ID = "not-a-uuid"
		_, err := FromDTO(d)
		assert.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		d := valid
		d.Type = "warp"
		_, err := FromDTO(d)
		assert.Error(t, err)
	})

	t.Run("missing target", func(t *testing.T) {
		d := valid
		d.TargetDistance = nil
		_, err := FromDTO(d)
		assert.Error(t, err)
	})

	t.Run("wrong cardinality", func(t *testing.T) {
		d := valid
		d.Points = d.Points[:1]
		_, err := FromDTO(d)
		assert.Error(t, err)
	})

	t.Run("bad entity id", func(t *testing.T) {
		d := valid
		d.Points = []string{"nope", d.Points[1]}
		_, err := FromDTO(d)
		assert.Error(t, err)
	})
}

func TestTypeValid(t *testing.T) {
	for _, typ := range []Type{
		TypeDistance, TypeAngle, TypeParallel, TypePerpendicular,
		TypeFixedPoint, TypeCollinear, TypeCoplanar,
		TypeEqualDistances, TypeEqualAngles,
	} {
		assert.True(t, typ.Valid(), string(typ))
	}
	assert.False(t, Type("warp").Valid())
}
