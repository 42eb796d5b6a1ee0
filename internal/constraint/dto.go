package constraint

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DTO is the flat transfer representation shared by every constraint
// variant. Variant-specific fields are optional; FromDTO dispatches on
// Type and reads only the fields that variant uses. A ToDTO/FromDTO
// round trip preserves every field, including identity and timestamps.
type DTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      Type     `json:"type"`
	Status    Status   `json:"status"`
	Priority  int      `json:"priority"`
	Tolerance float64  `json:"tolerance"`
	Enabled   bool     `json:"isEnabled"`
	Driving   bool     `json:"isDriving"`
	Group     string   `json:"group,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Notes     string   `json:"notes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	CurrentValue float64 `json:"currentValue"`
	Error        float64 `json:"error"`

	Points []string `json:"points,omitempty"`
	Lines  []string `json:"lines,omitempty"`

	TargetDistance *float64    `json:"targetDistance,omitempty"`
	TargetAngle    *float64    `json:"targetAngle,omitempty"`
	TargetXYZ      *[3]float64 `json:"targetXYZ,omitempty"`

	DistancePairs [][2]string `json:"distancePairs,omitempty"`
	AngleTriplets [][3]string `json:"angleTriplets,omitempty"`
}

func dtoFromBase(b *Base) DTO {
	return DTO{
		ID:           b.ID.String(),
		Name:         b.Name,
		Type:         b.Type,
		Status:       b.Status,
		Priority:     b.Priority,
		Tolerance:    b.Tolerance,
		Enabled:      b.Enabled,
		Driving:      b.Driving,
		Group:        b.Group,
		Tags:         append([]string(nil), b.Tags...),
		Notes:        b.Notes,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
		CurrentValue: b.CurrentValue,
		Error:        b.Err,
	}
}

func (d DTO) toBase() (Base, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return Base{}, fmt.Errorf("parsing constraint id %q: %w", d.ID, err)
	}
	return Base{
		ID:           id,
		Name:         d.Name,
		Type:         d.Type,
		Status:       d.Status,
		Priority:     d.Priority,
		Tolerance:    d.Tolerance,
		Enabled:      d.Enabled,
		Driving:      d.Driving,
		Group:        d.Group,
		Tags:         append([]string(nil), d.Tags...),
		Notes:        d.Notes,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		CurrentValue: d.CurrentValue,
		Err:          d.Error,
	}, nil
}

// FromDTO reconstructs a constraint from its transfer representation.
// It is the single place that enumerates the closed variant set.
func FromDTO(d DTO) (Constraint, error) {
	base, err := d.toBase()
	if err != nil {
		return nil, err
	}
	switch d.Type {
	case TypeDistance:
		ids, err := parseIDs(d.Points, 2, "points")
		if err != nil {
			return nil, err
		}
		if d.TargetDistance == nil {
			return nil, fmt.Errorf("distance constraint %s: targetDistance is required", d.ID)
		}
		return &Distance{base: base, A: ids[0], B: ids[1], Target: *d.TargetDistance}, nil

	case TypeAngle:
		ids, err := parseIDs(d.Points, 3, "points")
		if err != nil {
			return nil, err
		}
		if d.TargetAngle == nil {
			return nil, fmt.Errorf("angle constraint %s: targetAngle is required", d.ID)
		}
		return &Angle{base: base, A: ids[0], V: ids[1], C: ids[2], Target: *d.TargetAngle}, nil

	case TypeParallel:
		ids, err := parseIDs(d.Lines, 2, "lines")
		if err != nil {
			return nil, err
		}
		return &Parallel{base: base, lines: lineRefs{ids: ids}}, nil

	case TypePerpendicular:
		ids, err := parseIDs(d.Lines, 2, "lines")
		if err != nil {
			return nil, err
		}
		return &Perpendicular{base: base, lines: lineRefs{ids: ids}}, nil

	case TypeFixedPoint:
		ids, err := parseIDs(d.Points, 1, "points")
		if err != nil {
			return nil, err
		}
		if d.TargetXYZ == nil {
			return nil, fmt.Errorf("fixed point constraint %s: targetXYZ is required", d.ID)
		}
		return &FixedPoint{base: base, P: ids[0], Target: *d.TargetXYZ}, nil

	case TypeCollinear:
		ids, err := parseIDs(d.Points, 0, "points")
		if err != nil {
			return nil, err
		}
		return &Collinear{base: base, points: ids}, nil

	case TypeCoplanar:
		ids, err := parseIDs(d.Points, 0, "points")
		if err != nil {
			return nil, err
		}
		return &Coplanar{base: base, points: ids}, nil

	case TypeEqualDistances:
		pairs, err := parsePairs(d.DistancePairs)
		if err != nil {
			return nil, err
		}
		return &EqualDistances{base: base, pairs: pairs}, nil

	case TypeEqualAngles:
		triplets, err := parseTriplets(d.AngleTriplets)
		if err != nil {
			return nil, err
		}
		return &EqualAngles{base: base, triplets: triplets}, nil
	}
	return nil, fmt.Errorf("unknown constraint type %q", d.Type)
}

func idsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func pairsToStrings(pairs [][2]uuid.UUID) [][2]string {
	out := make([][2]string, len(pairs))
	for i, p := range pairs {
		out[i] = [2]string{p[0].String(), p[1].String()}
	}
	return out
}

func tripletsToStrings(triplets [][3]uuid.UUID) [][3]string {
	out := make([][3]string, len(triplets))
	for i, t := range triplets {
		out[i] = [3]string{t[0].String(), t[1].String(), t[2].String()}
	}
	return out
}

// parseIDs parses entity ids, requiring exactly want entries when want
// is nonzero.
func parseIDs(raw []string, want int, field string) ([]uuid.UUID, error) {
	if want > 0 && len(raw) != want {
		return nil, fmt.Errorf("%s: expected %d ids, got %d", field, want, len(raw))
	}
	out := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: parsing id %q: %w", field, i, s, err)
		}
		out[i] = id
	}
	return out, nil
}

func parsePairs(raw [][2]string) ([][2]uuid.UUID, error) {
	out := make([][2]uuid.UUID, len(raw))
	for i, p := range raw {
		for j, s := range p {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("distancePairs[%d][%d]: parsing id %q: %w", i, j, s, err)
			}
			out[i][j] = id
		}
	}
	return out, nil
}

func parseTriplets(raw [][3]string) ([][3]uuid.UUID, error) {
	out := make([][3]uuid.UUID, len(raw))
	for i, t := range raw {
		for j, s := range t {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("angleTriplets[%d][%d]: parsing id %q: %w", i, j, s, err)
			}
			out[i][j] = id
		}
	}
	return out, nil
}
