package scene

// Provenance records how an entity's current values were produced.
type Provenance string

const (
	ProvenanceUser           Provenance = "user"
	ProvenanceOptimized      Provenance = "optimized"
	ProvenancePhotogrammetry Provenance = "photogrammetry"
	ProvenanceMeasured       Provenance = "measured"
	ProvenanceDerived        Provenance = "derived"
)

// Valid reports whether p is one of the known provenance tags.
func (p Provenance) Valid() bool {
	switch p {
	case ProvenanceUser, ProvenanceOptimized, ProvenancePhotogrammetry,
		ProvenanceMeasured, ProvenanceDerived:
		return true
	}
	return false
}
