package domain

// Source is one active video input of the composite output. Priority sources
// (screen shares) get the dominant region of the canvas.
type Source struct {
	ID       MediaID `json:"id"`
	Priority bool    `json:"priority,omitempty"`
}

// Region is one rectangle of a transcoder layout.
type Region struct {
	SourceID MediaID `json:"source_id"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	W        int     `json:"w"`
	H        int     `json:"h"`
	Z        int     `json:"z"`
}

// Layout is the full region list for the current membership, recomputed from
// scratch on every change.
type Layout []Region

// Overlaps reports whether the two regions share any area. Touching edges do
// not count.
func (r Region) Overlaps(o Region) bool {
	if r.X+r.W <= o.X || o.X+o.W <= r.X {
		return false
	}
	if r.Y+r.H <= o.Y || o.Y+o.H <= r.Y {
		return false
	}
	return r.W > 0 && r.H > 0 && o.W > 0 && o.H > 0
}
