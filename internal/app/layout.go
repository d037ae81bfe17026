package app

import (
	"fmt"
	"math"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

// Fraction of canvas width the priority source takes when present.
const priorityWidthPercent = 70

// ComputeLayout assigns a non-overlapping region to every source on a canvas
// of the given size. Pure and deterministic: same input, same output. The
// layout is always built from scratch, never patched, so the non-overlap
// invariant holds regardless of join/leave history.
//
// Policy:
//   - no sources: empty layout
//   - one source: full canvas
//   - first source flagged priority (a screen share): left 70% at full
//     height, remaining sources stacked in the right 30% at equal heights
//   - otherwise: a near-square grid, row-major
//
// Overlap is verified as a post-condition; a violation is a bug in the
// policy, reported as an error and never silently fixed.
func ComputeLayout(sources []domain.Source, canvasW, canvasH int) (domain.Layout, error) {
	if canvasW <= 0 || canvasH <= 0 {
		return nil, fmt.Errorf("invalid canvas %dx%d", canvasW, canvasH)
	}

	var layout domain.Layout
	switch {
	case len(sources) == 0:
		layout = domain.Layout{}
	case len(sources) == 1:
		layout = domain.Layout{{
			SourceID: sources[0].ID,
			X:        0, Y: 0, W: canvasW, H: canvasH, Z: 1,
		}}
	case sources[0].Priority:
		layout = prioritySplit(sources, canvasW, canvasH)
	default:
		layout = grid(sources, canvasW, canvasH)
	}

	if len(layout) != len(sources) {
		return nil, fmt.Errorf("layout has %d regions for %d sources", len(layout), len(sources))
	}
	if err := checkNoOverlap(layout); err != nil {
		return nil, err
	}
	return layout, nil
}

func prioritySplit(sources []domain.Source, canvasW, canvasH int) domain.Layout {
	mainW := canvasW * priorityWidthPercent / 100
	layout := domain.Layout{{
		SourceID: sources[0].ID,
		X:        0, Y: 0, W: mainW, H: canvasH, Z: 1,
	}}

	rest := sources[1:]
	sideW := canvasW - mainW
	cellH := canvasH / len(rest)
	for i, s := range rest {
		layout = append(layout, domain.Region{
			SourceID: s.ID,
			X:        mainW,
			Y:        i * cellH,
			W:        sideW,
			H:        cellH,
			Z:        i + 2,
		})
	}
	return layout
}

func grid(sources []domain.Source, canvasW, canvasH int) domain.Layout {
	n := len(sources)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	cellW := canvasW / cols
	cellH := canvasH / rows

	layout := make(domain.Layout, 0, n)
	for i, s := range sources {
		col := i % cols
		row := i / cols
		layout = append(layout, domain.Region{
			SourceID: s.ID,
			X:        col * cellW,
			Y:        row * cellH,
			W:        cellW,
			H:        cellH,
			Z:        i + 1,
		})
	}
	return layout
}

func checkNoOverlap(layout domain.Layout) error {
	for i := 0; i < len(layout); i++ {
		for j := i + 1; j < len(layout); j++ {
			if layout[i].Overlaps(layout[j]) {
				return fmt.Errorf("regions for sources %d and %d overlap",
					layout[i].SourceID, layout[j].SourceID)
			}
		}
	}
	return nil
}
