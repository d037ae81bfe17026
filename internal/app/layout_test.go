package app

import (
	"reflect"
	"testing"

	"github.com/frank005/broadcastaway-sub000/internal/domain"
)

func makeSources(n int) []domain.Source {
	out := make([]domain.Source, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Source{ID: domain.MediaID(i + 1)})
	}
	return out
}

func TestComputeLayoutEmpty(t *testing.T) {
	layout, err := ComputeLayout(nil, 1280, 720)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(layout) != 0 {
		t.Fatalf("expected empty layout, got %d regions", len(layout))
	}
}

func TestComputeLayoutSingle(t *testing.T) {
	layout, err := ComputeLayout(makeSources(1), 1280, 720)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	want := domain.Layout{{SourceID: 1, X: 0, Y: 0, W: 1280, H: 720, Z: 1}}
	if !reflect.DeepEqual(layout, want) {
		t.Fatalf("unexpected layout: %+v", layout)
	}
}

func TestComputeLayoutPriority(t *testing.T) {
	sources := []domain.Source{
		{ID: 9, Priority: true},
		{ID: 1},
		{ID: 2},
	}
	layout, err := ComputeLayout(sources, 1000, 600)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if len(layout) != 3 {
		t.Fatalf("expected 3 regions, got %d", len(layout))
	}
	main := layout[0]
	if main.SourceID != 9 || main.X != 0 || main.W != 700 || main.H != 600 || main.Z != 1 {
		t.Fatalf("unexpected main region: %+v", main)
	}
	for _, side := range layout[1:] {
		if side.X != 700 || side.W != 300 {
			t.Fatalf("side region not in right column: %+v", side)
		}
	}
	if layout[1].Y != 0 || layout[2].Y != 300 {
		t.Fatalf("side regions not stacked: %+v %+v", layout[1], layout[2])
	}
}

func TestComputeLayoutGridShape(t *testing.T) {
	layout, err := ComputeLayout(makeSources(4), 1280, 720)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	// 4 sources: 2x2 grid.
	if layout[0].W != 640 || layout[0].H != 360 {
		t.Fatalf("unexpected cell size: %+v", layout[0])
	}
	if layout[3].X != 640 || layout[3].Y != 360 {
		t.Fatalf("last cell misplaced: %+v", layout[3])
	}
}

func TestComputeLayoutNoOverlap(t *testing.T) {
	for n := 0; n <= 17; n++ {
		layout, err := ComputeLayout(makeSources(n), 1280, 720)
		if err != nil {
			t.Fatalf("n=%d layout error: %v", n, err)
		}
		if len(layout) != n {
			t.Fatalf("n=%d got %d regions", n, len(layout))
		}
		for i := 0; i < len(layout); i++ {
			for j := i + 1; j < len(layout); j++ {
				if layout[i].Overlaps(layout[j]) {
					t.Fatalf("n=%d regions %d and %d overlap", n, i, j)
				}
			}
		}
	}
}

func TestComputeLayoutDeterministic(t *testing.T) {
	sources := []domain.Source{{ID: 5, Priority: true}, {ID: 2}, {ID: 7}, {ID: 3}}
	a, err := ComputeLayout(sources, 1280, 720)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	b, err := ComputeLayout(sources, 1280, 720)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same input produced different layouts")
	}
}

func TestComputeLayoutBadCanvas(t *testing.T) {
	if _, err := ComputeLayout(makeSources(2), 0, 720); err == nil {
		t.Fatal("expected error for zero-width canvas")
	}
}

func TestRegionOverlapEdges(t *testing.T) {
	a := domain.Region{X: 0, Y: 0, W: 100, H: 100}
	b := domain.Region{X: 100, Y: 0, W: 100, H: 100}
	if a.Overlaps(b) {
		t.Fatal("touching edges counted as overlap")
	}
	c := domain.Region{X: 99, Y: 99, W: 10, H: 10}
	if !a.Overlaps(c) {
		t.Fatal("intersecting regions not detected")
	}
	zero := domain.Region{X: 50, Y: 50, W: 0, H: 0}
	if a.Overlaps(zero) {
		t.Fatal("zero-area region counted as overlap")
	}
}
