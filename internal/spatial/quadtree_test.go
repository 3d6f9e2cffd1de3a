package spatial

import (
	"math"
	"math/rand"
	"sort"
	"testing"
)

func collectSorted(tree *QuadTree[int], area Rect) []int {
	got := tree.Collect(area, nil)
	sort.Ints(got)
	return got
}

func bruteForce(rects map[int]Rect, area Rect) []int {
	var out []int
	for id, r := range rects {
		if r.Normalized().Intersects(area) {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQuadTreeQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bounds := Rect{MinX: -500, MinY: -500, MaxX: 500, MaxY: 500}
	tree := NewQuadTree[int](bounds, 4, 8)
	rects := make(map[int]Rect)

	for id := 1; id <= 600; id++ {
		x := rng.Float64()*1200 - 600
		y := rng.Float64()*1200 - 600
		half := rng.Float64() * 40
		if id%25 == 0 {
			half = 0
		}
		r := RectAround(x, y, half, half)
		rects[id] = r
		tree.Insert(id, r)
	}

	for round := 0; round < 200; round++ {
		for id := range rects {
			if rng.Intn(4) != 0 {
				continue
			}
			r := RectAround(rng.Float64()*1000-500, rng.Float64()*1000-500, rng.Float64()*30, rng.Float64()*30)
			rects[id] = r
			tree.Update(id, r)
		}
		area := RectAround(rng.Float64()*1400-700, rng.Float64()*1400-700, rng.Float64()*300, rng.Float64()*300)
		got := collectSorted(tree, area)
		want := bruteForce(rects, area)
		if !equalInts(got, want) {
			t.Fatalf("round %d: query %+v returned %d items, want %d", round, area, len(got), len(want))
		}
	}
}

func TestQuadTreeRemoveAndCollapse(t *testing.T) {
	tree := NewQuadTree[int](Rect{MaxX: 100, MaxY: 100}, 2, 6)
	for id := 0; id < 50; id++ {
		tree.Insert(id, RectAround(float64(id*2), float64(id*2), 0.5, 0.5))
	}
	if tree.Len() != 50 {
		t.Fatalf("expected 50 items, got %d", tree.Len())
	}
	for id := 0; id < 50; id++ {
		if !tree.Remove(id) {
			t.Fatalf("expected remove of %d to succeed", id)
		}
	}
	if tree.Remove(3) {
		t.Fatalf("expected second remove to report absence")
	}
	if tree.Len() != 0 {
		t.Fatalf("expected empty tree, got %d items", tree.Len())
	}
	if tree.root.children != nil {
		t.Fatalf("expected empty tree to collapse its quadrants")
	}
}

func TestQuadTreeCoincidentItemsRespectDepth(t *testing.T) {
	tree := NewQuadTree[int](Rect{MaxX: 64, MaxY: 64}, 1, 3)
	for id := 0; id < 40; id++ {
		tree.Insert(id, Rect{MinX: 10, MinY: 10, MaxX: 10, MaxY: 10})
	}
	got := collectSorted(tree, Rect{MinX: 10, MinY: 10, MaxX: 10, MaxY: 10})
	if len(got) != 40 {
		t.Fatalf("expected all coincident items, got %d", len(got))
	}
}

func TestQuadTreeItemsOutsideBounds(t *testing.T) {
	tree := NewQuadTree[int](Rect{MaxX: 100, MaxY: 100}, 1, 4)
	tree.Insert(1, Rect{MinX: -30, MinY: 10, MaxX: -20, MaxY: 20})
	tree.Insert(2, Rect{MinX: 5, MinY: 5, MaxX: 6, MaxY: 6})
	tree.Insert(3, Rect{MinX: 150, MinY: 150, MaxX: 160, MaxY: 160})

	if got := collectSorted(tree, Rect{MinX: -40, MinY: 0, MaxX: -25, MaxY: 30}); !equalInts(got, []int{1}) {
		t.Fatalf("expected item outside the left edge to be found, got %v", got)
	}
	if got := collectSorted(tree, Rect{MinX: 155, MinY: 155, MaxX: 200, MaxY: 200}); !equalInts(got, []int{3}) {
		t.Fatalf("expected item beyond the far corner to be found, got %v", got)
	}
}

func TestQuadTreeDegenerateRects(t *testing.T) {
	tree := NewQuadTree[int](Rect{MaxX: 100, MaxY: 100}, 2, 4)
	tree.Insert(1, Rect{MinX: 60, MinY: 60, MaxX: 40, MaxY: 40})
	tree.Insert(2, Rect{MinX: math.NaN(), MinY: 5, MaxX: math.NaN(), MaxY: 5})

	if got := collectSorted(tree, RectAround(50, 50, 1, 1)); !equalInts(got, []int{1}) {
		t.Fatalf("expected inverted rect to be normalized, got %v", got)
	}
	if !tree.Has(2) {
		t.Fatalf("expected NaN rect to be indexed after normalization")
	}
}

func TestQuadTreeQueryStopsEarly(t *testing.T) {
	tree := NewQuadTree[int](Rect{MaxX: 10, MaxY: 10}, 4, 4)
	for id := 0; id < 10; id++ {
		tree.Insert(id, RectAround(5, 5, 1, 1))
	}
	visited := 0
	tree.Query(RectAround(5, 5, 2, 2), func(int, Rect) bool {
		visited++
		return visited < 3
	})
	if visited != 3 {
		t.Fatalf("expected walk to stop after 3 visits, got %d", visited)
	}
}

func TestRectClampPoint(t *testing.T) {
	r := Rect{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	x, y := r.ClampPoint(-10, 120, 5)
	if x != 5 || y != 95 {
		t.Fatalf("expected (5, 95), got (%v, %v)", x, y)
	}
	x, y = r.ClampPoint(10, 10, 80)
	if x != 50 || y != 50 {
		t.Fatalf("expected oversized margin to pin to centre, got (%v, %v)", x, y)
	}
}
