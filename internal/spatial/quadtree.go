package spatial

const (
	// DefaultMaxItems is the number of entries a leaf holds before it splits.
	DefaultMaxItems = 16
	// DefaultMaxDepth bounds subdivision so coincident entries cannot recurse forever.
	DefaultMaxDepth = 12
)

type quadEntry[T comparable] struct {
	item T
	rect Rect
}

type quadNode[T comparable] struct {
	bounds   Rect
	depth    int
	parent   *quadNode[T]
	children *[4]*quadNode[T]
	items    []quadEntry[T]
}

// QuadTree indexes items by bounding rectangle. Each item lives in the
// deepest node whose bounds fully contain its (clamped) rectangle, and the
// tree keeps a reverse map so moves and removals do not need a search.
//
// Items whose rectangles extend beyond the root bounds are still stored.
// Placement uses the rectangle clamped into the root while queries test
// the original rectangle, so nothing is ever missed.
type QuadTree[T comparable] struct {
	root     *quadNode[T]
	maxItems int
	maxDepth int
	where    map[T]*quadNode[T]
}

// NewQuadTree constructs an empty tree covering bounds. Non-positive limits
// fall back to DefaultMaxItems and DefaultMaxDepth.
func NewQuadTree[T comparable](bounds Rect, maxItems, maxDepth int) *QuadTree[T] {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &QuadTree[T]{
		root:     &quadNode[T]{bounds: bounds.Normalized()},
		maxItems: maxItems,
		maxDepth: maxDepth,
		where:    make(map[T]*quadNode[T]),
	}
}

// Bounds returns the area covered by the root node.
func (t *QuadTree[T]) Bounds() Rect {
	if t == nil {
		return Rect{}
	}
	return t.root.bounds
}

// Len reports the number of indexed items.
func (t *QuadTree[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.where)
}

// Has reports whether item is indexed.
func (t *QuadTree[T]) Has(item T) bool {
	if t == nil {
		return false
	}
	_, ok := t.where[item]
	return ok
}

// Insert adds item with the supplied rectangle. Inserting an item that is
// already present behaves like Update.
func (t *QuadTree[T]) Insert(item T, rect Rect) {
	if t == nil {
		return
	}
	if _, ok := t.where[item]; ok {
		t.Update(item, rect)
		return
	}
	rect = rect.Normalized()
	t.insert(t.root, quadEntry[T]{item: item, rect: rect}, rect.ClampInto(t.root.bounds))
}

// Update moves item to a new rectangle. When the item still belongs to the
// same node only the stored rectangle changes.
func (t *QuadTree[T]) Update(item T, rect Rect) {
	if t == nil {
		return
	}
	node, ok := t.where[item]
	if !ok {
		t.Insert(item, rect)
		return
	}
	rect = rect.Normalized()
	placement := rect.ClampInto(t.root.bounds)
	if node.fits(placement) && (node.children == nil || node.childFor(placement) < 0) {
		for i := range node.items {
			if node.items[i].item == item {
				node.items[i].rect = rect
				return
			}
		}
	}
	t.Remove(item)
	t.insert(t.root, quadEntry[T]{item: item, rect: rect}, placement)
}

// Remove deletes item from the tree. It reports whether the item was present.
func (t *QuadTree[T]) Remove(item T) bool {
	if t == nil {
		return false
	}
	node, ok := t.where[item]
	if !ok {
		return false
	}
	delete(t.where, item)
	for i := range node.items {
		if node.items[i].item != item {
			continue
		}
		last := len(node.items) - 1
		node.items[i] = node.items[last]
		var zero quadEntry[T]
		node.items[last] = zero
		node.items = node.items[:last]
		break
	}
	t.collapse(node)
	return true
}

// Clear drops every item while keeping the root bounds.
func (t *QuadTree[T]) Clear() {
	if t == nil {
		return
	}
	t.root = &quadNode[T]{bounds: t.root.bounds}
	t.where = make(map[T]*quadNode[T])
}

// Query calls visit for every item whose rectangle intersects area. Returning
// false from visit stops the walk early.
func (t *QuadTree[T]) Query(area Rect, visit func(item T, rect Rect) bool) {
	if t == nil || visit == nil {
		return
	}
	area = area.Normalized()
	t.root.query(area, area.ClampInto(t.root.bounds), visit)
}

// Collect returns the items intersecting area, appended to dst.
func (t *QuadTree[T]) Collect(area Rect, dst []T) []T {
	t.Query(area, func(item T, _ Rect) bool {
		dst = append(dst, item)
		return true
	})
	return dst
}

func (t *QuadTree[T]) insert(node *quadNode[T], entry quadEntry[T], placement Rect) {
	for node.children != nil {
		idx := node.childFor(placement)
		if idx < 0 {
			break
		}
		node = node.children[idx]
	}
	node.items = append(node.items, entry)
	t.where[entry.item] = node
	if node.children == nil && len(node.items) > t.maxItems && node.depth < t.maxDepth {
		t.split(node)
	}
}

func (t *QuadTree[T]) split(node *quadNode[T]) {
	midX, midY := node.bounds.Center()
	b := node.bounds
	node.children = &[4]*quadNode[T]{
		{bounds: Rect{MinX: b.MinX, MinY: b.MinY, MaxX: midX, MaxY: midY}, depth: node.depth + 1, parent: node},
		{bounds: Rect{MinX: midX, MinY: b.MinY, MaxX: b.MaxX, MaxY: midY}, depth: node.depth + 1, parent: node},
		{bounds: Rect{MinX: b.MinX, MinY: midY, MaxX: midX, MaxY: b.MaxY}, depth: node.depth + 1, parent: node},
		{bounds: Rect{MinX: midX, MinY: midY, MaxX: b.MaxX, MaxY: b.MaxY}, depth: node.depth + 1, parent: node},
	}
	kept := node.items[:0]
	for _, entry := range node.items {
		placement := entry.rect.ClampInto(t.root.bounds)
		idx := node.childFor(placement)
		if idx < 0 {
			kept = append(kept, entry)
			continue
		}
		t.insert(node.children[idx], entry, placement)
	}
	for i := len(kept); i < len(node.items); i++ {
		var zero quadEntry[T]
		node.items[i] = zero
	}
	node.items = kept
}

// collapse folds empty leaf quadrants back into their parent so the tree
// shrinks as cells are eaten.
func (t *QuadTree[T]) collapse(node *quadNode[T]) {
	for node = node.parent; node != nil; node = node.parent {
		if node.children == nil {
			continue
		}
		for _, child := range node.children {
			if child.children != nil || len(child.items) > 0 {
				return
			}
		}
		node.children = nil
	}
}

func (n *quadNode[T]) fits(r Rect) bool {
	return n.parent == nil || n.bounds.Contains(r)
}

// childFor returns the quadrant that fully contains r, or -1 when r
// straddles a split line.
func (n *quadNode[T]) childFor(r Rect) int {
	midX, midY := n.bounds.Center()
	var col, row int
	switch {
	case r.MaxX <= midX:
		col = 0
	case r.MinX >= midX:
		col = 1
	default:
		return -1
	}
	switch {
	case r.MaxY <= midY:
		row = 0
	case r.MinY >= midY:
		row = 1
	default:
		return -1
	}
	return row*2 + col
}

func (n *quadNode[T]) query(area, clamped Rect, visit func(T, Rect) bool) bool {
	for _, entry := range n.items {
		if entry.rect.Intersects(area) {
			if !visit(entry.item, entry.rect) {
				return false
			}
		}
	}
	if n.children == nil {
		return true
	}
	for _, child := range n.children {
		if !child.bounds.Intersects(clamped) {
			continue
		}
		if !child.query(area, clamped, visit) {
			return false
		}
	}
	return true
}
