package lifecycle

// Cell is one live partition: its name, the id assigned by the partitioning
// layer at creation, and the cores dedicated to it. Records are owned by the
// registry; callers only ever see copies.
type Cell struct {
	Name string `json:"name"`
	ID   uint32 `json:"id"`
	CPUs []int  `json:"cpus"`
}

// registry is the insertion-ordered collection of live cells. It has no
// internal locking; the controller's global lock serializes all access.
type registry struct {
	cells []*Cell
}

func newRegistry() *registry {
	return &registry{}
}

// insert appends a cell. The caller has already checked name uniqueness.
func (r *registry) insert(c *Cell) {
	r.cells = append(r.cells, c)
}

// find returns the cell with the given name, or nil.
func (r *registry) find(name string) *Cell {
	for _, c := range r.cells {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// remove deletes the named cell, preserving insertion order.
func (r *registry) remove(name string) {
	for i, c := range r.cells {
		if c.Name == name {
			r.cells = append(r.cells[:i], r.cells[i+1:]...)
			return
		}
	}
}

// clear drops every cell. Used when the hypervisor is disabled.
func (r *registry) clear() {
	r.cells = nil
}

// list returns copies of all cells in insertion order.
func (r *registry) list() []Cell {
	out := make([]Cell, 0, len(r.cells))
	for _, c := range r.cells {
		cp := *c
		cp.CPUs = append([]int(nil), c.CPUs...)
		out = append(out, cp)
	}
	return out
}

func (r *registry) len() int { return len(r.cells) }
