package interp

// Cell is a single-slot container participating in the ownership
// registry: a value keeps a back-reference to every cell holding it,
// and the last cell to let go destroys the value. Placeholder cells
// (used for `this` bindings and transient pins) never destroy what
// they hold.
type Cell struct {
	v           *Value
	placeholder bool
}

// Get returns the held value, or nil for an empty cell.
func (c *Cell) Get() *Value { return c.v }

func (c *Cell) Placeholder() bool { return c.placeholder }

// Release empties the cell. If the removal leaves the value with no
// cells and the cell is not a placeholder, the value is destroyed.
func (c *Cell) Release() {
	if c.v == nil {
		return
	}
	v := c.v
	c.v = nil

	for i, back := range v.cells {
		if back == c {
			v.cells = append(v.cells[:i], v.cells[i+1:]...)
			break
		}
	}
	if len(v.cells) == 0 && !c.placeholder {
		v.destroy()
	}
}

// Acquire releases the current value and binds vt, registering the
// cell in vt's back-reference list.
func (c *Cell) Acquire(vt *Value) {
	c.Release()
	if vt == nil {
		return
	}
	c.v = vt
	vt.cells = append(vt.cells, c)
}

// clear empties the cell through the placeholder gate: the value is
// unbound but never destroyed. Move semantics and the constructor's
// transient `this` alias both go through here.
func (c *Cell) clear() {
	was := c.placeholder
	c.placeholder = true
	c.Release()
	c.placeholder = was
}

// MoveInto rebinds vt exclusively to this cell: every cell currently
// holding vt is cleared through the placeholder gate first.
func (c *Cell) MoveInto(vt *Value) {
	for _, holder := range vt.cells {
		holder.v = nil
	}
	vt.cells = vt.cells[:0]
	c.Acquire(vt)
}

// pin parks a value in a transient placeholder cell so it survives a
// frame pop; the returned func unpins it.
func pin(vt *Value) func() {
	if vt == nil || vt == voidValue {
		return func() {}
	}
	cell := &Cell{placeholder: true}
	cell.Acquire(vt)
	return cell.clear
}
