package interp

import (
	"yc/ast"
	"yc/errs"
	"yc/token"
)

// SymTable is the process-wide stack of scope frames. A frame maps the
// dotted form of a name to its cell. Popping a frame releases every
// cell in it, so values whose last reference lived there are destroyed
// deterministically.
type SymTable struct {
	frames []map[string]*Cell
}

func NewSymTable() *SymTable {
	return &SymTable{}
}

func (st *SymTable) PushFrame() {
	st.frames = append(st.frames, map[string]*Cell{})
}

func (st *SymTable) PopFrame() {
	frame := st.frames[len(st.frames)-1]
	for _, cell := range frame {
		cell.Release()
	}
	st.frames = st.frames[:len(st.frames)-1]
}

// Reset pops every remaining frame.
func (st *SymTable) Reset() {
	for len(st.frames) > 0 {
		st.PopFrame()
	}
}

func (st *SymTable) Depth() int { return len(st.frames) }

// Define inserts a fresh cell for name in the top frame and attaches
// the value. Defining `this` marks the cell as a placeholder so the
// instance's lifetime is not controlled by the alias.
func (st *SymTable) Define(name ast.Name, vt *Value) *Cell {
	frame := st.frames[len(st.frames)-1]
	key := name.String()
	// redefinition in the same frame drops the old cell first
	if old, found := frame[key]; found {
		old.Release()
	}

	cell := &Cell{}
	if name.Base == "this" && !name.Dotted() {
		cell.placeholder = true
	}
	cell.Acquire(vt)
	frame[key] = cell
	return cell
}

// Lookup walks frames top to bottom. For a dotted name the leading
// segment is resolved first and each following segment is resolved in
// the returned instance's own table; a dotted name whose owner is a
// class descriptor and whose tail is `new` bypasses the instance table
// and resolves on this table (constructor lookup).
func (st *SymTable) Lookup(name ast.Name, pos *token.Pos) (*Cell, error) {
	if name.Dotted() {
		owner, err := st.Lookup(name.Owner(), pos)
		if err != nil {
			return nil, err
		}
		ov := owner.Get()
		if ov == nil {
			return nil, errs.New(errs.Name, pos, "%s has no value", name.Owner())
		}

		if !(ov.Type.Base == ast.TRuntime && name.Base == "new") {
			inner, err := memberTable(ov)
			if err != nil {
				return nil, errs.New(errs.Type, pos, "%s is not a compound type", name.Owner())
			}
			return inner.Lookup(ast.NewName(name.Base), pos)
		}
	}

	key := name.String()
	for i := len(st.frames) - 1; i >= 0; i-- {
		if cell, found := st.frames[i][key]; found {
			return cell, nil
		}
	}
	return nil, errs.New(errs.Name, pos, "variable %s is not declared", name)
}

// memberTable returns the symbol table dotted segments resolve in: the
// instance state for a class value, the variant table for a union
// descriptor.
func memberTable(owner *Value) (*SymTable, error) {
	switch {
	case owner.Type.Base == ast.TClass && owner.Inst != nil:
		return owner.Inst, nil
	case owner.Type.Base == ast.TRuntime && owner.Union != nil && owner.Inst != nil:
		return owner.Inst, nil
	}
	return nil, errs.New(errs.Type, nil, "not a compound type")
}

// LookupCell resolves an lvalue reference, including an indexed one,
// to the cell it denotes.
func (st *SymTable) LookupCell(ev *ast.ExprVal, index *Value) (*Cell, error) {
	if ev.Call != nil {
		return nil, errs.New(errs.Type, &ev.Pos, "cannot assign to a function call")
	}

	cell, err := st.Lookup(ev.Ref, &ev.Pos)
	if err != nil {
		return nil, err
	}
	if ev.Index == nil {
		return cell, nil
	}

	arr := cell.Get()
	if arr == nil || arr.Type.ArrayLen == 0 {
		return nil, errs.New(errs.Type, &ev.Pos, "%s is not an array", ev.Ref)
	}
	if index == nil || index.Type.Base != ast.TInt32 || index.Type.ArrayLen != 0 {
		return nil, errs.New(errs.Type, &ev.Pos, "array index must be an int32")
	}
	i := index.I32
	if i < 0 || int(i) >= len(arr.Arr) {
		return nil, errs.New(errs.Index, &ev.Pos, "array index out of bound")
	}
	return arr.Arr[i], nil
}

// DeepCopy clones every frame and cell; used when deep-copying a class
// instance.
func (st *SymTable) DeepCopy() *SymTable {
	clone := NewSymTable()
	for _, frame := range st.frames {
		clone.PushFrame()
		top := clone.frames[len(clone.frames)-1]
		for key, cell := range frame {
			c := &Cell{placeholder: cell.placeholder}
			if v := cell.Get(); v != nil {
				c.Acquire(v.DeepCopy())
			}
			top[key] = c
		}
	}
	return clone
}

// Names lists the names defined in the bottom frame.
func (st *SymTable) Names() []string {
	if len(st.frames) == 0 {
		return nil
	}
	names := make([]string, 0, len(st.frames[0]))
	for key := range st.frames[0] {
		names = append(names, key)
	}
	return names
}
