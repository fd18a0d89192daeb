package mesh

import (
	"fmt"
	"reflect"
)

// Callbacks are the four lifecycle hooks through which the application
// allocates and releases the data behind each block. All hooks are invoked
// synchronously from the mutating call and must not re-enter the mesh.
type Callbacks interface {
	// CreateBlock returns the handle for a block inserted by Initialize.
	CreateBlock(id GlobalID) LocalID
	// DeleteBlock releases a block during Finalize and reports success.
	DeleteBlock(id GlobalID, h LocalID) bool
	// RefineBlock returns handles for children, positionally matched.
	RefineBlock(parent GlobalID, h LocalID, children [8]GlobalID) [8]LocalID
	// CoarsenBlock returns the handle of parent built from the sibling group.
	CoarsenBlock(siblings [8]GlobalID, handles [8]LocalID, parent GlobalID) LocalID
}

// CallbackFuncs adapts four plain functions to Callbacks. Every field is
// required; RegisterCallbacks rejects a partially filled value.
type CallbackFuncs struct {
	Create  func(id GlobalID) LocalID
	Delete  func(id GlobalID, h LocalID) bool
	Refine  func(parent GlobalID, h LocalID, children [8]GlobalID) [8]LocalID
	Coarsen func(siblings [8]GlobalID, handles [8]LocalID, parent GlobalID) LocalID
}

func (f CallbackFuncs) CreateBlock(id GlobalID) LocalID { return f.Create(id) }

func (f CallbackFuncs) DeleteBlock(id GlobalID, h LocalID) bool { return f.Delete(id, h) }

func (f CallbackFuncs) RefineBlock(parent GlobalID, h LocalID, children [8]GlobalID) [8]LocalID {
	return f.Refine(parent, h, children)
}

func (f CallbackFuncs) CoarsenBlock(siblings [8]GlobalID, handles [8]LocalID, parent GlobalID) LocalID {
	return f.Coarsen(siblings, handles, parent)
}

func (f CallbackFuncs) validate() error {
	missing := ""
	switch {
	case f.Create == nil:
		missing = "create"
	case f.Delete == nil:
		missing = "delete"
	case f.Refine == nil:
		missing = "refine"
	case f.Coarsen == nil:
		missing = "coarsen"
	default:
		return nil
	}
	return fmt.Errorf("%s: %w", missing, ErrMissingCallback)
}

func validateCallbacks(cb Callbacks) error {
	switch v := cb.(type) {
	case nil:
		return fmt.Errorf("callbacks: %w", ErrMissingCallback)
	case CallbackFuncs:
		return v.validate()
	case *CallbackFuncs:
		if v == nil {
			return fmt.Errorf("callbacks: %w", ErrMissingCallback)
		}
		return v.validate()
	}
	switch rv := reflect.ValueOf(cb); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice:
		if rv.IsNil() {
			return fmt.Errorf("callbacks: nil %T: %w", cb, ErrMissingCallback)
		}
	}
	return nil
}
