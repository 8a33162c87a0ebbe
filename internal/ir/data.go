package ir

import (
	"fmt"
	"iter"
	"slices"
)

// DataStorage selects the storage class of a data object.
type DataStorage uint8

const (
	StorageGlobal DataStorage = iota
	StorageThreadLocal
)

func (s DataStorage) String() string {
	switch s {
	case StorageGlobal:
		return "global"
	case StorageThreadLocal:
		return "thread_local"
	default:
		return fmt.Sprintf("storage(%d)", uint8(s))
	}
}

// DataKind tags a data element.
type DataKind uint8

const (
	DataUndefined DataKind = iota
	DataInteger
	DataFloat32
	DataFloat64
	DataLongDouble
	DataString
	DataPointer
	DataStringPointer
	DataRaw
	DataAggregate
)

func (k DataKind) String() string {
	switch k {
	case DataUndefined:
		return "undefined"
	case DataInteger:
		return "integer"
	case DataFloat32:
		return "float32"
	case DataFloat64:
		return "float64"
	case DataLongDouble:
		return "long_double"
	case DataString:
		return "string"
	case DataPointer:
		return "pointer"
	case DataStringPointer:
		return "string_pointer"
	case DataRaw:
		return "raw"
	case DataAggregate:
		return "aggregate"
	default:
		return fmt.Sprintf("data(%d)", uint8(k))
	}
}

// DataElement is one initializer slot. Only the fields selected by Kind are
// meaningful.
type DataElement struct {
	Kind DataKind

	Count   uint64  // undefined: run length
	Int     int64   // integer
	Float   float64 // float64, long_double
	F32     float32 // float32
	Bytes   []byte  // string, raw
	Symbol  string  // pointer base; resolved lazily by later stages
	Literal StringLiteralID
	Offset  int64 // pointer, string_pointer
}

func (e DataElement) String() string {
	switch e.Kind {
	case DataUndefined:
		return fmt.Sprintf("undefined x%d", e.Count)
	case DataInteger:
		return fmt.Sprintf("integer %d", e.Int)
	case DataFloat32:
		return fmt.Sprintf("float32 %g", e.F32)
	case DataFloat64, DataLongDouble:
		return fmt.Sprintf("%s %g", e.Kind, e.Float)
	case DataString:
		return fmt.Sprintf("string %q", e.Bytes)
	case DataPointer:
		return fmt.Sprintf("pointer %s%+d", e.Symbol, e.Offset)
	case DataStringPointer:
		return fmt.Sprintf("string_pointer string#%d%+d", e.Literal, e.Offset)
	case DataRaw:
		return fmt.Sprintf("raw % x", e.Bytes)
	default:
		return e.Kind.String()
	}
}

// DataObject is a named initialized object.
type DataObject struct {
	Name     string
	Storage  DataStorage
	Type     TypeID
	elements []DataElement
}

// NewDataObject builds a data object; elements and their contents are copied.
func NewDataObject(name string, storage DataStorage, typ TypeID, elements []DataElement) DataObject {
	own := make([]DataElement, len(elements))
	for i, e := range elements {
		own[i] = e.clone()
	}
	return DataObject{Name: name, Storage: storage, Type: typ, elements: own}
}

func (e DataElement) clone() DataElement {
	e.Bytes = slices.Clone(e.Bytes)
	return e
}

// Len returns the element count.
func (d DataObject) Len() int { return len(d.elements) }

// At returns a copy of element i.
func (d DataObject) At(i int) DataElement { return d.elements[i].clone() }

// Elements iterates copies of the elements in order.
func (d DataObject) Elements() iter.Seq2[int, DataElement] {
	return func(yield func(int, DataElement) bool) {
		for i, e := range d.elements {
			if !yield(i, e.clone()) {
				return
			}
		}
	}
}
