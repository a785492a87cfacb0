// Package pdf is the in-process PDF engine behind the converter: it loads a
// document, exposes its pages, produces structured text (blocks, lines and
// spans with geometry, font and color attributes), enumerates per-page font
// tables, and can write a text-stripped working copy of the document for
// rasterization.
package pdf

// ObjectType identifies the kind of a PDF object.
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBool
	ObjInt
	ObjFloat
	ObjString
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjRef
)

// Object holds any PDF object value.
type Object struct {
	Type   ObjectType
	Bool   bool
	Int    int64
	Float  float64
	Str    []byte
	Name   string
	Array  []*Object
	Dict   Dict
	Stream []byte // raw (still encoded) stream data
	Ref    Reference
}

// Float64 returns the numeric value of an integer or real object.
func (o *Object) Float64() float64 {
	if o == nil {
		return 0
	}
	switch o.Type {
	case ObjInt:
		return float64(o.Int)
	case ObjFloat:
		return o.Float
	}
	return 0
}

// Reference is an indirect object reference (N G R).
type Reference struct {
	Number int
	Gen    int
}

// Dict is a PDF dictionary (name -> object).
type Dict map[string]*Object

// GetInt returns the integer value of a Dict entry.
func (d Dict) GetInt(key string) (int64, bool) {
	obj, ok := d[key]
	if !ok {
		return 0, false
	}
	switch obj.Type {
	case ObjInt:
		return obj.Int, true
	case ObjFloat:
		return int64(obj.Float), true
	}
	return 0, false
}

// GetFloat returns the numeric value of a Dict entry.
func (d Dict) GetFloat(key string) (float64, bool) {
	obj, ok := d[key]
	if !ok {
		return 0, false
	}
	if obj.Type != ObjInt && obj.Type != ObjFloat {
		return 0, false
	}
	return obj.Float64(), true
}

// GetName returns the name (or string) value of a Dict entry.
func (d Dict) GetName(key string) (string, bool) {
	obj, ok := d[key]
	if !ok {
		return "", false
	}
	if obj.Type == ObjName {
		return obj.Name, true
	}
	if obj.Type == ObjString {
		return string(obj.Str), true
	}
	return "", false
}

// GetArray returns the array value of a Dict entry. A single object is
// treated as a one-element array, which several PDF entries permit.
func (d Dict) GetArray(key string) ([]*Object, bool) {
	obj, ok := d[key]
	if !ok {
		return nil, false
	}
	if obj.Type == ObjArray {
		return obj.Array, true
	}
	return []*Object{obj}, true
}

// GetDict returns the dict value of a Dict entry.
func (d Dict) GetDict(key string) (Dict, bool) {
	obj, ok := d[key]
	if !ok {
		return nil, false
	}
	if obj.Type == ObjDict || obj.Type == ObjStream {
		return obj.Dict, true
	}
	return nil, false
}
