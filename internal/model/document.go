package model

// Document is the aggregate produced by one run.
type Document struct {
	Enums     OrderedMap[string, Enum]
	Classes   OrderedMap[string, Class]
	Functions []Method
	Macros    []Macro
}

func NewDocument() *Document {
	return &Document{}
}

// FindMacro returns the macro record with the given name.
func (d *Document) FindMacro(name string) *Macro {
	for i := range d.Macros {
		if d.Macros[i].Name == name {
			return &d.Macros[i]
		}
	}
	return nil
}
