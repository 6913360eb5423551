package types

// Param is one named parameter and its values in first-seen order.
type Param struct {
	Name   string
	Values []string
}

// Params is an ordered multi-valued parameter map. Names are unique; order of
// names is insertion order. The zero value is an empty map ready to use.
type Params []Param

// Add appends value to name, creating the entry on first use.
func (p *Params) Add(name, value string) {
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Values = append((*p)[i].Values, value)
			return
		}
	}
	*p = append(*p, Param{Name: name, Values: []string{value}})
}

// Set replaces the values of name, keeping its original position if present.
func (p *Params) Set(name string, values []string) {
	vs := append([]string(nil), values...)
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Values = vs
			return
		}
	}
	*p = append(*p, Param{Name: name, Values: vs})
}

// Get returns the values of name, or nil.
func (p Params) Get(name string) []string {
	for _, param := range p {
		if param.Name == name {
			return param.Values
		}
	}
	return nil
}

// Has reports whether name is present.
func (p Params) Has(name string) bool {
	for _, param := range p {
		if param.Name == name {
			return true
		}
	}
	return false
}

// Names returns parameter names in insertion order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for _, param := range p {
		names = append(names, param.Name)
	}
	return names
}

// Clone returns a deep copy so callers can mutate without touching shared rule data.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for i, param := range p {
		out[i] = Param{Name: param.Name, Values: append([]string(nil), param.Values...)}
	}
	return out
}
