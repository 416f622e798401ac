package schema

import "sort"

// SchemaStats summarises a schema
type SchemaStats struct {
	Tables        int
	Fields        int
	Relationships int // explicit relationships only
	ForeignKeys   int // fields carrying a reference
	PrimaryKeys   int
	UniqueFields  int
	NotNullFields int
	FieldTypes    map[string]int
}

// TypeCount is one entry of the field type histogram
type TypeCount struct {
	Type  string
	Count int
}

// Stats computes counts over s
func Stats(s Schema) SchemaStats {
	st := SchemaStats{
		Tables:        len(s.Tables),
		Relationships: len(s.Relationships),
		FieldTypes:    make(map[string]int),
	}
	for _, t := range s.Tables {
		st.Fields += len(t.Fields)
		for _, f := range t.Fields {
			if f.PK {
				st.PrimaryKeys++
			}
			if f.References != nil {
				st.ForeignKeys++
			}
			if f.Unique {
				st.UniqueFields++
			}
			if f.NotNull {
				st.NotNullFields++
			}
			st.FieldTypes[f.Type]++
		}
	}
	return st
}

// SortedTypes returns the type histogram, most used first, ties by name
func (st SchemaStats) SortedTypes() []TypeCount {
	out := make([]TypeCount, 0, len(st.FieldTypes))
	for t, n := range st.FieldTypes {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}
