package schema

// Edit is a discrete change to a Schema. Edits are plain values; Reduce
// interprets them.
type Edit interface {
	EditType() string
}

// AddField appends Field to the table named TableName
type AddField struct {
	TableName string
	Field     Field
}

// RemoveField drops the field FieldName from the table TableName
type RemoveField struct {
	TableName string
	FieldName string
}

// UpdateField replaces the field of TableName that has the same name as Field
type UpdateField struct {
	TableName string
	Field     Field
}

// RenameField renames a field and every endpoint that points at it
type RenameField struct {
	TableName    string
	OldFieldName string
	NewFieldName string
}

// AddTable appends Table to the schema
type AddTable struct {
	Table Table
}

// RemoveTable drops a table together with every relationship touching it
type RemoveTable struct {
	TableName string
}

// UpdateTable replaces the table that has the same name as Table
type UpdateTable struct {
	Table Table
}

// RenameTable renames a table and every endpoint that points at it
type RenameTable struct {
	OldTableName string
	NewTableName string
}

// AddRelationship appends an explicit relationship
type AddRelationship struct {
	Relationship Relationship
}

// RemoveRelationship drops every relationship with the same endpoints as Relationship
type RemoveRelationship struct {
	Relationship Relationship
}

// UpdateRelationship replaces every relationship with the same endpoints as Old
type UpdateRelationship struct {
	Old Relationship
	New Relationship
}

const (
	EditAddField           = "ADD_FIELD"
	EditRemoveField        = "REMOVE_FIELD"
	EditUpdateField        = "UPDATE_FIELD"
	EditRenameField        = "RENAME_FIELD"
	EditAddTable           = "ADD_TABLE"
	EditRemoveTable        = "REMOVE_TABLE"
	EditUpdateTable        = "UPDATE_TABLE"
	EditRenameTable        = "RENAME_TABLE"
	EditAddRelationship    = "ADD_RELATIONSHIP"
	EditRemoveRelationship = "REMOVE_RELATIONSHIP"
	EditUpdateRelationship = "UPDATE_RELATIONSHIP"
)

func (AddField) EditType() string           { return EditAddField }
func (RemoveField) EditType() string        { return EditRemoveField }
func (UpdateField) EditType() string        { return EditUpdateField }
func (RenameField) EditType() string        { return EditRenameField }
func (AddTable) EditType() string           { return EditAddTable }
func (RemoveTable) EditType() string        { return EditRemoveTable }
func (UpdateTable) EditType() string        { return EditUpdateTable }
func (RenameTable) EditType() string        { return EditRenameTable }
func (AddRelationship) EditType() string    { return EditAddRelationship }
func (RemoveRelationship) EditType() string { return EditRemoveRelationship }
func (UpdateRelationship) EditType() string { return EditUpdateRelationship }

// Reduce returns the schema that results from applying e to s.
// s is never modified: every slice that changes is copied first, so the
// returned value shares no mutable state with s along the edited path.
// A nil or unrecognised edit returns s unchanged.
func Reduce(s Schema, e Edit) Schema {
	switch e := e.(type) {
	case AddField:
		s.Tables = mapTables(s.Tables, e.TableName, func(t Table) Table {
			t.Fields = append(cloneFields(t.Fields), e.Field)
			return t
		})
	case RemoveField:
		s.Tables = mapTables(s.Tables, e.TableName, func(t Table) Table {
			kept := make([]Field, 0, len(t.Fields))
			for _, f := range t.Fields {
				if f.Name != e.FieldName {
					kept = append(kept, f)
				}
			}
			t.Fields = kept
			return t
		})
	case UpdateField:
		s.Tables = mapTables(s.Tables, e.TableName, func(t Table) Table {
			t.Fields = cloneFields(t.Fields)
			for i := range t.Fields {
				if t.Fields[i].Name == e.Field.Name {
					t.Fields[i] = e.Field
				}
			}
			return t
		})
	case RenameField:
		old := Endpoint{Table: e.TableName, Field: e.OldFieldName}
		renamed := Endpoint{Table: e.TableName, Field: e.NewFieldName}
		s.Tables = mapTables(s.Tables, e.TableName, func(t Table) Table {
			t.Fields = cloneFields(t.Fields)
			for i := range t.Fields {
				if t.Fields[i].Name == e.OldFieldName {
					t.Fields[i].Name = e.NewFieldName
				}
			}
			return t
		})
		s.Tables = rewriteReferences(s.Tables, func(ref Endpoint) Endpoint {
			if ref == old {
				return renamed
			}
			return ref
		})
		s.Relationships = mapEndpoints(s.Relationships, func(ep Endpoint) Endpoint {
			if ep == old {
				return renamed
			}
			return ep
		})
	case AddTable:
		s.Tables = append(cloneTables(s.Tables), e.Table)
	case RemoveTable:
		kept := make([]Table, 0, len(s.Tables))
		for _, t := range s.Tables {
			if t.Name != e.TableName {
				kept = append(kept, t)
			}
		}
		s.Tables = dropReferencesTo(kept, e.TableName)
		s.Relationships = filterRelationships(s.Relationships, func(r Relationship) bool {
			return r.From.Table != e.TableName && r.To.Table != e.TableName
		})
	case UpdateTable:
		s.Tables = mapTables(s.Tables, e.Table.Name, func(Table) Table {
			return e.Table
		})
	case RenameTable:
		s.Tables = mapTables(s.Tables, e.OldTableName, func(t Table) Table {
			t.Name = e.NewTableName
			return t
		})
		retable := func(ep Endpoint) Endpoint {
			if ep.Table == e.OldTableName {
				ep.Table = e.NewTableName
			}
			return ep
		}
		s.Tables = rewriteReferences(s.Tables, retable)
		s.Relationships = mapEndpoints(s.Relationships, retable)
	case AddRelationship:
		s.Relationships = append(cloneRelationships(s.Relationships), e.Relationship)
	case RemoveRelationship:
		s.Relationships = filterRelationships(s.Relationships, func(r Relationship) bool {
			return !r.SameEndpoints(e.Relationship)
		})
	case UpdateRelationship:
		if s.Relationships == nil {
			return s
		}
		rels := cloneRelationships(s.Relationships)
		for i := range rels {
			if rels[i].SameEndpoints(e.Old) {
				rels[i] = e.New
			}
		}
		s.Relationships = rels
	}
	return s
}

// ReduceAll applies edits in order
func ReduceAll(s Schema, edits ...Edit) Schema {
	for _, e := range edits {
		s = Reduce(s, e)
	}
	return s
}

// mapTables copies tables, replacing every table called name with fn(table)
func mapTables(tables []Table, name string, fn func(Table) Table) []Table {
	out := cloneTables(tables)
	for i := range out {
		if out[i].Name == name {
			out[i] = fn(out[i])
		}
	}
	return out
}

// rewriteReferences copies tables whose field references change under fn
func rewriteReferences(tables []Table, fn func(Endpoint) Endpoint) []Table {
	out := cloneTables(tables)
	for i := range out {
		var fields []Field
		for j, f := range out[i].Fields {
			if f.References == nil {
				continue
			}
			next := fn(*f.References)
			if next == *f.References {
				continue
			}
			if fields == nil {
				fields = cloneFields(out[i].Fields)
			}
			fields[j].References = &next
		}
		if fields != nil {
			out[i].Fields = fields
		}
	}
	return out
}

// dropReferencesTo clears every field reference that points into table
func dropReferencesTo(tables []Table, table string) []Table {
	out := cloneTables(tables)
	for i := range out {
		var fields []Field
		for j, f := range out[i].Fields {
			if f.References == nil || f.References.Table != table {
				continue
			}
			if fields == nil {
				fields = cloneFields(out[i].Fields)
			}
			fields[j].References = nil
		}
		if fields != nil {
			out[i].Fields = fields
		}
	}
	return out
}

func mapEndpoints(rels []Relationship, fn func(Endpoint) Endpoint) []Relationship {
	if rels == nil {
		return nil
	}
	out := make([]Relationship, len(rels))
	for i, r := range rels {
		r.From = fn(r.From)
		r.To = fn(r.To)
		out[i] = r
	}
	return out
}

func filterRelationships(rels []Relationship, keep func(Relationship) bool) []Relationship {
	if rels == nil {
		return nil
	}
	out := make([]Relationship, 0, len(rels))
	for _, r := range rels {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func cloneTables(tables []Table) []Table {
	out := make([]Table, len(tables), len(tables)+1)
	copy(out, tables)
	return out
}

func cloneFields(fields []Field) []Field {
	out := make([]Field, len(fields), len(fields)+1)
	copy(out, fields)
	return out
}

func cloneRelationships(rels []Relationship) []Relationship {
	out := make([]Relationship, len(rels), len(rels)+1)
	copy(out, rels)
	return out
}
