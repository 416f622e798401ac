package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// ErrUnknownEdit is returned when an edit script names an edit type that does not exist
var ErrUnknownEdit = errors.New("unknown edit type")

// Parse decodes a schema document written as JSON or YAML. Unknown keys are
// rejected.
func Parse(data []byte) (Schema, error) {
	var s Schema
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return Schema{}, fmt.Errorf("failed to parse schema document: %w", err)
		}
		return s, nil
	}
	if err := yaml.UnmarshalWithOptions(data, &s, yaml.Strict()); err != nil {
		return Schema{}, fmt.Errorf("failed to parse schema document: %w", err)
	}
	return s, nil
}

// Marshal encodes s as YAML
func Marshal(s Schema) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema document: %w", err)
	}
	return data, nil
}

// editDocument is the wire shape of one entry of an edit script
type editDocument struct {
	Type         string        `json:"type" yaml:"type"`
	TableName    string        `json:"tableName,omitempty" yaml:"tableName,omitempty"`
	FieldName    string        `json:"fieldName,omitempty" yaml:"fieldName,omitempty"`
	OldFieldName string        `json:"oldFieldName,omitempty" yaml:"oldFieldName,omitempty"`
	NewFieldName string        `json:"newFieldName,omitempty" yaml:"newFieldName,omitempty"`
	OldTableName string        `json:"oldTableName,omitempty" yaml:"oldTableName,omitempty"`
	NewTableName string        `json:"newTableName,omitempty" yaml:"newTableName,omitempty"`
	Field        *Field        `json:"field,omitempty" yaml:"field,omitempty"`
	Table        *Table        `json:"table,omitempty" yaml:"table,omitempty"`
	Relationship *Relationship `json:"relationship,omitempty" yaml:"relationship,omitempty"`
	OldRel       *Relationship `json:"oldRel,omitempty" yaml:"oldRel,omitempty"`
	NewRel       *Relationship `json:"newRel,omitempty" yaml:"newRel,omitempty"`
}

// DecodeEdits parses an edit script: a YAML or JSON list of
// {type: ADD_FIELD, tableName: ..., field: {...}} entries.
func DecodeEdits(data []byte) ([]Edit, error) {
	var docs []editDocument
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("failed to parse edit script: %w", err)
		}
	} else if err := yaml.UnmarshalWithOptions(data, &docs, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse edit script: %w", err)
	}

	edits := make([]Edit, 0, len(docs))
	for i, d := range docs {
		e, err := d.edit()
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
		edits = append(edits, e)
	}
	return edits, nil
}

func (d editDocument) edit() (Edit, error) {
	switch d.Type {
	case EditAddField:
		if d.Field == nil {
			return nil, fmt.Errorf("%s requires field", d.Type)
		}
		return AddField{TableName: d.TableName, Field: *d.Field}, nil
	case EditRemoveField:
		return RemoveField{TableName: d.TableName, FieldName: d.FieldName}, nil
	case EditUpdateField:
		if d.Field == nil {
			return nil, fmt.Errorf("%s requires field", d.Type)
		}
		return UpdateField{TableName: d.TableName, Field: *d.Field}, nil
	case EditRenameField:
		return RenameField{TableName: d.TableName, OldFieldName: d.OldFieldName, NewFieldName: d.NewFieldName}, nil
	case EditAddTable:
		if d.Table == nil {
			return nil, fmt.Errorf("%s requires table", d.Type)
		}
		return AddTable{Table: *d.Table}, nil
	case EditRemoveTable:
		return RemoveTable{TableName: d.TableName}, nil
	case EditUpdateTable:
		if d.Table == nil {
			return nil, fmt.Errorf("%s requires table", d.Type)
		}
		return UpdateTable{Table: *d.Table}, nil
	case EditRenameTable:
		return RenameTable{OldTableName: d.OldTableName, NewTableName: d.NewTableName}, nil
	case EditAddRelationship:
		if d.Relationship == nil {
			return nil, fmt.Errorf("%s requires relationship", d.Type)
		}
		return AddRelationship{Relationship: *d.Relationship}, nil
	case EditRemoveRelationship:
		if d.Relationship == nil {
			return nil, fmt.Errorf("%s requires relationship", d.Type)
		}
		return RemoveRelationship{Relationship: *d.Relationship}, nil
	case EditUpdateRelationship:
		if d.OldRel == nil || d.NewRel == nil {
			return nil, fmt.Errorf("%s requires oldRel and newRel", d.Type)
		}
		return UpdateRelationship{Old: *d.OldRel, New: *d.NewRel}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEdit, d.Type)
	}
}
