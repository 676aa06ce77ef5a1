// Package jsondoc implements the generic resource document format used by
// the portal API: every entity arrives as {id, type, attributes,
// relationships} and ids may be encoded as JSON numbers or strings.
package jsondoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Ref points at a related document.
type Ref struct {
	ID   string
	Type string
}

type refWire struct {
	ID   json.RawMessage `json:"id"`
	Type string          `json:"type"`
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	var wire refWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id, err := decodeID(wire.ID)
	if err != nil {
		return err
	}
	r.ID = id
	r.Type = wire.Type
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}{r.ID, r.Type})
}

// RefList is an ordered relationship collection. On the wire the "data" key
// of a relationship may hold null, a single object or an array; decoding
// always yields a slice and encoding mirrors the same ambiguity: nil
// encodes as null, an empty slice as [], one element as a bare object and
// more than one as an array.
type RefList []Ref

func (l *RefList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}
	switch data[0] {
	case '{':
		var one Ref
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = RefList{one}
		return nil
	case '[':
		var many []Ref
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*l = RefList(many)
		return nil
	}
	return fmt.Errorf("jsondoc: relationship data is not null, object or array")
}

func (l RefList) MarshalJSON() ([]byte, error) {
	switch {
	case l == nil:
		return []byte("null"), nil
	case len(l) == 1:
		return json.Marshal(l[0])
	default:
		return json.Marshal([]Ref(l))
	}
}

// IDs returns the ordered id list of the collection.
func (l RefList) IDs() []string {
	ids := make([]string, len(l))
	for i, r := range l {
		ids[i] = r.ID
	}
	return ids
}

// Meta carries out-of-band response metadata, e.g. the total count of a
// paginated listing.
type Meta map[string]any

// Int64 coerces a metadata value that may arrive as a JSON number or a
// numeric string. Returns 0 when absent or unparseable.
func (m Meta) Int64(key string) int64 {
	v, ok := m[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}

// Merge copies the entries of other into m, overwriting existing keys.
func (m Meta) Merge(other Meta) {
	for k, v := range other {
		m[k] = v
	}
}

// Document is the generic wire entity. Type is an opaque namespaced tag
// such as "devices/partition" and must match exactly whatever entity the
// document is mapped into.
type Document struct {
	ID    string
	Type  string
	Attrs map[string]any
	Rels  map[string]RefList
}

type relCollection struct {
	Data RefList `json:"data"`
}

type docWire struct {
	ID            json.RawMessage          `json:"id"`
	Type          string                   `json:"type"`
	Attributes    map[string]any           `json:"attributes"`
	Relationships map[string]relCollection `json:"relationships"`
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var wire docWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id, err := decodeID(wire.ID)
	if err != nil {
		return err
	}
	d.ID = id
	d.Type = wire.Type
	d.Attrs = wire.Attributes
	if len(wire.Relationships) > 0 {
		d.Rels = make(map[string]RefList, len(wire.Relationships))
		for name, coll := range wire.Relationships {
			d.Rels[name] = coll.Data
		}
	} else {
		d.Rels = nil
	}
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	var rels map[string]relCollection
	if len(d.Rels) > 0 {
		rels = make(map[string]relCollection, len(d.Rels))
		for name, list := range d.Rels {
			rels[name] = relCollection{Data: list}
		}
	}
	return json.Marshal(struct {
		ID            string                   `json:"id"`
		Type          string                   `json:"type"`
		Attributes    map[string]any           `json:"attributes,omitempty"`
		Relationships map[string]relCollection `json:"relationships,omitempty"`
	}{d.ID, d.Type, d.Attrs, rels})
}

// One is the single-document response envelope.
type One struct {
	Data *Document `json:"data"`
	Meta Meta      `json:"meta,omitempty"`
}

// Many is the document-list response envelope.
type Many struct {
	Data []*Document `json:"data"`
	Meta Meta        `json:"meta,omitempty"`
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("jsondoc: id is neither string nor number: %w", err)
	}
	return n.String(), nil
}
