package jsondoc

import "encoding/json"

// AttrAs decodes a structured attribute (an object or array on the wire)
// into T by re-encoding the raw value. Absent attributes yield the zero
// value without error.
func AttrAs[T any](d *Document, name string) (T, error) {
	var out T
	v := d.Attr(name)
	if v == nil {
		return out, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}
