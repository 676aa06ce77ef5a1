package jsondoc

import (
	"fmt"
	"strconv"
)

// Attr returns the raw attribute value or nil when not set.
func (d *Document) Attr(name string) any {
	if d.Attrs == nil {
		return nil
	}
	return d.Attrs[name]
}

// String returns the attribute rendered as a string, "" when absent.
func (d *Document) String(name string) string {
	v := d.Attr(name)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns the attribute as a bool, falling back to string parsing of
// the raw value and then to false.
func (d *Document) Bool(name string) bool {
	v := d.Attr(name)
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	b, err := strconv.ParseBool(fmt.Sprint(v))
	if err != nil {
		return false
	}
	return b
}

// Int returns the attribute as an int, falling back to string parsing of
// the raw value and then to 0.
func (d *Document) Int(name string) int {
	return int(d.Int64(name))
}

// Int64 returns the attribute as an int64, falling back to string parsing
// of the raw value and then to 0.
func (d *Document) Int64(name string) int64 {
	v := d.Attr(name)
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	i, err := strconv.ParseInt(fmt.Sprint(v), 10, 64)
	if err != nil {
		return 0
	}
	return i
}

// Float returns the attribute as a float64, falling back to string parsing
// of the raw value and then to 0.
func (d *Document) Float(name string) float64 {
	v := d.Attr(name)
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	f, err := strconv.ParseFloat(fmt.Sprint(v), 64)
	if err != nil {
		return 0
	}
	return f
}

// Refs returns the named relationship collection, empty when absent.
func (d *Document) Refs(name string) RefList {
	if d.Rels == nil {
		return nil
	}
	return d.Rels[name]
}

// RelIDs returns the ordered ids of the named relationship collection.
func (d *Document) RelIDs(name string) []string {
	return d.Refs(name).IDs()
}

// RelID returns the id of the first entry in the named relationship
// collection, "" when the collection is empty or absent.
func (d *Document) RelID(name string) string {
	refs := d.Refs(name)
	if len(refs) == 0 {
		return ""
	}
	return refs[0].ID
}
