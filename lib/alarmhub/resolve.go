package alarmhub

import (
	"context"
	"fmt"
)

// NavOne declares a single-valued navigation from parent P to child C: the
// foreign-key accessor returning the backing id ("" when unset) and the
// setter that receives the resolved child. Bindings are declared statically
// next to the entity instead of being discovered at run time.
type NavOne[P, C any] struct {
	Name string
	FK   func(*P) string
	Set  func(*P, *C)
}

// NavMany declares a collection-valued navigation from parent P to child C.
// The foreign-key accessor returns the ordered backing id list.
type NavMany[P, C any] struct {
	Name string
	FKs  func(*P) []string
	Set  func(*P, []*C)
}

// ResolveOne populates a single-valued navigation on each parent. Foreign
// keys are deduplicated across parents so a child referenced by many
// parents is fetched once (chunked at the server's per-request id limit).
// The fetch must return exactly one child per distinct id; a shortfall
// fails the whole call. Parents with a blank foreign key get a nil child.
// andThen, when non-nil, runs once per fetched child before assignment.
func ResolveOne[P, C any, CP entityPtr[C]](ctx context.Context, s *Session, parents []*P, nav NavOne[P, C], andThen func(*C)) error {
	if nav.Name == "" || nav.FK == nil || nav.Set == nil {
		return fmt.Errorf("%w: NavOne needs Name, FK and Set", ErrNavBinding)
	}
	if len(parents) == 0 {
		return nil
	}

	var ids []string
	seen := map[string]bool{}
	for _, p := range parents {
		id := nav.FK(p)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	byID, err := fetchDistinct[C, CP](ctx, s, ids, nav.Name, andThen)
	if err != nil {
		return err
	}

	for _, p := range parents {
		id := nav.FK(p)
		if id == "" {
			nav.Set(p, nil)
			continue
		}
		child, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %s id %s", ErrRelatedNotFound, nav.Name, id)
		}
		nav.Set(p, child)
	}
	return nil
}

// ResolveMany populates a collection-valued navigation on each parent. The
// assigned slice follows the order of the parent's foreign-key list and is
// empty, never nil, when that list is empty. Deduplication, chunking,
// arity checking and andThen behave as in ResolveOne.
func ResolveMany[P, C any, CP entityPtr[C]](ctx context.Context, s *Session, parents []*P, nav NavMany[P, C], andThen func(*C)) error {
	if nav.Name == "" || nav.FKs == nil || nav.Set == nil {
		return fmt.Errorf("%w: NavMany needs Name, FKs and Set", ErrNavBinding)
	}
	if len(parents) == 0 {
		return nil
	}

	var ids []string
	seen := map[string]bool{}
	for _, p := range parents {
		for _, id := range nav.FKs(p) {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}

	byID, err := fetchDistinct[C, CP](ctx, s, ids, nav.Name, andThen)
	if err != nil {
		return err
	}

	for _, p := range parents {
		fks := nav.FKs(p)
		children := make([]*C, 0, len(fks))
		for _, id := range fks {
			if id == "" {
				continue
			}
			child, ok := byID[id]
			if !ok {
				return fmt.Errorf("%w: %s id %s", ErrRelatedNotFound, nav.Name, id)
			}
			children = append(children, child)
		}
		nav.Set(p, children)
	}
	return nil
}

// fetchDistinct loads the deduplicated id set and indexes the results,
// enforcing that every requested id came back.
func fetchDistinct[C any, CP entityPtr[C]](ctx context.Context, s *Session, ids []string, navName string, andThen func(*C)) (map[string]*C, error) {
	byID := make(map[string]*C, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	children, err := GetMany[C, CP](ctx, s, ids, Request{})
	if err != nil {
		return nil, err
	}
	if len(children) != len(ids) {
		return nil, fmt.Errorf("%w: loaded %d of %d %s values",
			ErrRelatedNotFound, len(children), len(ids), navName)
	}
	for _, child := range children {
		if andThen != nil {
			andThen(child)
		}
		byID[CP(child).EntityID()] = child
	}
	return byID, nil
}
