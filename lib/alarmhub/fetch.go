package alarmhub

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"alarmbridge/lib/jsondoc"
)

// server-imposed limit on ids[] per request
const maxIDsPerRequest = 20

// Entity is implemented by every typed portal entity. AcceptedType is the
// exact document type tag the entity maps from; Endpoint is the API
// collection it is fetched from.
type Entity interface {
	EntityID() string
	AcceptedType() string
	Endpoint() string
	Fill(doc *jsondoc.Document, s *Session) error
}

// entityPtr constrains a type parameter to pointer-receiver entities so the
// generic fetchers can allocate and fill values directly.
type entityPtr[T any] interface {
	*T
	Entity
}

// fetchOne retrieves a single-document envelope. A null data member yields
// a nil document without error.
func (s *Session) fetchOne(ctx context.Context, endpoint string, req Request) (*jsondoc.Document, jsondoc.Meta, error) {
	body, err := s.Get(ctx, endpoint, req)
	if err != nil {
		return nil, nil, err
	}
	var env jsondoc.One
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return env.Data, env.Meta, nil
}

// fetchMany retrieves a document-list envelope. When ids are given they are
// sent as ids[] query parameters in chunks of at most maxIDsPerRequest;
// chunk results are concatenated and their meta merged.
func (s *Session) fetchMany(ctx context.Context, endpoint string, ids []string, req Request) ([]*jsondoc.Document, jsondoc.Meta, error) {
	if len(ids) == 0 {
		body, err := s.Get(ctx, endpoint, req)
		if err != nil {
			return nil, nil, err
		}
		var env jsondoc.Many
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return env.Data, env.Meta, nil
	}

	var docs []*jsondoc.Document
	meta := jsondoc.Meta{}
	for len(ids) > 0 {
		n := min(len(ids), maxIDsPerRequest)
		chunk := ids[:n]
		ids = ids[n:]

		query := make([]string, 0, len(chunk)*2+len(req.Query))
		for _, id := range chunk {
			query = append(query, "ids[]", id)
		}
		query = append(query, req.Query...)

		body, err := s.Get(ctx, endpoint, Request{
			Command:       req.Command,
			Query:         query,
			SkipLoginGate: req.SkipLoginGate,
			SkipMfaGate:   req.SkipMfaGate,
		})
		if err != nil {
			return nil, nil, err
		}
		var env jsondoc.Many
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		docs = append(docs, env.Data...)
		meta.Merge(env.Meta)
	}
	return docs, meta, nil
}

// GetOne fetches and maps a single entity. Returns (nil, nil) when the
// portal responds with a null document.
func GetOne[T any, P entityPtr[T]](ctx context.Context, s *Session, req Request) (*T, error) {
	var probe T
	doc, _, err := s.fetchOne(ctx, P(&probe).Endpoint(), req)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	out := new(T)
	if err := fill[T, P](s, out, doc); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMany fetches and maps a batch of entities.
func GetMany[T any, P entityPtr[T]](ctx context.Context, s *Session, ids []string, req Request) ([]*T, error) {
	out, _, err := GetManyMeta[T, P](ctx, s, ids, req)
	return out, err
}

// GetManyMeta fetches and maps a batch of entities along with the response
// metadata of the batch. Every returned document's type tag must match the
// entity's accepted tag; mismatches aggregate the distinct offending tags
// into a single error and nothing is mapped.
func GetManyMeta[T any, P entityPtr[T]](ctx context.Context, s *Session, ids []string, req Request) ([]*T, jsondoc.Meta, error) {
	var probe T
	accepted := P(&probe).AcceptedType()

	docs, meta, err := s.fetchMany(ctx, P(&probe).Endpoint(), ids, req)
	if err != nil {
		return nil, nil, err
	}

	seen := map[string]bool{}
	var offending []string
	for _, doc := range docs {
		if doc.Type != accepted && !seen[doc.Type] {
			seen[doc.Type] = true
			offending = append(offending, doc.Type)
		}
	}
	if len(offending) > 0 {
		sort.Strings(offending)
		return nil, nil, fmt.Errorf("%w: %q does not accept: %s",
			ErrTypeMismatch, accepted, strings.Join(offending, ", "))
	}

	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		item := new(T)
		if err := fill[T, P](s, item, doc); err != nil {
			return nil, nil, err
		}
		out = append(out, item)
	}
	return out, meta, nil
}

func fill[T any, P entityPtr[T]](s *Session, out *T, doc *jsondoc.Document) error {
	p := P(out)
	if doc.Type != p.AcceptedType() {
		return fmt.Errorf("%w: %q does not accept %q", ErrTypeMismatch, p.AcceptedType(), doc.Type)
	}
	return p.Fill(doc, s)
}
