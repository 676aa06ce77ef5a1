package alarmhub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"alarmbridge/lib/jsondoc"
)

// state table keys remembering the selected-context across calls
const (
	stateSelectedSystem    = "selected-system"
	stateSelectedUnit      = "selected-unit"
	stateSelectedSystemSet = "selected-system-set"
)

// Identities lists the identity records of the logged-in account. Exempt
// from the MFA gate so login and challenge handling can use it.
func (s *Session) Identities(ctx context.Context) ([]*Identity, error) {
	return GetMany[Identity](ctx, s, nil, Request{SkipMfaGate: true})
}

// GetDealer fetches a dealer by id.
func (s *Session) GetDealer(ctx context.Context, id string) (*Dealer, error) {
	return GetOne[Dealer](ctx, s, Request{ID: id})
}

// GetSystem fetches a system by id.
func (s *Session) GetSystem(ctx context.Context, id string) (*System, error) {
	return GetOne[System](ctx, s, Request{ID: id})
}

// GetSystems fetches systems by id.
func (s *Session) GetSystems(ctx context.Context, ids []string) ([]*System, error) {
	return GetMany[System](ctx, s, ids, Request{})
}

// GetUser fetches a user of the currently selected system by id.
func (s *Session) GetUser(ctx context.Context, id string) (*User, error) {
	return GetOne[User](ctx, s, Request{ID: id})
}

// GetUsers fetches users of the currently selected system by id.
func (s *Session) GetUsers(ctx context.Context, ids []string) ([]*User, error) {
	return GetMany[User](ctx, s, ids, Request{})
}

func (s *Session) selectedSystemKnown() bool {
	return s.State(stateSelectedSystemSet) == "1"
}

func (s *Session) recordSelectedSystem(ctx context.Context, id string) {
	s.SetState(stateSelectedSystem, id)
	s.SetState(stateSelectedUnit, "")
	if id != "" {
		sys, err := s.GetSystem(ctx, id)
		if err == nil && sys != nil {
			s.SetState(stateSelectedUnit, sys.UnitID)
		}
	}
	s.SetState(stateSelectedSystemSet, "1")
}

// AvailableSystems lists the account's system selector entries and records
// which one the portal reports as selected.
func (s *Session) AvailableSystems(ctx context.Context) ([]*AvailableSystem, error) {
	items, err := GetMany[AvailableSystem](ctx, s, nil, Request{})
	if err != nil {
		return nil, err
	}
	selected := ""
	for _, item := range items {
		if item.IsSelected {
			selected = item.ID
			break
		}
	}
	s.recordSelectedSystem(ctx, selected)
	return items, nil
}

// SelectedSystem returns the id of the currently selected system, fetching
// the selector once when it has not been seen yet. refresh forces a
// re-fetch.
func (s *Session) SelectedSystem(ctx context.Context, refresh bool) (string, error) {
	if refresh || !s.selectedSystemKnown() {
		if _, err := s.AvailableSystems(ctx); err != nil {
			return "", err
		}
	}
	return s.State(stateSelectedSystem), nil
}

// SelectedUnitID returns the unit id of the currently selected system.
func (s *Session) SelectedUnitID(ctx context.Context, refresh bool) (string, error) {
	if refresh || !s.selectedSystemKnown() {
		if _, err := s.AvailableSystems(ctx); err != nil {
			return "", err
		}
	}
	return s.State(stateSelectedUnit), nil
}

// SelectSystem makes the given system the session's selected one and
// refreshes the recorded selection state.
func (s *Session) SelectSystem(ctx context.Context, id string) error {
	s.recordSelectedSystem(ctx, "")
	_, err := s.Post(ctx, "systems/availableSystemItems", nil, Request{
		ID:      id,
		Command: "selectSystemOrGroup",
	})
	if err != nil {
		return err
	}
	_, err = s.AvailableSystems(ctx)
	return err
}

// UserQuery filters a paginated user listing.
type UserQuery struct {
	// StartIndex < 0 loads everything; >= 0 loads a single batch at that
	// offset.
	StartIndex        int
	BatchSize         int
	IncludeChildScope bool
	SearchString      string
	SortByAccess      bool
}

func (q UserQuery) filters() []string {
	return []string{
		"includeChildScope", strconv.FormatBool(q.IncludeChildScope),
		"searchString", q.SearchString,
		"sortByAccess", strconv.FormatBool(q.SortByAccess),
	}
}

// FetchUsers lists the users of the currently selected system. With a
// negative StartIndex the whole listing is walked batch by batch.
func (s *Session) FetchUsers(ctx context.Context, q UserQuery) ([]*User, error) {
	if q.StartIndex >= 0 {
		batchSize := q.BatchSize
		if batchSize < minBatchSize {
			batchSize = minBatchSize
		}
		if batchSize > maxBatchSize {
			batchSize = maxBatchSize
		}
		query := append([]string{
			"batchSize", strconv.Itoa(batchSize),
			"startIndex", strconv.Itoa(q.StartIndex),
		}, q.filters()...)
		return GetMany[User](ctx, s, nil, Request{Query: query})
	}
	return FetchPages[User](ctx, s, Page{
		BatchSize: q.BatchSize,
		Query:     q.filters(),
	})
}

// AddEmailToUser attaches a notification email address to a user,
// re-selecting the system the user was loaded from when necessary. Adding
// an address the user already has returns the existing record.
func (s *Session) AddEmailToUser(ctx context.Context, user *User, address string, htmlFormat bool) (*EmailAddress, error) {
	if user == nil {
		return nil, fmt.Errorf("user cannot be nil")
	}
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("email address cannot be blank")
	}

	selected, err := s.SelectedSystem(ctx, false)
	if err != nil {
		return nil, err
	}
	if selected != user.LoadedFromSystemID {
		if err := s.SelectSystem(ctx, user.LoadedFromSystemID); err != nil {
			return nil, fmt.Errorf("failed to select the system the user was loaded from: %w", err)
		}
	}

	reload, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if reload == nil {
		return nil, fmt.Errorf("%w: user %s", ErrRelatedNotFound, user.ID)
	}
	if err := ResolveMany(ctx, s, []*User{reload}, UserEmailAddresses, nil); err != nil {
		return nil, err
	}
	for _, email := range reload.EmailAddresses {
		if strings.EqualFold(email.Address, address) {
			return email, nil
		}
	}

	format := 0
	if htmlFormat {
		format = 1
	}
	body := map[string]any{
		"address":            address,
		"addressType":        2,
		"canBeDeleted":       true,
		"canBeEdited":        true,
		"canBeEnabled":       true,
		"emailSendingFormat": format,
		"enabled":            true,
		"invalid":            false,
		"type":               (&EmailAddress{}).AcceptedType(),
		"user": map[string]string{
			"id":   user.ID,
			"type": (&User{}).AcceptedType(),
		},
	}

	res, err := s.Post(ctx, (&EmailAddress{}).Endpoint(), body, Request{})
	if err != nil {
		return nil, err
	}
	var env jsondoc.One
	if err := json.Unmarshal(res, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: empty create response", ErrMalformedResponse)
	}
	created := &EmailAddress{}
	if err := fill[EmailAddress](s, created, env.Data); err != nil {
		return nil, err
	}
	return created, nil
}
