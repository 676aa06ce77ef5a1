package alarmhub

import (
	"fmt"
	"strings"

	"alarmbridge/lib/jsondoc"
)

// User is a person with access to the currently selected system.
type User struct {
	ID             string
	FirstName      string
	LastName       string
	UseOnlyOneName bool
	IsPrimary      bool
	UserType       int
	IsEnterprise   bool
	IsPaused       bool

	EmailAddressIDs []string
	EmailAddresses  []*EmailAddress

	DeviceAccessIDs []string
	DeviceAccesses  []*DeviceAccess

	// the system that was selected when this user was loaded
	LoadedFromSystemID string
}

// Name renders the display name the portal shows for the user.
func (u *User) Name() string {
	if u.UseOnlyOneName {
		return u.LastName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) EntityID() string     { return u.ID }
func (u *User) AcceptedType() string { return "users/user" }
func (u *User) Endpoint() string     { return "users/users" }

func (u *User) Fill(doc *jsondoc.Document, s *Session) error {
	u.ID = doc.ID
	u.FirstName = doc.String("firstName")
	u.LastName = doc.String("lastName")
	u.UseOnlyOneName = doc.Bool("useOnlyOneName")
	u.IsPrimary = doc.Bool("isPrimary")
	u.UserType = doc.Int("userType")
	u.IsEnterprise = doc.Bool("isEnterprise")
	u.IsPaused = doc.Bool("isPaused")
	u.EmailAddressIDs = doc.RelIDs("emailAddresses")
	u.DeviceAccessIDs = doc.RelIDs("deviceAccess")
	u.LoadedFromSystemID = s.State(stateSelectedSystem)
	return nil
}

// UserEmailAddresses binds User.EmailAddresses to the EmailAddressIDs
// foreign keys.
var UserEmailAddresses = NavMany[User, EmailAddress]{
	Name: "EmailAddresses",
	FKs:  func(u *User) []string { return u.EmailAddressIDs },
	Set:  func(u *User, es []*EmailAddress) { u.EmailAddresses = es },
}

// UserDeviceAccesses binds User.DeviceAccesses to the DeviceAccessIDs
// foreign keys.
var UserDeviceAccesses = NavMany[User, DeviceAccess]{
	Name: "DeviceAccesses",
	FKs:  func(u *User) []string { return u.DeviceAccessIDs },
	Set:  func(u *User, ds []*DeviceAccess) { u.DeviceAccesses = ds },
}

// EmailAddress is a notification address attached to a user.
type EmailAddress struct {
	ID            string
	Address       string
	AddressType   int
	SendingFormat int
	Enabled       bool
	Invalid       bool
}

func (e *EmailAddress) EntityID() string     { return e.ID }
func (e *EmailAddress) AcceptedType() string { return "users/email-address" }
func (e *EmailAddress) Endpoint() string     { return "users/emailAddresses" }

func (e *EmailAddress) Fill(doc *jsondoc.Document, _ *Session) error {
	e.ID = doc.ID
	e.Address = doc.String("address")
	e.AddressType = doc.Int("addressType")
	e.SendingFormat = doc.Int("emailSendingFormat")
	e.Enabled = doc.Bool("enabled")
	e.Invalid = doc.Bool("invalid")
	return nil
}

// DeviceAccess describes what a user may do on the system's access points.
type DeviceAccess struct {
	ID              string
	UserCode        string
	IsAccessPaused  bool
	IsAllAccessUser bool

	AccessPointCollectionIDs []string
	AccessPointCollections   []*AccessPointSummary

	UserIDs []string
	Users   []*User
}

func (d *DeviceAccess) EntityID() string     { return d.ID }
func (d *DeviceAccess) AcceptedType() string { return "users/access/device-access" }
func (d *DeviceAccess) Endpoint() string     { return "users/access/deviceAccesses" }

func (d *DeviceAccess) Fill(doc *jsondoc.Document, _ *Session) error {
	d.ID = doc.ID
	d.UserCode = doc.String("userCode")
	d.IsAccessPaused = doc.Bool("isAccessPaused")
	d.IsAllAccessUser = doc.Bool("isAllAccessUser")
	d.AccessPointCollectionIDs = doc.RelIDs("accessPointCollectionsSummary")
	d.UserIDs = doc.RelIDs("user")
	return nil
}

// DeviceAccessPointCollections binds DeviceAccess.AccessPointCollections to
// the AccessPointCollectionIDs foreign keys.
var DeviceAccessPointCollections = NavMany[DeviceAccess, AccessPointSummary]{
	Name: "AccessPointCollections",
	FKs:  func(d *DeviceAccess) []string { return d.AccessPointCollectionIDs },
	Set:  func(d *DeviceAccess, as []*AccessPointSummary) { d.AccessPointCollections = as },
}

// AccessPointSummary summarizes the partitions a device access grants
// entry to, scoped to the currently selected system.
type AccessPointSummary struct {
	ID                 string
	CannotUseSchedules bool
	IsAllAccessUser    bool

	PartitionIDs []string
	Partitions   []*Partition
}

func (a *AccessPointSummary) EntityID() string { return a.ID }
func (a *AccessPointSummary) AcceptedType() string {
	return "users/access/access-point-collections-summary"
}
func (a *AccessPointSummary) Endpoint() string {
	return "users/access/accessPointCollectionsSummaries"
}

type accessPointItem struct {
	DeviceID  int  `json:"deviceId"`
	HasAccess bool `json:"hasAccess"`
}

type accessPointCollection struct {
	AccessPointItems []accessPointItem `json:"accessPointItems"`
}

func (a *AccessPointSummary) Fill(doc *jsondoc.Document, s *Session) error {
	a.ID = doc.ID
	a.CannotUseSchedules = doc.Bool("cannotUseSchedules")
	a.IsAllAccessUser = doc.Bool("isAllAccessUser")

	groups, err := jsondoc.AttrAs[map[string][]accessPointCollection](doc, "groupsAccessPointCollections")
	if err != nil {
		return fmt.Errorf("%w: groupsAccessPointCollections: %v", ErrMalformedResponse, err)
	}

	a.PartitionIDs = []string{}
	colls, ok := groups[s.State(stateSelectedSystem)]
	if !ok {
		return nil
	}
	unitID := s.State(stateSelectedUnit)
	for _, coll := range colls {
		for _, item := range coll.AccessPointItems {
			if !item.HasAccess {
				continue
			}
			a.PartitionIDs = append(a.PartitionIDs, fmt.Sprintf("%s-%d", unitID, item.DeviceID))
		}
	}
	return nil
}

// AccessPointPartitions binds AccessPointSummary.Partitions to the
// PartitionIDs derived during fill.
var AccessPointPartitions = NavMany[AccessPointSummary, Partition]{
	Name: "Partitions",
	FKs:  func(a *AccessPointSummary) []string { return a.PartitionIDs },
	Set:  func(a *AccessPointSummary, ps []*Partition) { a.Partitions = ps },
}
