package alarmhub

import "alarmbridge/lib/jsondoc"

// Identity is the caller's account record, resolved once at login.
type Identity struct {
	ID                     string
	IsEnterprise           bool
	IsAccessControl        bool
	IsCommercial           bool
	IsManagedAccessAccount bool
	AccountType            int

	DealerID string
	Dealer   *Dealer

	SelectedSystemID string
	SelectedSystem   *System
}

func (i *Identity) EntityID() string     { return i.ID }
func (i *Identity) AcceptedType() string { return "identity" }
func (i *Identity) Endpoint() string     { return "identities" }

func (i *Identity) Fill(doc *jsondoc.Document, _ *Session) error {
	i.ID = doc.ID
	i.IsEnterprise = doc.Bool("isEnterprise")
	i.IsAccessControl = doc.Bool("isAccessControl")
	i.IsCommercial = doc.Bool("isCommercial")
	i.IsManagedAccessAccount = doc.Bool("isManagedAccessAccount")
	i.AccountType = doc.Int("accountType")
	i.DealerID = doc.RelID("dealer")
	i.SelectedSystemID = doc.RelID("selectedSystem")
	return nil
}

// IdentityDealer binds Identity.Dealer to its DealerID foreign key.
var IdentityDealer = NavOne[Identity, Dealer]{
	Name: "Dealer",
	FK:   func(i *Identity) string { return i.DealerID },
	Set:  func(i *Identity, d *Dealer) { i.Dealer = d },
}

// IdentitySelectedSystem binds Identity.SelectedSystem to its
// SelectedSystemID foreign key.
var IdentitySelectedSystem = NavOne[Identity, System]{
	Name: "SelectedSystem",
	FK:   func(i *Identity) string { return i.SelectedSystemID },
	Set:  func(i *Identity, s *System) { i.SelectedSystem = s },
}

// Dealer is the monitoring company servicing the account.
type Dealer struct {
	ID             string
	Name           string
	SupportPhone   string
	SupportEmail   string
	SupportWebsite string
}

func (d *Dealer) EntityID() string     { return d.ID }
func (d *Dealer) AcceptedType() string { return "dealers/dealer" }
func (d *Dealer) Endpoint() string     { return "dealers/dealers" }

func (d *Dealer) Fill(doc *jsondoc.Document, _ *Session) error {
	d.ID = doc.ID
	d.Name = doc.String("name")
	d.SupportPhone = doc.String("supportPhone")
	d.SupportEmail = doc.String("supportEmail")
	d.SupportWebsite = doc.String("externalSupportWebsite")
	return nil
}
