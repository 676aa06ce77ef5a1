package alarmhub

import "alarmbridge/lib/jsondoc"

// System is a monitored installation: a panel plus its partitions and
// sensors.
type System struct {
	ID              string
	UnitID          string
	Name            string
	SystemGroupName string

	PartitionIDs []string
	Partitions   []*Partition

	SensorIDs []string
	Sensors   []*Sensor
}

func (s *System) EntityID() string     { return s.ID }
func (s *System) AcceptedType() string { return "systems/system" }
func (s *System) Endpoint() string     { return "systems/systems" }

func (s *System) Fill(doc *jsondoc.Document, _ *Session) error {
	s.ID = doc.ID
	s.Name = doc.String("description")
	s.UnitID = doc.String("unitId")
	s.SystemGroupName = doc.String("systemGroupName")
	s.PartitionIDs = doc.RelIDs("partitions")
	s.SensorIDs = doc.RelIDs("sensors")
	return nil
}

// SystemPartitions binds System.Partitions to the PartitionIDs foreign
// keys.
var SystemPartitions = NavMany[System, Partition]{
	Name: "Partitions",
	FKs:  func(s *System) []string { return s.PartitionIDs },
	Set:  func(s *System, ps []*Partition) { s.Partitions = ps },
}

// SystemSensors binds System.Sensors to the SensorIDs foreign keys.
var SystemSensors = NavMany[System, Sensor]{
	Name: "Sensors",
	FKs:  func(s *System) []string { return s.SensorIDs },
	Set:  func(s *System, ss []*Sensor) { s.Sensors = ss },
}

// AvailableSystem is an entry of the account's system selector.
type AvailableSystem struct {
	ID         string
	Name       string
	IsSelected bool
}

func (a *AvailableSystem) EntityID() string     { return a.ID }
func (a *AvailableSystem) AcceptedType() string { return "systems/availableSystemItem" }
func (a *AvailableSystem) Endpoint() string     { return "systems/availableSystemItems" }

func (a *AvailableSystem) Fill(doc *jsondoc.Document, _ *Session) error {
	a.ID = doc.ID
	a.Name = doc.String("name")
	a.IsSelected = doc.Bool("isSelected")
	return nil
}
