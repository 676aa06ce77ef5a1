package alarmhub

import "alarmbridge/lib/jsondoc"

// Partition is an armable security partition of a system.
type Partition struct {
	ID                string
	Name              string
	PartitionID       int
	HasState          bool
	State             int
	DesiredState      int
	ManagedDeviceType int
	DeviceModelID     string
	IsMalfunctioning  bool
	LowBattery        bool
	CriticalBattery   bool
}

func (p *Partition) EntityID() string     { return p.ID }
func (p *Partition) AcceptedType() string { return "devices/partition" }
func (p *Partition) Endpoint() string     { return "devices/partitions" }

func (p *Partition) Fill(doc *jsondoc.Document, _ *Session) error {
	p.ID = doc.ID
	p.Name = doc.String("description")
	p.PartitionID = doc.Int("partitionId")
	p.State = doc.Int("state")
	p.DesiredState = doc.Int("desiredState")
	p.ManagedDeviceType = doc.Int("managedDeviceType")
	p.HasState = doc.Bool("hasState")
	p.IsMalfunctioning = doc.Bool("isMalfunctioning")
	p.DeviceModelID = doc.String("deviceModelId")
	p.LowBattery = doc.Bool("lowBattery")
	p.CriticalBattery = doc.Bool("criticalBattery")
	return nil
}

// Sensor is a monitored device reporting a state to a system.
type Sensor struct {
	ID                string
	Name              string
	HasState          bool
	State             int
	StateText         string
	ManagedDeviceType int
	DeviceModelID     string
	IsMalfunctioning  bool
	LowBattery        bool
	CriticalBattery   bool
}

func (se *Sensor) EntityID() string     { return se.ID }
func (se *Sensor) AcceptedType() string { return "devices/sensor" }
func (se *Sensor) Endpoint() string     { return "devices/sensors" }

func (se *Sensor) Fill(doc *jsondoc.Document, _ *Session) error {
	se.ID = doc.ID
	se.Name = doc.String("description")
	se.StateText = doc.String("stateText")
	se.HasState = doc.Bool("hasState")
	se.State = doc.Int("state")
	se.ManagedDeviceType = doc.Int("managedDeviceType")
	se.DeviceModelID = doc.String("deviceModelId")
	se.IsMalfunctioning = doc.Bool("isMalfunctioning")
	se.LowBattery = doc.Bool("lowBattery")
	se.CriticalBattery = doc.Bool("criticalBattery")
	return nil
}
