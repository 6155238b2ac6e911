package model

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidDevice is returned when device attributes fail validation.
var ErrInvalidDevice = errors.New("invalid device")

// Status is the power state reported by a device.
type Status string

const (
	StatusOn      Status = "On"
	StatusOff     Status = "Off"
	StatusOffline Status = "Offline"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOn, StatusOff, StatusOffline:
		return true
	}
	return false
}

// Info holds the identification and capability attributes of a device.
type Info struct {
	DeviceID             string
	Name                 string
	Type                 string
	MeasurementMethod    string
	InterruptionsAllowed bool
	MaxPower             int // Watts
	EMSignalsAccepted    bool
	Status               Status
	Vendor               string
	SerialNr             string
	AbsoluteTimestamps   bool
}

// Validate checks that all required attributes are set.
func (i Info) Validate() error {
	required := []struct {
		field, value string
	}{
		{"deviceId", i.DeviceID},
		{"name", i.Name},
		{"type", i.Type},
		{"measurementMethod", i.MeasurementMethod},
		{"vendor", i.Vendor},
		{"serialNr", i.SerialNr},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidDevice, r.field)
		}
	}
	if i.MaxPower < 0 {
		return fmt.Errorf("%w: maxPower %d is negative", ErrInvalidDevice, i.MaxPower)
	}
	if !i.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidDevice, i.Status)
	}
	return nil
}

// Scheduling is the optional extension carried by devices that can be
// switched by the energy manager.
type Scheduling struct {
	OptionalEnergy bool
	MinOnTime      int // Seconds
	MinOffTime     int // Seconds
}

// Validate checks that the minimum on/off times are not negative.
func (s Scheduling) Validate() error {
	if s.MinOnTime < 0 || s.MinOffTime < 0 {
		return fmt.Errorf("%w: minOnTime and minOffTime must not be negative", ErrInvalidDevice)
	}
	return nil
}

// Device is a controllable appliance and its planning requests.
//
// Info and Scheduling are fixed at construction; a device is replaced by
// registering a new one under the same id. The planning-request sequence is
// safe for concurrent use.
type Device struct {
	info  Info
	sched *Scheduling

	mu       sync.Mutex
	requests []PlanningRequest
	onChange func()
}

// NewDevice creates a device. A nil sched creates a simple device without
// the scheduling extension.
func NewDevice(info Info, sched *Scheduling) *Device {
	d := &Device{info: info}
	if sched != nil {
		s := *sched
		d.sched = &s
	}
	return d
}

// ID returns the device identifier.
func (d *Device) ID() string {
	return d.info.DeviceID
}

// Info returns the identification attributes.
func (d *Device) Info() Info {
	return d.info
}

// Scheduling returns the scheduling extension and whether the device has one.
func (d *Device) Scheduling() (Scheduling, bool) {
	if d.sched == nil {
		return Scheduling{}, false
	}
	return *d.sched, true
}

// SetChangeHook registers fn to be called after every planning-request mutation.
func (d *Device) SetChangeHook(fn func()) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// AddPlanningRequest validates and appends a planning request.
func (d *Device) AddPlanningRequest(earliestStart, latestEnd, minDuration, maxDuration int) (PlanningRequest, error) {
	pr := PlanningRequest{
		EarliestStart: earliestStart,
		LatestEnd:     latestEnd,
		MinDuration:   minDuration,
		MaxDuration:   maxDuration,
	}
	if err := pr.Validate(); err != nil {
		return PlanningRequest{}, err
	}

	d.mu.Lock()
	d.requests = append(d.requests, pr)
	hook := d.onChange
	d.mu.Unlock()

	if hook != nil {
		hook()
	}
	return pr, nil
}

// PlanningRequests returns a copy of the planning requests in insertion order.
func (d *Device) PlanningRequests() []PlanningRequest {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]PlanningRequest, len(d.requests))
	copy(out, d.requests)
	return out
}

// ClearPlanningRequests removes all planning requests.
func (d *Device) ClearPlanningRequests() {
	d.mu.Lock()
	d.requests = nil
	hook := d.onChange
	d.mu.Unlock()

	if hook != nil {
		hook()
	}
}
