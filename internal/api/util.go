package api

import (
	"semp-gateway/internal/model"
)

// WireDevice is the JSON representation of a device returned to clients.
// The scheduling fields are present only for devices that carry the
// scheduling extension.
type WireDevice struct {
	DeviceID             string `json:"deviceId"`
	Name                 string `json:"name"`
	Type                 string `json:"type"`
	MeasurementMethod    string `json:"measurementMethod"`
	InterruptionsAllowed bool   `json:"interruptionsAllowed"`
	MaxPower             int    `json:"maxPower"`
	EMSignalsAccepted    bool   `json:"emSignalsAccepted"`
	Status               string `json:"status"`
	Vendor               string `json:"vendor"`
	SerialNr             string `json:"serialNr"`
	AbsoluteTimestamps   bool   `json:"absoluteTimestamps"`

	OptionalEnergy *bool `json:"optionalEnergy,omitempty"`
	MinOnTime      *int  `json:"minOnTime,omitempty"`
	MinOffTime     *int  `json:"minOffTime,omitempty"`
}

// WirePlanningRequest is the JSON representation of a planning request.
type WirePlanningRequest struct {
	EarliestStart int `json:"earliestStart"`
	LatestEnd     int `json:"latestEnd"`
	MinDuration   int `json:"minDuration"`
	MaxDuration   int `json:"maxDuration"`
}

// deviceInput is the body accepted by POST /devices/:id. Pointers separate
// "missing" from false/0 so required checks work for every field.
type deviceInput struct {
	DeviceID             string `json:"deviceId"`
	Name                 string `json:"name" binding:"required"`
	Type                 string `json:"type" binding:"required"`
	MeasurementMethod    string `json:"measurementMethod" binding:"required"`
	InterruptionsAllowed *bool  `json:"interruptionsAllowed" binding:"required"`
	MaxPower             *int   `json:"maxPower" binding:"required,min=0"`
	EMSignalsAccepted    *bool  `json:"emSignalsAccepted" binding:"required"`
	Status               string `json:"status" binding:"required,oneof=On Off Offline"`
	Vendor               string `json:"vendor" binding:"required"`
	SerialNr             string `json:"serialNr" binding:"required"`
	AbsoluteTimestamps   *bool  `json:"absoluteTimestamps" binding:"required"`

	OptionalEnergy *bool `json:"optionalEnergy"`
	MinOnTime      *int  `json:"minOnTime" binding:"omitempty,min=0"`
	MinOffTime     *int  `json:"minOffTime" binding:"omitempty,min=0"`
}

type planningRequestInput struct {
	EarliestStart *int `json:"earliestStart" binding:"required"`
	LatestEnd     *int `json:"latestEnd" binding:"required"`
	MinDuration   *int `json:"minDuration" binding:"required"`
	MaxDuration   *int `json:"maxDuration" binding:"required"`
}

// ToWireDevice converts a device to its wire representation.
func ToWireDevice(d *model.Device) WireDevice {
	info := d.Info()
	w := WireDevice{
		DeviceID:             info.DeviceID,
		Name:                 info.Name,
		Type:                 info.Type,
		MeasurementMethod:    info.MeasurementMethod,
		InterruptionsAllowed: info.InterruptionsAllowed,
		MaxPower:             info.MaxPower,
		EMSignalsAccepted:    info.EMSignalsAccepted,
		Status:               string(info.Status),
		Vendor:               info.Vendor,
		SerialNr:             info.SerialNr,
		AbsoluteTimestamps:   info.AbsoluteTimestamps,
	}
	if sched, ok := d.Scheduling(); ok {
		w.OptionalEnergy = &sched.OptionalEnergy
		w.MinOnTime = &sched.MinOnTime
		w.MinOffTime = &sched.MinOffTime
	}
	return w
}

// ToWireDevices converts a slice of devices, never returning nil.
func ToWireDevices(devices []*model.Device) []WireDevice {
	out := make([]WireDevice, 0, len(devices))
	for _, d := range devices {
		out = append(out, ToWireDevice(d))
	}
	return out
}

// ToWirePlanningRequests converts planning requests, never returning nil.
func ToWirePlanningRequests(requests []model.PlanningRequest) []WirePlanningRequest {
	out := make([]WirePlanningRequest, 0, len(requests))
	for _, pr := range requests {
		out = append(out, toWirePlanningRequest(pr))
	}
	return out
}

func toWirePlanningRequest(pr model.PlanningRequest) WirePlanningRequest {
	return WirePlanningRequest{
		EarliestStart: pr.EarliestStart,
		LatestEnd:     pr.LatestEnd,
		MinDuration:   pr.MinDuration,
		MaxDuration:   pr.MaxDuration,
	}
}

// fromDeviceInput builds a device registered under id from a bound request body.
// The scheduling extension is created when any of its fields is present.
func fromDeviceInput(id string, in deviceInput) (*model.Device, error) {
	info := model.Info{
		DeviceID:             id,
		Name:                 in.Name,
		Type:                 in.Type,
		MeasurementMethod:    in.MeasurementMethod,
		InterruptionsAllowed: deref(in.InterruptionsAllowed),
		MaxPower:             deref(in.MaxPower),
		EMSignalsAccepted:    deref(in.EMSignalsAccepted),
		Status:               model.Status(in.Status),
		Vendor:               in.Vendor,
		SerialNr:             in.SerialNr,
		AbsoluteTimestamps:   deref(in.AbsoluteTimestamps),
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}

	var sched *model.Scheduling
	if in.OptionalEnergy != nil || in.MinOnTime != nil || in.MinOffTime != nil {
		sched = &model.Scheduling{
			OptionalEnergy: deref(in.OptionalEnergy),
			MinOnTime:      deref(in.MinOnTime),
			MinOffTime:     deref(in.MinOffTime),
		}
		if err := sched.Validate(); err != nil {
			return nil, err
		}
	}
	return model.NewDevice(info, sched), nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
