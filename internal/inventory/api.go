package inventory

import (
	"fmt"

	"semp-gateway/internal/model"
	"semp-gateway/internal/parse"
)

// ApiResponse models the top-level structure of the upstream API's response.
type ApiResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int       `json:"page"`
		PageSize int       `json:"pageSize"`
		Total    int       `json:"total"`
		Items    []ApiItem `json:"items"`
	} `json:"data"`
}

// ApiItem is a single device record as served upstream. It uses the same
// field names as the gateway's own device representation.
type ApiItem struct {
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

// record is a validated upstream item.
type record struct {
	id    parse.DeviceID
	info  model.Info
	sched *model.Scheduling
}

func (it ApiItem) toRecord() (record, error) {
	id, err := parse.ParseDeviceID(it.DeviceID)
	if err != nil {
		return record{}, err
	}

	info := model.Info{
		DeviceID:             it.DeviceID,
		Name:                 it.Name,
		Type:                 it.Type,
		MeasurementMethod:    it.MeasurementMethod,
		InterruptionsAllowed: it.InterruptionsAllowed,
		MaxPower:             it.MaxPower,
		EMSignalsAccepted:    it.EMSignalsAccepted,
		Status:               model.Status(it.Status),
		Vendor:               it.Vendor,
		SerialNr:             it.SerialNr,
		AbsoluteTimestamps:   it.AbsoluteTimestamps,
	}
	if err := info.Validate(); err != nil {
		return record{}, err
	}

	var sched *model.Scheduling
	if it.OptionalEnergy != nil || it.MinOnTime != nil || it.MinOffTime != nil {
		sched = &model.Scheduling{}
		if it.OptionalEnergy != nil {
			sched.OptionalEnergy = *it.OptionalEnergy
		}
		if it.MinOnTime != nil {
			sched.MinOnTime = *it.MinOnTime
		}
		if it.MinOffTime != nil {
			sched.MinOffTime = *it.MinOffTime
		}
		if err := sched.Validate(); err != nil {
			return record{}, fmt.Errorf("device %s: %w", it.DeviceID, err)
		}
	}
	return record{id: id, info: info, sched: sched}, nil
}

// matches reports whether d already carries exactly the attributes of r.
func (r record) matches(d *model.Device) bool {
	if d.Info() != r.info {
		return false
	}
	sched, ok := d.Scheduling()
	if ok != (r.sched != nil) {
		return false
	}
	return !ok || sched == *r.sched
}
