package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semp-gateway/internal/model"
)

func TestToWireDevice(t *testing.T) {
	t.Run("simple device omits scheduling fields", func(t *testing.T) {
		b, err := json.Marshal(ToWireDevice(device1()))
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		assert.Equal(t, simpleDeviceKeys, keys(m))
		assert.Equal(t, "Off", m["status"])
	})

	t.Run("scheduling fields keep zero values", func(t *testing.T) {
		d := model.NewDevice(testInfo("1", "Zero"), &model.Scheduling{})
		w := ToWireDevice(d)
		require.NotNil(t, w.OptionalEnergy)
		assert.False(t, *w.OptionalEnergy)
		require.NotNil(t, w.MinOnTime)
		assert.Equal(t, 0, *w.MinOnTime)

		b, err := json.Marshal(w)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"minOffTime":0`)
	})
}

func TestToWireDevices_NeverNil(t *testing.T) {
	assert.NotNil(t, ToWireDevices(nil))
	assert.NotNil(t, ToWirePlanningRequests(nil))
}

func TestFromDeviceInput(t *testing.T) {
	yes, no, power, onTime := true, false, 500, 60

	base := deviceInput{
		Name:                 "Washer",
		Type:                 "WashingMachine",
		MeasurementMethod:    "Measurement",
		InterruptionsAllowed: &yes,
		MaxPower:             &power,
		EMSignalsAccepted:    &no,
		Status:               "On",
		Vendor:               "Vendor",
		SerialNr:             "S1",
		AbsoluteTimestamps:   &no,
	}

	d, err := fromDeviceInput("abc", base)
	require.NoError(t, err)
	assert.Equal(t, "abc", d.ID())
	_, ok := d.Scheduling()
	assert.False(t, ok)

	withSched := base
	withSched.MinOnTime = &onTime
	d, err = fromDeviceInput("abc", withSched)
	require.NoError(t, err)
	sched, ok := d.Scheduling()
	require.True(t, ok)
	assert.Equal(t, model.Scheduling{MinOnTime: 60}, sched)

	_, err = fromDeviceInput("", base)
	assert.ErrorIs(t, err, model.ErrInvalidDevice)
}
