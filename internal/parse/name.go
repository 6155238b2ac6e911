package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxDeviceIDLength bounds the length of any device id accepted by the gateway.
const MaxDeviceIDLength = 64

// reservedChars may not appear in a device id. The id is used as a URL path
// segment and as an MQTT topic level.
const reservedChars = "/?#+\x00"

var sempIDRe = regexp.MustCompile(`^F-([0-9A-Fa-f]{8})-([0-9A-Fa-f]{12})-([0-9A-Fa-f]{2})$`)

// DeviceID is a validated device identifier. SEMP-formatted ids
// (F-<vendor>-<serial>-<subdevice>) are additionally broken into their parts.
type DeviceID struct {
	Raw       string
	SEMP      bool
	VendorID  string
	Serial    string
	SubDevice int
}

// ParseDeviceID validates raw and extracts the SEMP components when present.
func ParseDeviceID(raw string) (DeviceID, error) {
	if strings.TrimSpace(raw) == "" {
		return DeviceID{}, fmt.Errorf("device id is empty")
	}
	if len(raw) > MaxDeviceIDLength {
		return DeviceID{}, fmt.Errorf("device id %q exceeds %d characters", raw, MaxDeviceIDLength)
	}
	if strings.ContainsAny(raw, reservedChars) || strings.TrimSpace(raw) != raw {
		return DeviceID{}, fmt.Errorf("device id %q contains reserved characters", raw)
	}

	id := DeviceID{Raw: raw}
	if m := sempIDRe.FindStringSubmatch(raw); m != nil {
		sub, err := strconv.ParseUint(m[3], 16, 8)
		if err != nil {
			return DeviceID{}, fmt.Errorf("device id %q: bad sub-device: %w", raw, err)
		}
		id.SEMP = true
		id.VendorID = strings.ToUpper(m[1])
		id.Serial = strings.ToUpper(m[2])
		id.SubDevice = int(sub)
	}
	return id, nil
}
