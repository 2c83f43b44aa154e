package status

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// The hub is loose with scalar types: numbers arrive bare or quoted,
// booleans as true/false or 0/1, ids as numbers or strings. These
// wrappers accept any of the shapes seen in the wild.

type flexInt int

func (v *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", data)
	}
	*v = flexInt(int(n))
	return nil
}

type flexFloat float64

func (v *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", data)
	}
	*v = flexFloat(n)
	return nil
}

type flexBool bool

func (v *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(data, `"`)) {
	case "true", "1":
		*v = true
	case "false", "0", "", "null":
		*v = false
	default:
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("not a boolean: %q", data)
		}
		*v = flexBool(b)
	}
	return nil
}

type flexString string

func (v *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = flexString(s)
		return nil
	}
	*v = flexString(bytes.TrimSpace(data))
	return nil
}
