package domain

import (
	"encoding/json"
	"strings"
)

// StateSnapshot is one consistent read of remote factory state. It is fetched
// fresh per request and never cached, since remote state may change between
// calls.
type StateSnapshot struct {
	Machines   []MachineState `json:"machines"`
	Rooms      []RoomState    `json:"rooms"`
	CartonsNum int            `json:"cartons_num"`
}

// MachineState carries a machine's maintenance status, power flag and
// whatever numeric sensor readings the service reports for it.
type MachineState struct {
	Name        string
	Maintenance string
	Power       bool
	Sensors     map[string]float64
}

// RoomState carries a room's two light switches and its numeric sensor
// readings.
type RoomState struct {
	Name    string
	Lights  []bool
	Sensors map[string]float64
}

// UnmarshalJSON lifts the fixed fields out of the payload and collects every
// remaining numeric field as a sensor reading, so the vocabulary of sensors
// lives in the catalog rather than in this struct.
func (m *MachineState) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Sensors = make(map[string]float64)
	for key, val := range raw {
		switch key {
		case "name":
			if err := json.Unmarshal(val, &m.Name); err != nil {
				return err
			}
		case "maintenance_status":
			if err := json.Unmarshal(val, &m.Maintenance); err != nil {
				return err
			}
		case "power":
			if err := json.Unmarshal(val, &m.Power); err != nil {
				return err
			}
		default:
			var num float64
			if err := json.Unmarshal(val, &num); err == nil {
				m.Sensors[key] = num
			}
		}
	}
	return nil
}

func (r *RoomState) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Sensors = make(map[string]float64)
	for key, val := range raw {
		switch key {
		case "name":
			if err := json.Unmarshal(val, &r.Name); err != nil {
				return err
			}
		case "lights":
			if err := json.Unmarshal(val, &r.Lights); err != nil {
				return err
			}
		default:
			var num float64
			if err := json.Unmarshal(val, &num); err == nil {
				r.Sensors[key] = num
			}
		}
	}
	return nil
}

// FindMachine resolves a machine by case-insensitive exact name match.
func (s *StateSnapshot) FindMachine(name string) (*MachineState, bool) {
	for i := range s.Machines {
		if strings.EqualFold(s.Machines[i].Name, name) {
			return &s.Machines[i], true
		}
	}
	return nil, false
}

// FindRoom resolves a room by case-insensitive exact name match.
func (s *StateSnapshot) FindRoom(name string) (*RoomState, bool) {
	for i := range s.Rooms {
		if strings.EqualFold(s.Rooms[i].Name, name) {
			return &s.Rooms[i], true
		}
	}
	return nil, false
}
