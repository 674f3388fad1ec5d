package collector

import (
	"fmt"
	"time"

	"github.com/and3rn3t/network-sub004/internal/model"
)

// EmitEvents converts transitions into durable event records. Unchanged
// transitions produce nothing; at most one event per changed field type is
// generated per transition, so a given entity can never produce duplicate
// events within one run.
func EmitEvents(transitions []Transition, now time.Time) []model.Event {
	var events []model.Event
	for _, tr := range transitions {
		switch tr.EntityType {
		case model.EntityDevice:
			events = append(events, deviceEvents(tr, now)...)
		case model.EntityClient:
			events = append(events, clientEvents(tr, now)...)
		}
	}
	return events
}

func deviceEvents(tr Transition, now time.Time) []model.Event {
	dev := tr.Device
	base := func(t model.EventType, desc string, details map[string]string) model.Event {
		return model.Event{
			Timestamp:   now,
			EntityType:  model.EntityDevice,
			EntityMAC:   tr.MAC,
			Type:        t,
			Description: desc,
			Details:     details,
		}
	}

	switch tr.Class {
	case ClassNew:
		return []model.Event{base(
			model.EventDeviceNew,
			fmt.Sprintf("device %s (%s) discovered", dev.Name, dev.MAC),
			map[string]string{"model": dev.Model, "ip": dev.IP, "state": string(dev.State)},
		)}

	case ClassMissing:
		return []model.Event{base(
			model.EventDeviceOffline,
			fmt.Sprintf("device %s (%s) went offline", dev.Name, dev.MAC),
			map[string]string{"reason": "absent from snapshot"},
		)}

	case ClassUpdated:
		var events []model.Event
		for _, ch := range tr.Diff {
			switch ch.Field {
			case "state":
				wasOnline := stateOnline(model.DeviceState(ch.Old))
				isOnline := stateOnline(model.DeviceState(ch.New))
				if wasOnline == isOnline {
					continue // state moved within the same reachability class
				}
				if isOnline {
					events = append(events, base(
						model.EventDeviceOnline,
						fmt.Sprintf("device %s (%s) came online", dev.Name, dev.MAC),
						map[string]string{"old": ch.Old, "new": ch.New},
					))
				} else {
					events = append(events, base(
						model.EventDeviceOffline,
						fmt.Sprintf("device %s (%s) went offline", dev.Name, dev.MAC),
						map[string]string{"old": ch.Old, "new": ch.New},
					))
				}
			case "firmware":
				events = append(events, base(
					model.EventFirmwareChanged,
					fmt.Sprintf("device %s (%s) firmware %s -> %s", dev.Name, dev.MAC, ch.Old, ch.New),
					map[string]string{"old": ch.Old, "new": ch.New},
				))
			case "ip":
				events = append(events, base(
					model.EventIPChanged,
					fmt.Sprintf("device %s (%s) IP %s -> %s", dev.Name, dev.MAC, ch.Old, ch.New),
					map[string]string{"old": ch.Old, "new": ch.New},
				))
			}
		}
		return events
	}
	return nil
}

func clientEvents(tr Transition, now time.Time) []model.Event {
	cl := tr.Client
	name := cl.Hostname
	if name == "" {
		name = cl.MAC
	}
	base := func(t model.EventType, desc string, details map[string]string) model.Event {
		return model.Event{
			Timestamp:   now,
			EntityType:  model.EntityClient,
			EntityMAC:   tr.MAC,
			Type:        t,
			Description: desc,
			Details:     details,
		}
	}

	switch tr.Class {
	case ClassNew:
		return []model.Event{base(
			model.EventClientNew,
			fmt.Sprintf("client %s (%s) seen for the first time", name, cl.MAC),
			map[string]string{"ip": cl.IP, "uplink": cl.DeviceMAC},
		)}

	case ClassMissing:
		return []model.Event{base(
			model.EventClientDisconnected,
			fmt.Sprintf("client %s (%s) disconnected", name, cl.MAC),
			map[string]string{"reason": "absent from snapshot"},
		)}

	case ClassUpdated:
		var events []model.Event
		for _, ch := range tr.Diff {
			switch ch.Field {
			case "state":
				events = append(events, base(
					model.EventClientConnected,
					fmt.Sprintf("client %s (%s) reconnected", name, cl.MAC),
					map[string]string{"uplink": cl.DeviceMAC},
				))
			case "ip":
				events = append(events, base(
					model.EventIPChanged,
					fmt.Sprintf("client %s (%s) IP %s -> %s", name, cl.MAC, ch.Old, ch.New),
					map[string]string{"old": ch.Old, "new": ch.New},
				))
			}
		}
		return events
	}
	return nil
}

func stateOnline(s model.DeviceState) bool {
	return model.DeviceRecord{State: s}.Online()
}
