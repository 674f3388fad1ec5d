package collector

import (
	"sort"

	"github.com/and3rn3t/network-sub004/internal/model"
)

// Classification is the outcome of comparing one entity against its prior
// persisted state.
type Classification int

const (
	ClassNew Classification = iota
	ClassUpdated
	ClassUnchanged
	ClassMissing
)

func (c Classification) String() string {
	switch c {
	case ClassNew:
		return "new"
	case ClassUpdated:
		return "updated"
	case ClassUnchanged:
		return "unchanged"
	case ClassMissing:
		return "missing"
	default:
		return "invalid"
	}
}

// FieldChange is one significant field that differs between the prior
// record and the new snapshot.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// Transition pairs an entity with its classification and field diff.
// Exactly one of Device or Client is set, matching EntityType. For missing
// entities the record is the prior one (the entity is absent from the
// snapshot).
type Transition struct {
	EntityType model.EntityType
	MAC        string
	Class      Classification
	Device     *model.DeviceRecord
	Client     *model.ClientRecord
	Diff       []FieldChange
}

// PriorStateProvider supplies the last persisted record per MAC, as left by
// the immediately preceding run.
type PriorStateProvider interface {
	DeviceStates(controller string) (map[string]model.DeviceRecord, error)
	ClientStates(controller string) (map[string]model.ClientRecord, error)
}

// ReconcileDevices diffs a device snapshot against prior state. Snapshot
// entities keep discovery order; missing entities follow, sorted by MAC so
// the output is deterministic.
//
// A device absent from the snapshot whose prior record was already not
// online is skipped entirely: the offline transition fired on the first
// absence and repeating it every poll would flood the event log.
func ReconcileDevices(snapshot []model.DeviceRecord, prior map[string]model.DeviceRecord) []Transition {
	transitions := make([]Transition, 0, len(snapshot))
	seen := make(map[string]bool, len(snapshot))

	for i := range snapshot {
		dev := &snapshot[i]
		seen[dev.MAC] = true

		prev, ok := prior[dev.MAC]
		if !ok {
			transitions = append(transitions, Transition{
				EntityType: model.EntityDevice,
				MAC:        dev.MAC,
				Class:      ClassNew,
				Device:     dev,
			})
			continue
		}

		var diff []FieldChange
		if prev.State != dev.State {
			diff = append(diff, FieldChange{Field: "state", Old: string(prev.State), New: string(dev.State)})
		}
		if prev.IP != dev.IP {
			diff = append(diff, FieldChange{Field: "ip", Old: prev.IP, New: dev.IP})
		}
		if prev.Firmware != dev.Firmware {
			diff = append(diff, FieldChange{Field: "firmware", Old: prev.Firmware, New: dev.Firmware})
		}

		class := ClassUnchanged
		if len(diff) > 0 {
			class = ClassUpdated
		}
		transitions = append(transitions, Transition{
			EntityType: model.EntityDevice,
			MAC:        dev.MAC,
			Class:      class,
			Device:     dev,
			Diff:       diff,
		})
	}

	for _, mac := range sortedMissing(seen, deviceMACs(prior)) {
		prev := prior[mac]
		if !prev.Online() {
			continue // already recorded as offline or missing
		}
		transitions = append(transitions, Transition{
			EntityType: model.EntityDevice,
			MAC:        mac,
			Class:      ClassMissing,
			Device:     &prev,
		})
	}
	return transitions
}

// ReconcileClients diffs a client snapshot against prior state. Clients are
// high-churn: the only significant fields are presence and IP, and a client
// already marked offline produces no further transitions while absent.
func ReconcileClients(snapshot []model.ClientRecord, prior map[string]model.ClientRecord) []Transition {
	transitions := make([]Transition, 0, len(snapshot))
	seen := make(map[string]bool, len(snapshot))

	for i := range snapshot {
		cl := &snapshot[i]
		seen[cl.MAC] = true

		prev, ok := prior[cl.MAC]
		if !ok {
			transitions = append(transitions, Transition{
				EntityType: model.EntityClient,
				MAC:        cl.MAC,
				Class:      ClassNew,
				Client:     cl,
			})
			continue
		}

		var diff []FieldChange
		if !prev.IsOnline {
			diff = append(diff, FieldChange{Field: "state", Old: "offline", New: "online"})
		}
		if prev.IP != cl.IP {
			diff = append(diff, FieldChange{Field: "ip", Old: prev.IP, New: cl.IP})
		}

		class := ClassUnchanged
		if len(diff) > 0 {
			class = ClassUpdated
		}
		transitions = append(transitions, Transition{
			EntityType: model.EntityClient,
			MAC:        cl.MAC,
			Class:      class,
			Client:     cl,
			Diff:       diff,
		})
	}

	for _, mac := range sortedMissing(seen, clientMACs(prior)) {
		prev := prior[mac]
		if !prev.IsOnline {
			continue // disconnect already recorded
		}
		transitions = append(transitions, Transition{
			EntityType: model.EntityClient,
			MAC:        mac,
			Class:      ClassMissing,
			Client:     &prev,
		})
	}
	return transitions
}

func deviceMACs(m map[string]model.DeviceRecord) []string {
	macs := make([]string, 0, len(m))
	for mac := range m {
		macs = append(macs, mac)
	}
	return macs
}

func clientMACs(m map[string]model.ClientRecord) []string {
	macs := make([]string, 0, len(m))
	for mac := range m {
		macs = append(macs, mac)
	}
	return macs
}

func sortedMissing(seen map[string]bool, priorMACs []string) []string {
	var missing []string
	for _, mac := range priorMACs {
		if !seen[mac] {
			missing = append(missing, mac)
		}
	}
	sort.Strings(missing)
	return missing
}
