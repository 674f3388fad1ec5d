package collector

import (
	"time"

	"github.com/and3rn3t/network-sub004/internal/model"
)

// RecordMetrics extracts every present numeric field from the snapshot as a
// metric row, plus one derived client_count per device. Absent optional
// fields are skipped entirely; there are no null-valued metric rows.
// Metrics are append-only and never diffed against prior state.
func RecordMetrics(devices []model.DeviceRecord, clients []model.ClientRecord, now time.Time) []model.Metric {
	metrics := make([]model.Metric, 0, len(devices)*4+len(clients)*3)

	uplinkCount := make(map[string]int, len(devices))
	for _, cl := range clients {
		if cl.DeviceMAC != "" {
			uplinkCount[cl.DeviceMAC]++
		}
	}

	for _, dev := range devices {
		metrics = append(metrics, model.Metric{
			Timestamp: now, EntityMAC: dev.MAC,
			Name: model.MetricUptime, Value: float64(dev.UptimeSecs), Unit: "seconds",
		})
		if dev.CPUPct != nil {
			metrics = append(metrics, model.Metric{
				Timestamp: now, EntityMAC: dev.MAC,
				Name: model.MetricCPUUsage, Value: *dev.CPUPct, Unit: "percent",
			})
		}
		if dev.MemPct != nil {
			metrics = append(metrics, model.Metric{
				Timestamp: now, EntityMAC: dev.MAC,
				Name: model.MetricMemoryUsage, Value: *dev.MemPct, Unit: "percent",
			})
		}
		if dev.Temperature != nil {
			metrics = append(metrics, model.Metric{
				Timestamp: now, EntityMAC: dev.MAC,
				Name: model.MetricTemperature, Value: *dev.Temperature, Unit: "celsius",
			})
		}
		metrics = append(metrics, model.Metric{
			Timestamp: now, EntityMAC: dev.MAC,
			Name: model.MetricClientCount, Value: float64(uplinkCount[dev.MAC]), Unit: "count",
		})
	}

	for _, cl := range clients {
		metrics = append(metrics, model.Metric{
			Timestamp: now, EntityMAC: cl.MAC,
			Name: model.MetricRxBytes, Value: float64(cl.RxBytes), Unit: "bytes",
		})
		metrics = append(metrics, model.Metric{
			Timestamp: now, EntityMAC: cl.MAC,
			Name: model.MetricTxBytes, Value: float64(cl.TxBytes), Unit: "bytes",
		})
		if cl.SignalDBM != nil {
			metrics = append(metrics, model.Metric{
				Timestamp: now, EntityMAC: cl.MAC,
				Name: model.MetricSignal, Value: float64(*cl.SignalDBM), Unit: "dbm",
			})
		}
	}

	return metrics
}
