package activator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricNameBuildInfo       = "doublezero_activator_build_info"
	MetricNameDeviceCount     = "activator_device_count"
	MetricNameDeviceIPsUsed   = "activator_device_ips_used"
	MetricNameDeviceIPsTotal  = "activator_device_ips_total"
	MetricNameTransitions     = "activator_transitions_total"
	MetricNameSubmissionError = "activator_submission_errors_total"

	MetricLabelVersion  = "version"
	MetricLabelCommit   = "commit"
	MetricLabelDate     = "date"
	MetricLabelDevice   = "device_pk"
	MetricLabelCode     = "device_code"
	MetricLabelLocation = "location"
	MetricLabelExchange = "exchange"
	MetricLabelEntity   = "entity"
	MetricLabelFrom     = "from"
	MetricLabelTo       = "to"
)

var (
	MetricBuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameBuildInfo,
			Help: "Build information of the activator",
		},
		[]string{MetricLabelVersion, MetricLabelCommit, MetricLabelDate},
	)

	MetricDeviceCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameDeviceCount,
			Help: "Number of devices in the activator's mirror",
		},
	)

	MetricDeviceIPsUsed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameDeviceIPsUsed,
			Help: "Assigned dz IPs per device",
		},
		[]string{MetricLabelDevice, MetricLabelCode, MetricLabelLocation, MetricLabelExchange},
	)

	MetricDeviceIPsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameDeviceIPsTotal,
			Help: "Total dz IPs per device",
		},
		[]string{MetricLabelDevice, MetricLabelCode, MetricLabelLocation, MetricLabelExchange},
	)

	MetricTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameTransitions,
			Help: "Entity status transitions submitted by the activator",
		},
		[]string{MetricLabelEntity, MetricLabelFrom, MetricLabelTo},
	)

	MetricSubmissionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSubmissionError,
			Help: "Instruction submission failures",
		},
		[]string{MetricLabelEntity},
	)
)
