package metrics

import "strings"

// Prefix namespaces every metric exported by the service.
const Prefix = "sqlagent_"

// MetricName ensures name carries the service prefix.
func MetricName(name string) string {
	if strings.HasPrefix(name, Prefix) {
		return name
	}
	return Prefix + name
}

// MetricNameWithSubsystem joins subsystem and name under the service prefix.
func MetricNameWithSubsystem(subsystem, name string) string {
	subsystem = strings.Trim(subsystem, "_")
	if subsystem == "" {
		return MetricName(name)
	}
	if name == "" {
		return MetricName(subsystem)
	}
	return MetricName(subsystem + "_" + name)
}
