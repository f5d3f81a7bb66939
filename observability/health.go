package observability

// HealthStatus is the state of one provider or of the whole probe run.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

// rank orders statuses from best to worst.
func (s HealthStatus) rank() int {
	switch s {
	case HealthStatusUp:
		return 0
	case HealthStatusDegraded:
		return 1
	default:
		return 2
	}
}

// Health is the result of probing one component.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthFromProbe turns an availability check into a Health.
func HealthFromProbe(name string, available bool, details map[string]string) Health {
	if available {
		return Health{Name: name, Status: HealthStatusUp, Details: details}
	}
	return Health{Name: name, Status: HealthStatusDown, Message: "probe failed", Details: details}
}

// ServiceHealth is what `quizgen probe` prints. Its Status is the worst
// status among its components, up when there are none.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Version: version, Status: HealthStatusUp}
}

// AddComponent appends h and lowers Status if h is worse.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	if h.Status.rank() > sh.Status.rank() {
		sh.Status = h.Status
	}
}
