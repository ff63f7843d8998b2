package feed

// Status is the connection state of a feed.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusPaused       Status = "paused"
	StatusOffline      Status = "offline"
	StatusError        Status = "error"
	StatusReconnecting Status = "reconnecting"
)

// gaugeValue maps a status onto the stable numeric encoding exported to
// Prometheus. Values match the feedpulse_feed_status help text.
func (s Status) gaugeValue() float64 {
	switch s {
	case StatusIdle:
		return 0
	case StatusConnecting:
		return 1
	case StatusConnected:
		return 2
	case StatusPaused:
		return 3
	case StatusOffline:
		return 4
	case StatusError:
		return 5
	case StatusReconnecting:
		return 6
	default:
		return 0
	}
}

// Health is the derived qualitative summary of a feed's condition.
type Health string

const (
	HealthIdle      Health = "idle"
	HealthCritical  Health = "critical"
	HealthDegraded  Health = "degraded"
	HealthGood      Health = "good"
	HealthExcellent Health = "excellent"
)

// gaugeValue maps a health classification onto the numeric encoding
// exported to Prometheus.
func (h Health) gaugeValue() float64 {
	switch h {
	case HealthIdle:
		return 0
	case HealthCritical:
		return 1
	case HealthDegraded:
		return 2
	case HealthGood:
		return 3
	case HealthExcellent:
		return 4
	default:
		return 0
	}
}

// FailureReason records what caused the most recent disconnect.
type FailureReason string

const (
	FailureNone    FailureReason = ""
	FailureError   FailureReason = "error"
	FailureOffline FailureReason = "offline"
)
