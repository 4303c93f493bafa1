package metrics

import "github.com/prometheus/client_golang/prometheus"

// LoginMetrics counts outcomes of the player login endpoints.
type LoginMetrics struct {
	Validations     *prometheus.CounterVec
	TokenRefreshes  *prometheus.CounterVec
	SessionsCreated prometheus.Counter
	Logouts         prometheus.Counter
}

func NewLoginMetrics(reg prometheus.Registerer) *LoginMetrics {
	m := &LoginMetrics{
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "login",
			Name:      "validations_total",
			Help:      "Total number of login validations, by result.",
		}, []string{"result"}),
		TokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "login",
			Name:      "token_refreshes_total",
			Help:      "Total number of token refresh attempts, by result.",
		}, []string{"result"}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "login",
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created by a successful validation.",
		}),
		Logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "login",
			Name:      "logouts_total",
			Help:      "Total number of logout requests.",
		}),
	}

	reg.MustRegister(m.Validations, m.TokenRefreshes, m.SessionsCreated, m.Logouts)
	return m
}

// Validation records one validate request. result is one of "ok",
// "registration" or "rejected".
func (m *LoginMetrics) Validation(result string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(result).Inc()
	if result == "ok" {
		m.SessionsCreated.Inc()
	}
}

func (m *LoginMetrics) TokenRefresh(result string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(result).Inc()
}

func (m *LoginMetrics) Logout() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
}
