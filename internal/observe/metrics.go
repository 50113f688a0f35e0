package observe

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	onlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scp_online_users",
		Help: "Number of named sessions in the registry",
	})

	liveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scp_live_sessions",
		Help: "Number of accepted sessions that have not closed yet",
	})

	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scp_messages_received_total",
			Help: "Total valid messages received from clients by type",
		},
		[]string{"type"},
	)

	directMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scp_direct_messages_total",
		Help: "Total direct messages forwarded",
	})

	fanoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scp_broadcast_deliveries_total",
		Help: "Total per-recipient deliveries attempted by broadcasts",
	})

	sendFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scp_send_failures_total",
		Help: "Total transport write failures",
	})

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scp_errors_sent_total",
			Help: "Total ERROR messages sent to peers by code",
		},
		[]string{"code"},
	)

	connectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scp_connections_total",
			Help: "Total accepted connections by transport and outcome",
		},
		[]string{"transport", "outcome"}, // accepted|busy
	)
)

func init() {
	prometheus.MustRegister(
		onlineUsers,
		liveSessions,
		messagesTotal,
		directMessagesTotal,
		fanoutTotal,
		sendFailuresTotal,
		errorsTotal,
		connectionsTotal,
	)
}

func AddOnline(delta float64)                 { onlineUsers.Add(delta) }
func AddSessions(delta float64)               { liveSessions.Add(delta) }
func IncMessage(kind string)                  { messagesTotal.WithLabelValues(kind).Inc() }
func IncDirect()                              { directMessagesTotal.Inc() }
func AddFanout(n int)                         { fanoutTotal.Add(float64(n)) }
func IncSendFailure()                         { sendFailuresTotal.Inc() }
func IncError(code string)                    { errorsTotal.WithLabelValues(code).Inc() }
func IncConnection(transport, outcome string) { connectionsTotal.WithLabelValues(transport, outcome).Inc() }
