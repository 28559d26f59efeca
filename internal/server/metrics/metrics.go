// internal/server/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/server/game"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

const namespace = "ludo"

// Metrics regroupe les compteurs exposés sur /metrics
type Metrics struct {
	registry *prometheus.Registry

	Connections     prometheus.Gauge
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Broadcasts      *prometheus.CounterVec
	DiceRolls       *prometheus.CounterVec
	Games           *prometheus.CounterVec
	Rooms           *prometheus.CounterVec
	Replaced        prometheus.Counter
}

// New crée les métriques sur un registre dédié
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Active realtime connections.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Realtime requests by event and result code.",
		}, []string{"event", "result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from request receipt to ack.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Broadcast frames by event.",
		}, []string{"event"}),
		DiceRolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dice_rolls_total",
			Help:      "Dice outcomes by face.",
		}, []string{"value"}),
		Games: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_total",
			Help:      "Games by lifecycle status.",
		}, []string{"status"}),
		Rooms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_total",
			Help:      "Room transitions by status.",
		}, []string{"status"}),
		Replaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_replaced_total",
			Help:      "Connections closed because the same user connected again.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Connections,
		m.Requests,
		m.RequestDuration,
		m.Broadcasts,
		m.DiceRolls,
		m.Games,
		m.Rooms,
		m.Replaced,
	)
	return m
}

// Registry expose le registre (tests, collecteurs additionnels)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterLanes publie le nombre de files actives
func (m *Metrics) RegisterLanes(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_lanes",
		Help:      "Active per-user and per-room serialization lanes.",
	}, func() float64 { return float64(count()) }))
}

// ObserveRequest enregistre une requête acquittée
func (m *Metrics) ObserveRequest(event, result string, elapsed time.Duration) {
	m.Requests.WithLabelValues(event, result).Inc()
	m.RequestDuration.WithLabelValues(event).Observe(elapsed.Seconds())
}

// Handler sert le format d'exposition Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EngineCallbacks branche les métriques sur les événements du moteur
func (m *Metrics) EngineCallbacks() game.EngineCallbacks {
	return game.EngineCallbacks{
		OnGameStarted: func(g *models.Game) {
			m.Games.WithLabelValues(string(g.Status)).Inc()
		},
		OnDiceRolled: func(_ *models.Game, value int, _ bool) {
			m.DiceRolls.WithLabelValues(strconv.Itoa(value)).Inc()
		},
		OnGameOver: func(g *models.Game) {
			m.Games.WithLabelValues(string(g.Status)).Inc()
		},
	}
}
