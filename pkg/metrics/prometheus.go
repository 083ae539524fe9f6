// Package metrics provides Prometheus metrics for the forgeboard skill
// ledger service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Progression
	certificatesMinted prometheus.Counter
	levelUps           prometheus.Counter
	xpGranted          prometheus.Counter
	rarityUpgrades     prometheus.Counter
	certificatesTotal  prometheus.Gauge

	// Verification
	milestonesCreated  prometheus.Counter
	milestonesVerified prometheus.Counter
	milestonesRejected prometheus.Counter
	endorsements       prometheus.Counter
	challenges         prometheus.Counter
	milestonesTotal    prometheus.Gauge

	// Market
	tips             prometheus.Counter
	tipFees          prometheus.Counter
	reputationEarned prometheus.Counter
	stakesDeposited  prometheus.Counter
	stakesWithdrawn  prometheus.Counter
	seasonsEnded     prometheus.Counter

	// Governance
	proposalsCreated prometheus.Counter
	votesCast        prometheus.Counter

	// Event pipeline
	eventsPublished  prometheus.Counter
	eventsDropped    prometheus.Counter
	eventsDispatched prometheus.Counter
	eventQueueSize   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the metrics namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(sub string) Option {
	return func(m *Manager) {
		if sub != "" {
			m.subsystem = sub
		}
	}
}

// WithHistogramBuckets sets the latency histogram buckets.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithPrometheusRegistry sets the registerer metrics attach to.
func WithPrometheusRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "forgeboard",
		subsystem:        "ledger",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) initializeMetrics() {
	m.certificatesMinted = m.counter("certificates_minted_total", "Skill certificates minted")
	m.levelUps = m.counter("level_ups_total", "Certificate level-ups applied")
	m.xpGranted = m.counter("xp_granted_total", "XP units granted to certificates")
	m.rarityUpgrades = m.counter("rarity_upgrades_total", "Certificate rarity upgrades")
	m.certificatesTotal = m.gauge("certificates", "Certificates currently tracked")

	m.milestonesCreated = m.counter("milestones_created_total", "Milestones submitted")
	m.milestonesVerified = m.counter("milestones_verified_total", "Milestones verified")
	m.milestonesRejected = m.counter("milestones_rejected_total", "Milestones rejected")
	m.endorsements = m.counter("milestone_endorsements_total", "Milestone endorsements recorded")
	m.challenges = m.counter("milestone_challenges_total", "Milestone challenges recorded")
	m.milestonesTotal = m.gauge("milestones", "Milestones currently tracked")

	m.tips = m.counter("tips_total", "Tips settled")
	m.tipFees = m.counter("tip_fees_total", "Currency units withheld as tip fees")
	m.reputationEarned = m.counter("reputation_earned_total", "Reputation units credited")
	m.stakesDeposited = m.counter("stakes_deposited_total", "Stake deposits")
	m.stakesWithdrawn = m.counter("stakes_withdrawn_total", "Stake withdrawals")
	m.seasonsEnded = m.counter("seasons_ended_total", "Season rollovers")

	m.proposalsCreated = m.counter("proposals_created_total", "Governance proposals created")
	m.votesCast = m.counter("votes_cast_total", "Governance votes cast")

	m.eventsPublished = m.counter("events_published_total", "Domain events published")
	m.eventsDropped = m.counter("events_dropped_total", "Domain events dropped on backpressure")
	m.eventsDispatched = m.counter("events_dispatched_total", "Domain events delivered to sinks")
	m.eventQueueSize = m.gauge("event_queue_size", "Domain events waiting for dispatch")

	m.httpRequests = promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by endpoint, method and status",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// Package-level helpers recording against the global manager.

func RecordCertificateMinted() {
	globalManager.certificatesMinted.Inc()
}

func RecordLevelUps(n int) {
	globalManager.levelUps.Add(float64(n))
}

func RecordXPGranted(amount uint64) {
	globalManager.xpGranted.Add(float64(amount))
}

func RecordRarityUpgrade() {
	globalManager.rarityUpgrades.Inc()
}

func UpdateCertificatesTotal(n int) {
	globalManager.certificatesTotal.Set(float64(n))
}

func RecordMilestoneCreated() {
	globalManager.milestonesCreated.Inc()
}

func RecordMilestoneVerified() {
	globalManager.milestonesVerified.Inc()
}

func RecordMilestoneRejected() {
	globalManager.milestonesRejected.Inc()
}

func RecordEndorsement() {
	globalManager.endorsements.Inc()
}

func RecordChallenge() {
	globalManager.challenges.Inc()
}

func UpdateMilestonesTotal(n int) {
	globalManager.milestonesTotal.Set(float64(n))
}

func RecordTip(fee uint64) {
	globalManager.tips.Inc()
	globalManager.tipFees.Add(float64(fee))
}

func RecordReputationEarned(amount uint64) {
	globalManager.reputationEarned.Add(float64(amount))
}

func RecordStakeDeposited() {
	globalManager.stakesDeposited.Inc()
}

func RecordStakeWithdrawn() {
	globalManager.stakesWithdrawn.Inc()
}

func RecordSeasonEnded() {
	globalManager.seasonsEnded.Inc()
}

func RecordProposalCreated() {
	globalManager.proposalsCreated.Inc()
}

func RecordVoteCast() {
	globalManager.votesCast.Inc()
}

func RecordEventPublished() {
	globalManager.eventsPublished.Inc()
}

func RecordEventDropped() {
	globalManager.eventsDropped.Inc()
}

func RecordEventDispatched() {
	globalManager.eventsDispatched.Inc()
}

func UpdateEventQueueSize(n int) {
	globalManager.eventQueueSize.Set(float64(n))
}

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, status string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(seconds)
}

// GetRegistry returns the custom registry the global manager uses, for
// wiring the /metrics handler.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
