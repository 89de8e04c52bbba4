// (c) 2024-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes prometheus collectors for the lending core's
// operational counters. A nil *Metrics is a valid no-op sink, so library
// code can record unconditionally.
package metrics

import (
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lend"

// Metrics aggregates the module's collectors.
type Metrics struct {
	distributions     prometheus.Counter
	emissionsCredited prometheus.Counter
	backfillRuns      prometheus.Counter
	gulps             prometheus.Counter
	claims            prometheus.Counter
	claimedTokens     prometheus.Counter
	auctionsCreated   *prometheus.CounterVec
	auctionsFilled    *prometheus.CounterVec
	fillPercent       prometheus.Histogram
	statusChanges     prometheus.Counter
}

// New registers the module collectors on [reg] and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		distributions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "distributions_total",
			Help: "Global emission index advances.",
		}),
		emissionsCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "emissions_credited_tokens",
			Help: "Whole tokens credited by distribute.",
		}),
		backfillRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "backfill_runs_total",
			Help: "Distributions executed without emitter acknowledgement.",
		}),
		gulps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "gulps_total",
			Help: "Pool gulps of the global index.",
		}),
		claims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "claims_total",
			Help: "Emission claims paid out.",
		}),
		claimedTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "claimed_tokens",
			Help: "Whole tokens paid out by claims.",
		}),
		auctionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "auctions_created_total",
			Help: "Auctions created by type.",
		}, []string{"type"}),
		auctionsFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "auctions_filled_total",
			Help: "Auction fills by type.",
		}, []string{"type"}),
		fillPercent: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "auction_fill_percent",
			Help:    "Percent filled per auction fill call.",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		statusChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "pool_status_changes_total",
			Help: "Pool status transitions.",
		}),
	}
	reg.MustRegister(
		m.distributions, m.emissionsCredited, m.backfillRuns,
		m.gulps, m.claims, m.claimedTokens,
		m.auctionsCreated, m.auctionsFilled, m.fillPercent,
		m.statusChanges,
	)
	return m
}

func wholeTokens(amount *uint256.Int) float64 {
	t := new(uint256.Int).Div(amount, uint256.NewInt(1e7))
	return float64(t.Uint64())
}

// ObserveDistribute records a distribute run.
func (m *Metrics) ObserveDistribute(emissions *uint256.Int, backfill bool) {
	if m == nil {
		return
	}
	m.distributions.Inc()
	m.emissionsCredited.Add(wholeTokens(emissions))
	if backfill {
		m.backfillRuns.Inc()
	}
}

// ObserveGulp records a pool gulp.
func (m *Metrics) ObserveGulp(backstopEmis, poolEmis *uint256.Int) {
	if m == nil {
		return
	}
	m.gulps.Inc()
}

// ObserveClaim records an emission claim payout.
func (m *Metrics) ObserveClaim(amount *uint256.Int) {
	if m == nil {
		return
	}
	m.claims.Inc()
	m.claimedTokens.Add(wholeTokens(amount))
}

// ObserveAuctionCreated records an auction creation.
func (m *Metrics) ObserveAuctionCreated(auctionType string) {
	if m == nil {
		return
	}
	m.auctionsCreated.WithLabelValues(auctionType).Inc()
}

// ObserveAuctionFill records an auction fill.
func (m *Metrics) ObserveAuctionFill(auctionType string, percent uint64) {
	if m == nil {
		return
	}
	m.auctionsFilled.WithLabelValues(auctionType).Inc()
	m.fillPercent.Observe(float64(percent))
}

// ObserveStatusChange records a pool status transition.
func (m *Metrics) ObserveStatusChange() {
	if m == nil {
		return
	}
	m.statusChanges.Inc()
}
