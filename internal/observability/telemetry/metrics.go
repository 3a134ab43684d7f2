package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	ReadingsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dmrv_readings_ingested_total",
		Help: "Total inverter readings persisted",
	})

	IngestBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dmrv_ingest_batches_total",
		Help: "Total ingestion batch commits by result",
	}, []string{"result"})

	CreditsCalculatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dmrv_credits_calculated_total",
		Help: "Total daily credit calculations",
	})

	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dmrv_verifications_total",
		Help: "Total verification runs by outcome",
	}, []string{"outcome"})

	TonnesCalculatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dmrv_tonnes_co2_total",
		Help: "Total tonnes of CO2 avoided across calculations",
	})

	// Infrastructure metrics
	ProviderFetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dmrv_provider_fetch_failures_total",
		Help: "Failed satellite data provider fetches",
	})

	VerificationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dmrv_verification_latency_seconds",
		Help:    "Latency of a full verification run",
		Buckets: prometheus.DefBuckets,
	})

	IngestBatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dmrv_ingest_batch_latency_seconds",
		Help:    "Latency of one ingestion batch commit",
		Buckets: prometheus.DefBuckets,
	})
)
