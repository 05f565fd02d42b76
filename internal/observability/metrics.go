package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscout_messages_ingested_total",
		Help: "The total number of ingested chat messages",
	}, []string{"channel"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscout_analysis_runs_total",
		Help: "The total number of analysis runs by terminal status",
	}, []string{"status"})

	BatchesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscout_batches_processed_total",
		Help: "The total number of extraction batches by outcome",
	}, []string{"status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leadscout_llm_request_duration_seconds",
		Help:    "Duration of LLM extraction requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMCallRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadscout_llm_call_retries_total",
		Help: "The total number of retried LLM calls",
	})

	LeadsIdentified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscout_leads_identified_total",
		Help: "The total number of leads identified by engagement tier",
	}, []string{"tier"})

	AnalysisBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leadscout_analysis_backlog_size",
		Help: "Number of channels with unanalyzed message backlog",
	})
)
