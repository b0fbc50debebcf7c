package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	webhookRequests    *prometheus.CounterVec
	webhookErrors      *prometheus.CounterVec
	callsAssigned      prometheus.Counter
	gatherOutcomes     *prometheus.CounterVec
	voicemailsRecorded prometheus.Counter
	shiftJobRuns       *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		webhookRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotline_webhook_requests_total",
			Help: "Webhook requests received, by endpoint.",
		}, []string{"endpoint"}),
		webhookErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotline_webhook_errors_total",
			Help: "Webhook handler failures, by endpoint.",
		}, []string{"endpoint"}),
		callsAssigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotline_calls_assigned_total",
			Help: "Task assignments handled, volunteers and voicemail alike.",
		}),
		gatherOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotline_gather_outcomes_total",
			Help: "Volunteer keypad responses, by outcome.",
		}, []string{"outcome"}),
		voicemailsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "hotline_voicemails_recorded_total",
			Help: "Voicemail recordings persisted.",
		}),
		shiftJobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hotline_shift_job_runs_total",
			Help: "Shift and roster job executions, by job and status.",
		}, []string{"job", "status"}),
	}
}

func gatherOutcome(digits string) string {
	switch digits {
	case "1":
		return "accepted"
	case "9":
		return "rejected"
	case "":
		return "timeout"
	}
	return "invalid"
}
