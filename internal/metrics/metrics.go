// Package metrics exposes dashboard counters and gauges to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all dashboard collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	channelState      *prometheus.GaugeVec
	channelReconnects *prometheus.CounterVec
	channelMessages   *prometheus.CounterVec
	channelDropped    *prometheus.CounterVec
	streamErrors      *prometheus.CounterVec
	streamClients     *prometheus.GaugeVec
	overlayClients    *prometheus.GaugeVec
	backendErrors     *prometheus.CounterVec
	pollSubscribers   prometheus.Gauge
	pollLogs          prometheus.Counter
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		channelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_ai_channel_state",
			Help: "AI result channel state per camera (0=disconnected, 1=connecting, 2=open, 3=closed pending retry)",
		}, []string{"camera"}),
		channelReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_ai_channel_reconnects_total",
			Help: "Reconnect attempts fired by the AI result channel",
		}, []string{"camera"}),
		channelMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_ai_channel_messages_total",
			Help: "Detection messages applied to the overlay",
		}, []string{"camera"}),
		channelDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_ai_channel_dropped_total",
			Help: "Messages dropped because they were malformed or had no results",
		}, []string{"camera"}),
		streamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_mjpeg_stream_errors_total",
			Help: "MJPEG viewer transitions into the error state",
		}, []string{"camera"}),
		streamClients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_mjpeg_clients",
			Help: "Browsers currently watching the MJPEG proxy",
		}, []string{"camera"}),
		overlayClients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_overlay_clients",
			Help: "Browsers currently subscribed to the overlay socket",
		}, []string{"camera"}),
		backendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_backend_errors_total",
			Help: "Failed requests to the attendance backend",
		}, []string{"operation"}),
		pollSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_attendance_poll_subscribers",
			Help: "Live attendance log subscribers",
		}),
		pollLogs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_attendance_polled_logs_total",
			Help: "New attendance logs received from the backend poll endpoint",
		}),
	}

	m.registry.MustRegister(
		m.channelState, m.channelReconnects, m.channelMessages, m.channelDropped,
		m.streamErrors, m.streamClients, m.overlayClients, m.backendErrors,
		m.pollSubscribers, m.pollLogs,
	)
	return m
}

// ChannelState records the numeric state of a camera's AI channel.
func (m *Metrics) ChannelState(camera string, state int) {
	if m == nil {
		return
	}
	m.channelState.WithLabelValues(camera).Set(float64(state))
}

// ChannelReconnect counts a fired reconnect attempt.
func (m *Metrics) ChannelReconnect(camera string) {
	if m == nil {
		return
	}
	m.channelReconnects.WithLabelValues(camera).Inc()
}

// ChannelMessage counts an applied detection message.
func (m *Metrics) ChannelMessage(camera string) {
	if m == nil {
		return
	}
	m.channelMessages.WithLabelValues(camera).Inc()
}

// ChannelDropped counts an ignored message.
func (m *Metrics) ChannelDropped(camera string) {
	if m == nil {
		return
	}
	m.channelDropped.WithLabelValues(camera).Inc()
}

// StreamError counts a viewer entering the error state.
func (m *Metrics) StreamError(camera string) {
	if m == nil {
		return
	}
	m.streamErrors.WithLabelValues(camera).Inc()
}

// StreamClients adjusts the MJPEG proxy client gauge by delta.
func (m *Metrics) StreamClients(camera string, delta int) {
	if m == nil {
		return
	}
	m.streamClients.WithLabelValues(camera).Add(float64(delta))
}

// OverlayClients adjusts the overlay socket client gauge by delta.
func (m *Metrics) OverlayClients(camera string, delta int) {
	if m == nil {
		return
	}
	m.overlayClients.WithLabelValues(camera).Add(float64(delta))
}

// BackendError counts a failed backend operation.
func (m *Metrics) BackendError(operation string) {
	if m == nil {
		return
	}
	m.backendErrors.WithLabelValues(operation).Inc()
}

// PollSubscribers sets the number of live attendance subscribers.
func (m *Metrics) PollSubscribers(n int) {
	if m == nil {
		return
	}
	m.pollSubscribers.Set(float64(n))
}

// PolledLogs counts logs delivered by the poll endpoint.
func (m *Metrics) PolledLogs(n int) {
	if m == nil {
		return
	}
	m.pollLogs.Add(float64(n))
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (used by tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
