package sockets

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/OpenListTeam/wazero-netlink/manager/transport"
)

// Metrics counts session lifecycle and traffic. A nil *Metrics records nothing.
type Metrics struct {
	opened   *prometheus.CounterVec
	closed   *prometheus.CounterVec
	sent     *prometheus.CounterVec
	received *prometheus.CounterVec
	drained  prometheus.Counter
}

// NewMetrics creates the collectors under namespace. They are not registered.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		opened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Sessions created by connect, listen, bind or accept.",
		}, []string{"protocol", "role"}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Sessions torn down by disconnect.",
		}, []string{"protocol", "role"}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sent_bytes_total",
			Help:      "Bytes handed to the transport by send and sendTo.",
		}, []string{"protocol"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_bytes_total",
			Help:      "Bytes delivered by receive and receiveFrom.",
		}, []string{"protocol"}),
		drained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drained_bytes_total",
			Help:      "Buffered bytes discarded while disconnecting.",
		}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	var err error
	for _, c := range []prometheus.Collector{m.opened, m.closed, m.sent, m.received, m.drained} {
		err = errors.Join(err, reg.Register(c))
	}
	return err
}

func (m *Metrics) sessionOpened(p transport.Protocol, r transport.Role) {
	if m != nil {
		m.opened.WithLabelValues(p.String(), r.String()).Inc()
	}
}

func (m *Metrics) sessionClosed(p transport.Protocol, r transport.Role) {
	if m != nil {
		m.closed.WithLabelValues(p.String(), r.String()).Inc()
	}
}

func (m *Metrics) bytesSent(p transport.Protocol, n int) {
	if m != nil && n > 0 {
		m.sent.WithLabelValues(p.String()).Add(float64(n))
	}
}

func (m *Metrics) bytesReceived(p transport.Protocol, n int) {
	if m != nil && n > 0 {
		m.received.WithLabelValues(p.String()).Add(float64(n))
	}
}

func (m *Metrics) bytesDrained(n int) {
	if m != nil && n > 0 {
		m.drained.Add(float64(n))
	}
}
