package shell

import "sync/atomic"

// SessionMetrics contains atomic metrics for a controller session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type SessionMetrics struct {
	// ExchangeCount indicates the number of completed command exchanges.
	ExchangeCount atomic.Uint64
	// ExchangeErrCount indicates the number of exchanges that ended with a transport error.
	ExchangeErrCount atomic.Uint64
	// EmptyResponseCount indicates the number of exchanges with no visible output.
	EmptyResponseCount atomic.Uint64
	// NegotiationReplyCount indicates the number of negotiation reply writes.
	NegotiationReplyCount atomic.Uint64
	// BytesSent indicates the number of bytes written to the controller.
	BytesSent atomic.Uint64
	// BytesRecv indicates the number of raw bytes read from the controller.
	BytesRecv atomic.Uint64
}

func (m *SessionMetrics) incExchangeCount() {
	m.ExchangeCount.Add(1)
}

func (m *SessionMetrics) incExchangeErrCount() {
	m.ExchangeErrCount.Add(1)
}

func (m *SessionMetrics) incEmptyResponseCount() {
	m.EmptyResponseCount.Add(1)
}

func (m *SessionMetrics) incNegotiationReplyCount() {
	m.NegotiationReplyCount.Add(1)
}

func (m *SessionMetrics) addBytesSent(n int) {
	m.BytesSent.Add(uint64(n)) //nolint:gosec
}

func (m *SessionMetrics) addBytesRecv(n int) {
	m.BytesRecv.Add(uint64(n)) //nolint:gosec
}
