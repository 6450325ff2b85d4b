package val

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the optional counter set: packet/byte counters, per-type
// tallies, timeouts (soft/hard), retransmits, crc_errors, handshakes,
// files_sent/recv, and RTT samples. It is a plain mutex-guarded struct
// in steady state — EnableMetrics gates whether the session updates it
// at all — and can optionally be exported to Prometheus via
// NewCollector.
type Metrics struct {
	mu sync.Mutex

	PacketsSent uint64
	PacketsRecv uint64
	BytesSent   uint64
	BytesRecv   uint64

	// perTypeSent/perTypeRecv are indexed by frame type mod 32.
	perTypeSent [32]uint64
	perTypeRecv [32]uint64

	TimeoutsSoft uint64
	TimeoutsHard uint64
	Retransmits  uint64
	CRCErrors    uint64
	Handshakes   uint64
	FilesSent    uint64
	FilesRecv    uint64

	rttSamples []uint32
}

func newMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) recordSend(t frameType, bytes int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PacketsSent++
	m.BytesSent += uint64(bytes)
	m.perTypeSent[byte(t)%32]++
}

func (m *Metrics) recordRecv(t frameType, bytes int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PacketsRecv++
	m.BytesRecv += uint64(bytes)
	m.perTypeRecv[byte(t)%32]++
}

func (m *Metrics) recordTimeoutSoft() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.TimeoutsSoft++
	m.mu.Unlock()
}

func (m *Metrics) recordTimeoutHard() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.TimeoutsHard++
	m.mu.Unlock()
}

func (m *Metrics) recordRetransmit() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.Retransmits++
	m.mu.Unlock()
}

func (m *Metrics) recordCRCError() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.CRCErrors++
	m.mu.Unlock()
}

func (m *Metrics) recordHandshake() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.Handshakes++
	m.mu.Unlock()
}

func (m *Metrics) recordFileSent() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.FilesSent++
	m.mu.Unlock()
}

func (m *Metrics) recordFileRecv() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.FilesRecv++
	m.mu.Unlock()
}

func (m *Metrics) recordRTTSample(ms uint32) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.rttSamples = append(m.rttSamples, ms)
	m.mu.Unlock()
}

// Snapshot returns a copy of the counters, including a copy of the RTT
// samples, safe to read concurrently with an active session.
type MetricsSnapshot struct {
	PacketsSent, PacketsRecv               uint64
	BytesSent, BytesRecv                   uint64
	TimeoutsSoft, TimeoutsHard              uint64
	Retransmits, CRCErrors, Handshakes      uint64
	FilesSent, FilesRecv                    uint64
	RTTSamples                              []uint32
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	samples := make([]uint32, len(m.rttSamples))
	copy(samples, m.rttSamples)
	return MetricsSnapshot{
		PacketsSent: m.PacketsSent, PacketsRecv: m.PacketsRecv,
		BytesSent: m.BytesSent, BytesRecv: m.BytesRecv,
		TimeoutsSoft: m.TimeoutsSoft, TimeoutsHard: m.TimeoutsHard,
		Retransmits: m.Retransmits, CRCErrors: m.CRCErrors, Handshakes: m.Handshakes,
		FilesSent: m.FilesSent, FilesRecv: m.FilesRecv,
		RTTSamples: samples,
	}
}

func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PacketsSent, m.PacketsRecv, m.BytesSent, m.BytesRecv = 0, 0, 0, 0
	m.perTypeSent, m.perTypeRecv = [32]uint64{}, [32]uint64{}
	m.TimeoutsSoft, m.TimeoutsHard, m.Retransmits, m.CRCErrors = 0, 0, 0, 0
	m.Handshakes, m.FilesSent, m.FilesRecv = 0, 0, 0
	m.rttSamples = nil
}

// Collector adapts Metrics to prometheus.Collector, grounded on
// runZeroInc-sockstats' pkg/exporter.TCPInfoCollector: a small set of
// *prometheus.Desc paired with a Collect method that reads the
// mutex-guarded counters under lock.
type Collector struct {
	metrics *Metrics

	packetsSent *prometheus.Desc
	packetsRecv *prometheus.Desc
	bytesSent   *prometheus.Desc
	bytesRecv   *prometheus.Desc
	timeouts    *prometheus.Desc
	retransmits *prometheus.Desc
	crcErrors   *prometheus.Desc
	handshakes  *prometheus.Desc
	filesSent   *prometheus.Desc
	filesRecv   *prometheus.Desc
}

// NewCollector wraps a Session's Metrics for registration into a
// caller-owned *prometheus.Registry. It is entirely optional — a session
// with EnableMetrics=false has no Metrics object (Session.Metrics returns
// nil, and a Collector over a nil *Metrics reports zeros), and callers
// that never touch Prometheus never pay for it beyond the import.
func NewCollector(m *Metrics, constLabels prometheus.Labels) *Collector {
	return &Collector{
		metrics:     m,
		packetsSent: prometheus.NewDesc("val_packets_sent_total", "Frames sent.", nil, constLabels),
		packetsRecv: prometheus.NewDesc("val_packets_recv_total", "Frames received.", nil, constLabels),
		bytesSent:   prometheus.NewDesc("val_bytes_sent_total", "Bytes sent.", nil, constLabels),
		bytesRecv:   prometheus.NewDesc("val_bytes_recv_total", "Bytes received.", nil, constLabels),
		timeouts:    prometheus.NewDesc("val_timeouts_total", "Timeouts by kind.", []string{"kind"}, constLabels),
		retransmits: prometheus.NewDesc("val_retransmits_total", "Go-Back-N retransmissions.", nil, constLabels),
		crcErrors:   prometheus.NewDesc("val_crc_errors_total", "Frames dropped for bad CRC.", nil, constLabels),
		handshakes:  prometheus.NewDesc("val_handshakes_total", "Completed HELLO handshakes.", nil, constLabels),
		filesSent:   prometheus.NewDesc("val_files_sent_total", "Files sent.", nil, constLabels),
		filesRecv:   prometheus.NewDesc("val_files_recv_total", "Files received.", nil, constLabels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packetsSent
	ch <- c.packetsRecv
	ch <- c.bytesSent
	ch <- c.bytesRecv
	ch <- c.timeouts
	ch <- c.retransmits
	ch <- c.crcErrors
	ch <- c.handshakes
	ch <- c.filesSent
	ch <- c.filesRecv
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.metrics.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.packetsSent, prometheus.CounterValue, float64(snap.PacketsSent))
	ch <- prometheus.MustNewConstMetric(c.packetsRecv, prometheus.CounterValue, float64(snap.PacketsRecv))
	ch <- prometheus.MustNewConstMetric(c.bytesSent, prometheus.CounterValue, float64(snap.BytesSent))
	ch <- prometheus.MustNewConstMetric(c.bytesRecv, prometheus.CounterValue, float64(snap.BytesRecv))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(snap.TimeoutsSoft), "soft")
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(snap.TimeoutsHard), "hard")
	ch <- prometheus.MustNewConstMetric(c.retransmits, prometheus.CounterValue, float64(snap.Retransmits))
	ch <- prometheus.MustNewConstMetric(c.crcErrors, prometheus.CounterValue, float64(snap.CRCErrors))
	ch <- prometheus.MustNewConstMetric(c.handshakes, prometheus.CounterValue, float64(snap.Handshakes))
	ch <- prometheus.MustNewConstMetric(c.filesSent, prometheus.CounterValue, float64(snap.FilesSent))
	ch <- prometheus.MustNewConstMetric(c.filesRecv, prometheus.CounterValue, float64(snap.FilesRecv))
}
