// Package pcap turns packet capture files into traffic time series suitable
// for change point detection.
package pcap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	cpio "github.com/hed1ad/gochangepoint/pkg/io"
)

// Metric selects the per-bucket value.
type Metric string

const (
	// Bytes is the total captured length per bucket.
	Bytes Metric = "bytes"
	// Packets is the packet count per bucket.
	Packets Metric = "packets"
	// Payload is the total application payload length per bucket.
	Payload Metric = "payload"
	// InterArrival is the mean nonzero gap in seconds to the previous kept
	// packet.
	InterArrival Metric = "interarrival"
	// SYN counts TCP connection attempts (SYN without ACK).
	SYN Metric = "syn"
	// TTL is the mean IPv4 time-to-live.
	TTL Metric = "ttl"
	// DstPorts counts distinct destination ports.
	DstPorts Metric = "dst_ports"
	// SrcPorts counts distinct source ports.
	SrcPorts Metric = "src_ports"
)

// Metrics lists every supported metric.
func Metrics() []Metric {
	return []Metric{Bytes, Packets, Payload, InterArrival, SYN, TTL, DstPorts, SrcPorts}
}

// ParseMetric validates a metric name.
func ParseMetric(name string) (Metric, error) {
	for _, m := range Metrics() {
		if Metric(name) == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown traffic metric %q", name)
}

type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Reader aggregates a capture into fixed-width time buckets.
type Reader struct {
	closer    io.Closer
	src       io.Reader
	bucket    time.Duration
	metric    Metric
	protocol  string
	extractor cpio.FeatureExtractor
}

// Option configures a Reader.
type Option func(*Reader)

// WithBucket sets the bucket width.
func WithBucket(d time.Duration) Option {
	return func(r *Reader) {
		r.bucket = d
	}
}

// WithMetric sets the per-bucket value.
func WithMetric(m Metric) Option {
	return func(r *Reader) {
		r.metric = m
	}
}

// WithProtocol keeps only "tcp", "udp" or "icmp" packets. Empty keeps all.
func WithProtocol(p string) Option {
	return func(r *Reader) {
		r.protocol = p
	}
}

// NewFileReader opens a pcap or pcapng file.
func NewFileReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := NewReader(file, opts...)
	r.closer = file
	return r, nil
}

// NewReader reads a capture from src.
func NewReader(src io.Reader, opts ...Option) *Reader {
	r := &Reader{
		src:       src,
		bucket:    time.Second,
		metric:    Bytes,
		extractor: NewFeatureExtractor(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read returns one row per bucket: [seconds since first packet, value].
// Empty buckets between packets are kept as zero rows.
func (r *Reader) Read() ([][]float64, error) {
	if r.bucket <= 0 {
		return nil, fmt.Errorf("bucket width must be positive, got %v", r.bucket)
	}
	if _, err := ParseMetric(string(r.metric)); err != nil {
		return nil, err
	}

	source, err := openSource(r.src)
	if err != nil {
		return nil, err
	}

	var (
		start   time.Time
		buckets []*bucketStats
	)
	for {
		data, ci, err := source.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		packet := gopacket.NewPacket(data, source.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		if md := packet.Metadata(); md != nil {
			md.CaptureInfo = ci
		}
		if r.protocol != "" && protocolName(protocolCode(packet)) != r.protocol {
			continue
		}

		features, err := r.extractor.Extract(packet)
		if err != nil {
			return nil, err
		}

		if start.IsZero() {
			start = ci.Timestamp
		}
		idx := int(ci.Timestamp.Sub(start) / r.bucket)
		if idx < 0 {
			idx = 0
		}
		for len(buckets) <= idx {
			buckets = append(buckets, &bucketStats{})
		}
		buckets[idx].add(features)
	}

	rows := make([][]float64, len(buckets))
	for i, b := range buckets {
		rows[i] = []float64{(time.Duration(i) * r.bucket).Seconds(), b.value(r.metric)}
	}
	return rows, nil
}

// bucketStats accumulates the packets of one bucket.
type bucketStats struct {
	packets  int
	bytes    float64
	payload  float64
	gapSum   float64
	gaps     int
	syn      int
	ttlSum   float64
	ttls     int
	dstPorts map[float64]struct{}
	srcPorts map[float64]struct{}
}

func (b *bucketStats) add(f []float64) {
	b.packets++
	b.bytes += f[FeaturePacketSize]
	b.payload += f[FeaturePayloadSize]

	if f[FeatureInterArrival] > 0 {
		b.gapSum += f[FeatureInterArrival]
		b.gaps++
	}
	if flags := int(f[FeatureTCPFlags]); flags&flagSYN != 0 && flags&flagACK == 0 {
		b.syn++
	}
	if f[FeatureTTL] > 0 {
		b.ttlSum += f[FeatureTTL]
		b.ttls++
	}

	// Port features are zero when the packet has no TCP or UDP layer.
	if f[FeatureProtocol] == protoTCP || f[FeatureProtocol] == protoUDP {
		if b.dstPorts == nil {
			b.dstPorts = make(map[float64]struct{})
			b.srcPorts = make(map[float64]struct{})
		}
		b.dstPorts[f[FeatureDstPort]] = struct{}{}
		b.srcPorts[f[FeatureSrcPort]] = struct{}{}
	}
}

func (b *bucketStats) value(m Metric) float64 {
	switch m {
	case Packets:
		return float64(b.packets)
	case Payload:
		return b.payload
	case InterArrival:
		if b.gaps == 0 {
			return 0
		}
		return b.gapSum / float64(b.gaps)
	case SYN:
		return float64(b.syn)
	case TTL:
		if b.ttls == 0 {
			return 0
		}
		return b.ttlSum / float64(b.ttls)
	case DstPorts:
		return float64(len(b.dstPorts))
	case SrcPorts:
		return float64(len(b.srcPorts))
	default:
		return b.bytes
	}
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// openSource picks the pcapng or classic pcap decoder from the magic number.
func openSource(src io.Reader) (packetSource, error) {
	br := bufio.NewReader(src)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading capture header: %w", err)
	}

	if magic[0] == 0x0a && magic[1] == 0x0d && magic[2] == 0x0d && magic[3] == 0x0a {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, err
		}
		return ng, nil
	}

	classic, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, err
	}
	return classic, nil
}

const (
	protoICMP = 1
	protoTCP  = 6
	protoUDP  = 17
)

// protocolCode returns the IP protocol number of the transport layer, or 0.
func protocolCode(packet gopacket.Packet) float64 {
	switch {
	case packet.Layer(layers.LayerTypeTCP) != nil:
		return protoTCP
	case packet.Layer(layers.LayerTypeUDP) != nil:
		return protoUDP
	case packet.Layer(layers.LayerTypeICMPv4) != nil:
		return protoICMP
	default:
		return 0
	}
}

func protocolName(code float64) string {
	switch code {
	case protoTCP:
		return "tcp"
	case protoUDP:
		return "udp"
	case protoICMP:
		return "icmp"
	default:
		return ""
	}
}

// Feature indices of FeatureExtractor.Extract.
const (
	FeaturePacketSize = iota
	FeatureInterArrival
	FeatureProtocol
	FeatureSrcPort
	FeatureDstPort
	FeatureTCPFlags
	FeatureTTL
	FeaturePayloadSize
)

// FeatureExtractor extracts numerical features from network packets.
type FeatureExtractor struct {
	lastTimestamp time.Time
}

var _ cpio.FeatureExtractor = (*FeatureExtractor)(nil)

// NewFeatureExtractor creates a new packet feature extractor.
func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

// Extract converts a gopacket.Packet to a feature vector indexed by the
// Feature constants. The inter-arrival feature is measured from the previous
// packet given to the same extractor.
func (e *FeatureExtractor) Extract(data any) ([]float64, error) {
	packet, ok := data.(gopacket.Packet)
	if !ok {
		return nil, fmt.Errorf("pcap: cannot extract features from %T", data)
	}

	features := make([]float64, len(e.FeatureNames()))
	features[FeaturePacketSize] = float64(len(packet.Data()))
	features[FeatureProtocol] = protocolCode(packet)

	metadata := packet.Metadata()
	if metadata != nil && !metadata.Timestamp.IsZero() {
		if !e.lastTimestamp.IsZero() {
			features[FeatureInterArrival] = metadata.Timestamp.Sub(e.lastTimestamp).Seconds()
		}
		e.lastTimestamp = metadata.Timestamp
	}

	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp := tcpLayer.(*layers.TCP)
		features[FeatureSrcPort] = float64(tcp.SrcPort)
		features[FeatureDstPort] = float64(tcp.DstPort)
		features[FeatureTCPFlags] = encodeTCPFlags(tcp)
	} else if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp := udpLayer.(*layers.UDP)
		features[FeatureSrcPort] = float64(udp.SrcPort)
		features[FeatureDstPort] = float64(udp.DstPort)
	}

	if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		features[FeatureTTL] = float64(ipLayer.(*layers.IPv4).TTL)
	}

	if appLayer := packet.ApplicationLayer(); appLayer != nil {
		features[FeaturePayloadSize] = float64(len(appLayer.Payload()))
	}

	return features, nil
}

// FeatureNames returns the names of extracted features.
func (e *FeatureExtractor) FeatureNames() []string {
	return []string{
		"packet_size",
		"inter_arrival_time",
		"protocol",
		"src_port",
		"dst_port",
		"tcp_flags",
		"ip_ttl",
		"payload_size",
	}
}

// TCP flag bits of the tcp_flags feature.
const (
	flagSYN = 1 << iota
	flagACK
	flagFIN
	flagRST
	flagPSH
	flagURG
)

// encodeTCPFlags packs the TCP flags into the flag bits above.
func encodeTCPFlags(tcp *layers.TCP) float64 {
	var flags int
	for _, f := range []struct {
		set bool
		bit int
	}{
		{tcp.SYN, flagSYN},
		{tcp.ACK, flagACK},
		{tcp.FIN, flagFIN},
		{tcp.RST, flagRST},
		{tcp.PSH, flagPSH},
		{tcp.URG, flagURG},
	} {
		if f.set {
			flags |= f.bit
		}
	}
	return float64(flags)
}
