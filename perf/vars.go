package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency        = metric.NewHistogram("1m1s")
	RelaxLatency           = metric.NewHistogram("10m10s")
	SentPacketPerSecond    = metric.NewCounter("10s1s")
	RecvPacketPerSecond    = metric.NewCounter("10s1s")
	SentBytesPerSecond     = metric.NewCounter("10s1s")
	RecvBytesPerSecond     = metric.NewCounter("10s1s")
	DroppedPacketPerSecond = metric.NewCounter("10s1s")
	FloodedPerSecond       = metric.NewCounter("10s1s")
	RouteImprovements      = metric.NewCounter("10m10s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))

	expvar.Publish("dvroute:SentPacket/s", SentPacketPerSecond)
	expvar.Publish("dvroute:RecvPacket/s", RecvPacketPerSecond)
	expvar.Publish("dvroute:SentBytes/s", SentBytesPerSecond)
	expvar.Publish("dvroute:RecvBytes/s", RecvBytesPerSecond)
	expvar.Publish("dvroute:DroppedPacket/s", DroppedPacketPerSecond)
	expvar.Publish("dvroute:Flooded/s", FloodedPerSecond)
	expvar.Publish("dvroute:RouteImprovements", RouteImprovements)
	expvar.Publish("dvroute:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("dvroute:RelaxLatency (µs)", RelaxLatency)
}
