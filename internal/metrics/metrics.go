// Package metrics define los collectors Prometheus del servicio: requests
// HTTP y operaciones contra el KV store.
package metrics

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los collectors. Implementa kv.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	kvOperationsTotal   *prometheus.CounterVec
	kvOperationDuration *prometheus.HistogramVec
}

// New registra los collectors en reg (nil = registry global). Registrar dos
// veces sobre el mismo registry reutiliza los collectors existentes.
func New(reg prometheus.Registerer) (*Metrics, error) {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{gatherer: gatherer}
	var err error
	if m.httpRequestsTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})); err != nil {
		return nil, err
	}
	if m.httpRequestDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})); err != nil {
		return nil, err
	}
	if m.httpInflight, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo por método",
	}, []string{"method"})); err != nil {
		return nil, err
	}
	if m.kvOperationsTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kv_operations_total",
		Help: "Operaciones contra el KV store por resultado",
	}, []string{"op", "result"})); err != nil { // result: ok|not_found|exists|error
		return nil, err
	}
	if m.kvOperationDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kv_operation_duration_seconds",
		Help:    "Latencia de las operaciones contra el KV store",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"op"})); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler expone /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveKV registra una operación del KV gateway.
func (m *Metrics) ObserveKV(op, result string, d time.Duration) {
	m.kvOperationsTotal.WithLabelValues(op, result).Inc()
	m.kvOperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// InflightInc/InflightDec siguen los requests en vuelo.
func (m *Metrics) InflightInc(method string) { m.httpInflight.WithLabelValues(method).Inc() }
func (m *Metrics) InflightDec(method string) { m.httpInflight.WithLabelValues(method).Dec() }

// ObserveHTTP registra un request terminado. path debe ser el patrón de la
// ruta (o un path normalizado) para acotar la cardinalidad.
func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	m.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// register registra c; si ya había uno igual retorna el existente.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

var (
	uuidSegmentRE  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}$`)
	hexSegmentRE   = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
	tokenSegmentRE = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
)

// NormalizePath reemplaza segmentos dinámicos (uuids, tokens, números) por
// ":param". Se usa cuando no hay patrón de ruta disponible.
func NormalizePath(p string) string {
	clean := strings.SplitN(p, "?", 2)[0]
	var out []string
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" {
			continue
		}
		if isDynamicSegment(seg) {
			out = append(out, ":param")
		} else {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

func isDynamicSegment(seg string) bool {
	if len(seg) > 48 {
		return true
	}
	if uuidSegmentRE.MatchString(seg) || hexSegmentRE.MatchString(seg) || tokenSegmentRE.MatchString(seg) {
		return true
	}
	if _, err := strconv.Atoi(seg); err == nil {
		return true
	}
	return false
}
