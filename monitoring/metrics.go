package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType is the kind of a recorded metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

const maxSamples = 1000

const (
	MetricEstimates       = "estimates_total"
	MetricEstimateLatency = "estimate_latency_seconds"
	MetricEstimateAmount  = "estimate_amount"
)

// Metric is one observation.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Help      string            `json:"help,omitempty"`
}

// Summary aggregates the retained samples of one metric.
type Summary struct {
	Name    string    `json:"name"`
	Count   int       `json:"count"`
	Latest  float64   `json:"latest"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Average float64   `json:"average"`
	Updated time.Time `json:"updated"`
}

// series accumulates one labelled series for the Prometheus export. value is
// the counter total or the latest gauge; sum and count feed summaries.
type series struct {
	name   string
	labels map[string]string
	typ    MetricType
	value  float64
	sum    float64
	count  uint64
}

// MetricsCollector keeps the most recent samples per metric in memory.
type MetricsCollector struct {
	metrics     map[string][]*Metric
	series      map[string]*series
	metricsLock sync.RWMutex

	startTime time.Time
	now       func() time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string][]*Metric),
		series:    make(map[string]*series),
		startTime: time.Now(),
		now:       time.Now,
	}
}

func (mc *MetricsCollector) RecordMetric(metric *Metric) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	metric.Timestamp = mc.now()
	samples := append(mc.metrics[metric.Name], metric)
	if len(samples) > maxSamples {
		samples = samples[len(samples)-maxSamples:]
	}
	mc.metrics[metric.Name] = samples

	key := seriesKey(metric.Name, metric.Labels)
	sr, ok := mc.series[key]
	if !ok {
		sr = &series{name: metric.Name, labels: metric.Labels, typ: metric.Type}
		mc.series[key] = sr
	}
	switch metric.Type {
	case MetricTypeCounter:
		sr.value += metric.Value
	default:
		sr.value = metric.Value
	}
	sr.sum += metric.Value
	sr.count++
}

func (mc *MetricsCollector) IncrCounter(name string, value float64, labels map[string]string) {
	mc.RecordMetric(&Metric{Name: name, Type: MetricTypeCounter, Value: value, Labels: labels})
}

func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.RecordMetric(&Metric{Name: name, Type: MetricTypeGauge, Value: value, Labels: labels})
}

func (mc *MetricsCollector) Observe(name string, value float64, labels map[string]string) {
	mc.RecordMetric(&Metric{Name: name, Type: MetricTypeHistogram, Value: value, Labels: labels})
}

// RecordEstimate records the outcome of one pipeline run.
func (mc *MetricsCollector) RecordEstimate(status, errorKind string, took time.Duration, amount float64) {
	labels := map[string]string{"status": status}
	if errorKind != "" {
		labels["kind"] = errorKind
	}
	mc.IncrCounter(MetricEstimates, 1, labels)
	mc.Observe(MetricEstimateLatency, took.Seconds(), map[string]string{"status": status})
	if errorKind == "" {
		mc.Observe(MetricEstimateAmount, amount, nil)
	}
}

// Counter returns the accumulated value of a counter series.
func (mc *MetricsCollector) Counter(name string, labels map[string]string) float64 {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()
	sr, ok := mc.series[seriesKey(name, labels)]
	if !ok || sr.typ != MetricTypeCounter {
		return 0
	}
	return sr.value
}

func (mc *MetricsCollector) GetMetric(name string) ([]*Metric, error) {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	metrics, ok := mc.metrics[name]
	if !ok {
		return nil, fmt.Errorf("metric %s not found", name)
	}

	result := make([]*Metric, len(metrics))
	for i, m := range metrics {
		metricCopy := *m
		result[i] = &metricCopy
	}
	return result, nil
}

func (mc *MetricsCollector) GetMetricSummary(name string) (Summary, error) {
	metrics, err := mc.GetMetric(name)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Name: name, Count: len(metrics)}
	if len(metrics) == 0 {
		return summary, nil
	}

	last := metrics[len(metrics)-1]
	summary.Latest = last.Value
	summary.Updated = last.Timestamp
	summary.Min = metrics[0].Value
	summary.Max = metrics[0].Value

	sum := 0.0
	for _, m := range metrics {
		sum += m.Value
		if m.Value < summary.Min {
			summary.Min = m.Value
		}
		if m.Value > summary.Max {
			summary.Max = m.Value
		}
	}
	summary.Average = sum / float64(len(metrics))
	return summary, nil
}

// Summaries returns a summary per metric name, sorted by name.
func (mc *MetricsCollector) Summaries() []Summary {
	mc.metricsLock.RLock()
	names := make([]string, 0, len(mc.metrics))
	for name := range mc.metrics {
		names = append(names, name)
	}
	mc.metricsLock.RUnlock()
	sort.Strings(names)

	out := make([]Summary, 0, len(names))
	for _, name := range names {
		if s, err := mc.GetMetricSummary(name); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// ExportPrometheus renders every series in the Prometheus text format.
// Counters and gauges keep their type; histogram observations are exported
// as summaries with _sum and _count only.
func (mc *MetricsCollector) ExportPrometheus() string {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	byName := make(map[string][]*series)
	for _, sr := range mc.series {
		byName[sr.name] = append(byName[sr.name], sr)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		family := byName[name]
		sort.Slice(family, func(i, j int) bool {
			return labelString(family[i].labels) < labelString(family[j].labels)
		})

		switch family[0].typ {
		case MetricTypeHistogram:
			fmt.Fprintf(&b, "# TYPE %s summary\n", name)
			for _, sr := range family {
				labels := labelString(sr.labels)
				fmt.Fprintf(&b, "%s_sum%s %g\n", name, labels, sr.sum)
				fmt.Fprintf(&b, "%s_count%s %d\n", name, labels, sr.count)
			}
		default:
			fmt.Fprintf(&b, "# TYPE %s %s\n", name, family[0].typ)
			for _, sr := range family {
				fmt.Fprintf(&b, "%s%s %g\n", name, labelString(sr.labels), sr.value)
			}
		}
	}
	return b.String()
}

func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

func (mc *MetricsCollector) GetSystemStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"uptime":     mc.GetUptime().String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]interface{}{
			"heap_alloc": m.HeapAlloc,
			"heap_sys":   m.HeapSys,
			"gc_count":   m.NumGC,
		},
		"num_cpu": runtime.NumCPU(),
	}
}

func seriesKey(name string, labels map[string]string) string {
	return name + labelString(labels)
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func labelString(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf(`%s="%s"`, k, labelEscaper.Replace(labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
