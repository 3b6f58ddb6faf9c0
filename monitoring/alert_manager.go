package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AlertLevel string

const (
	Warning  AlertLevel = "warning"
	Error    AlertLevel = "error"
	Critical AlertLevel = "critical"
)

// Estimate error kinds that raise alerts.
const (
	KindMissingColumn  = "missing_column"
	KindInferenceError = "inference_error"
)

// Alert is an incident. At most one alert per Kind is active.
type Alert struct {
	ID         string            `json:"id"`
	Kind       string            `json:"kind"`
	Level      AlertLevel        `json:"level"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Count      int               `json:"count"`
	FirstSeen  time.Time         `json:"first_seen"`
	LastSeen   time.Time         `json:"last_seen"`
	Resolved   bool              `json:"resolved"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type AlertStats struct {
	TotalAlerts    int64                `json:"total_alerts"`
	ActiveAlerts   int64                `json:"active_alerts"`
	ResolvedAlerts int64                `json:"resolved_alerts"`
	ByLevel        map[AlertLevel]int64 `json:"by_level"`
	Notifications  int64                `json:"notifications"`
	LastAlertTime  time.Time            `json:"last_alert_time,omitempty"`
}

type AlertOptions struct {
	// WebhookURL receives every notification as a JSON POST. Empty disables it.
	WebhookURL string
	// Cooldown is the minimum time between two notifications of the same kind.
	Cooldown time.Duration
	Hub      *WebSocketHub
	Logger   *zap.Logger
	Client   *http.Client
}

// AlertSystem escalates the estimate failures that need an operator.
type AlertSystem struct {
	mu       sync.RWMutex
	active   map[string]*Alert
	lastSent map[string]time.Time
	stats    AlertStats

	webhook  string
	cooldown time.Duration
	client   *http.Client
	hub      *WebSocketHub
	logger   *zap.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewAlertSystem(opts AlertOptions) *AlertSystem {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Minute
	}
	return &AlertSystem{
		active:   make(map[string]*Alert),
		lastSent: make(map[string]time.Time),
		stats:    AlertStats{ByLevel: make(map[AlertLevel]int64)},
		webhook:  opts.WebhookURL,
		cooldown: opts.Cooldown,
		client:   opts.Client,
		hub:      opts.Hub,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// ObserveEstimate feeds one estimate outcome. A missing column or a failing
// model raises an alert; a successful estimate resolves them.
func (a *AlertSystem) ObserveEstimate(errorKind, requestID, modelVersion string) {
	meta := map[string]string{"request_id": requestID, "model_version": modelVersion}
	switch errorKind {
	case "":
		a.Resolve(KindMissingColumn)
		a.Resolve(KindInferenceError)
	case KindMissingColumn:
		a.Raise(KindMissingColumn, Critical, "Artifact schema drift",
			"an encoded row lacks a column the feature order expects; re-export the artifacts from one training run", meta)
	case KindInferenceError:
		a.Raise(KindInferenceError, Error, "Model inference failing",
			"the regression model returned an error or a non-finite value", meta)
	}
}

// Raise opens an alert of the given kind or bumps the active one.
func (a *AlertSystem) Raise(kind string, level AlertLevel, title, message string, metadata map[string]string) Alert {
	now := a.now()

	a.mu.Lock()
	alert, ok := a.active[kind]
	if ok {
		alert.Count++
		alert.LastSeen = now
		alert.Metadata = metadata
	} else {
		alert = &Alert{
			ID:        uuid.NewString(),
			Kind:      kind,
			Level:     level,
			Title:     title,
			Message:   message,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
			Metadata:  metadata,
		}
		a.active[kind] = alert
		a.stats.TotalAlerts++
		a.stats.ActiveAlerts++
		a.stats.ByLevel[level]++
	}
	a.stats.LastAlertTime = now

	notify := now.Sub(a.lastSent[kind]) >= a.cooldown
	if notify {
		a.lastSent[kind] = now
		a.stats.Notifications++
	}
	snapshot := *alert
	a.mu.Unlock()

	if !ok {
		a.logger.Error("alert raised",
			zap.String("kind", kind),
			zap.String("level", string(level)),
			zap.String("title", title),
			zap.String("message", message),
		)
	}
	if notify {
		a.notify(snapshot)
	}
	return snapshot
}

// Resolve closes the active alert of kind, if any.
func (a *AlertSystem) Resolve(kind string) bool {
	a.mu.Lock()
	alert, ok := a.active[kind]
	if !ok {
		a.mu.Unlock()
		return false
	}
	now := a.now()
	alert.Resolved = true
	alert.ResolvedAt = &now
	delete(a.active, kind)
	a.stats.ActiveAlerts--
	a.stats.ResolvedAlerts++
	snapshot := *alert
	a.mu.Unlock()

	a.logger.Info("alert resolved", zap.String("kind", kind), zap.Int("count", snapshot.Count))
	a.notify(snapshot)
	return true
}

// Active returns the open alerts, oldest first.
func (a *AlertSystem) Active() []Alert {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Alert, 0, len(a.active))
	for _, alert := range a.active {
		out = append(out, *alert)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out
}

func (a *AlertSystem) Stats() AlertStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	stats.ByLevel = make(map[AlertLevel]int64, len(a.stats.ByLevel))
	for level, n := range a.stats.ByLevel {
		stats.ByLevel[level] = n
	}
	return stats
}

// Wait blocks until pending webhook deliveries finish.
func (a *AlertSystem) Wait() {
	a.wg.Wait()
}

func (a *AlertSystem) notify(alert Alert) {
	if a.hub != nil {
		if err := a.hub.Publish(AlertEvent, alert); err != nil {
			a.logger.Warn("publishing alert failed", zap.Error(err))
		}
	}
	if a.webhook == "" {
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.sendWebhook(context.Background(), alert); err != nil {
			a.logger.Warn("alert webhook failed", zap.String("kind", alert.Kind), zap.Error(err))
		}
	}()
}

func (a *AlertSystem) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhook, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
