package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	inactivity "sensor-cloud/internal/inactivity/domain"
	sweepmetrics "sensor-cloud/internal/inactivity/metrics"
	readings "sensor-cloud/internal/readings/domain"
	sensors "sensor-cloud/internal/sensors/domain"
)

// SensorSource loads the full sensor roster with the location join.
type SensorSource interface {
	ListWithLocations(ctx context.Context) ([]sensors.Sensor, error)
}

// ReadingSource loads reading stamps inside the trailing window.
type ReadingSource interface {
	RecentStamps(ctx context.Context, since time.Time) ([]readings.Stamp, error)
}

// StatusWriter bulk-updates the persisted sensor status.
type StatusWriter interface {
	UpdateStatusByIDs(ctx context.Context, ids []string, status string, now time.Time) error
}

// AlertLedger reads and appends alert history rows.
type AlertLedger interface {
	HasRecent(ctx context.Context, sensorID, kind string, since time.Time) (bool, error)
	Append(ctx context.Context, record *inactivity.AlertRecord) error
}

// RecipientDirectory lists the addresses to notify.
type RecipientDirectory interface {
	ListEmails(ctx context.Context) ([]string, error)
}

// AlertSender delivers one alert to one recipient.
type AlertSender interface {
	Send(ctx context.Context, sensor sensors.Sensor, recipient string) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Result summarizes one sweep.
type Result struct {
	Message         string    `json:"message"`
	SensorsChecked  int       `json:"sensorsChecked"`
	InactiveSensors int       `json:"inactiveSensors"`
	AlertsSent      int       `json:"alertsSent"`
	Errors          []string  `json:"errors,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Sweeper runs the inactive-sensor check: load a snapshot, classify, write the
// cached status back, then send deduplicated alerts. The whole sweep is
// sequential; storage and the send channel are the only collaborators.
//
// Dedup is sensor-level: one ledger row for a sensor suppresses every
// recipient for the rest of the window, including recipients added after the
// row was written. That mirrors the product behavior and is intentional.
type Sweeper struct {
	sensors    SensorSource
	readings   ReadingSource
	statuses   StatusWriter
	ledger     AlertLedger
	recipients RecipientDirectory
	sender     AlertSender
	clock      Clock
	logger     *log.Logger
	metrics    *sweepmetrics.Metrics
	window     time.Duration
}

// SweeperOption customizes the sweeper.
type SweeperOption func(*Sweeper)

// WithClock assigns a clock.
func WithClock(clock Clock) SweeperOption {
	return func(s *Sweeper) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithWindow overrides the freshness window.
func WithWindow(window time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithMetrics attaches sweep metrics.
func WithMetrics(m *sweepmetrics.Metrics) SweeperOption {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// NewSweeper constructs a sweeper.
func NewSweeper(sensorSource SensorSource, readingSource ReadingSource, statuses StatusWriter, ledger AlertLedger, recipients RecipientDirectory, sender AlertSender, logger *log.Logger, opts ...SweeperOption) (*Sweeper, error) {
	if sensorSource == nil {
		return nil, errors.New("sweep: nil sensor source")
	}
	if readingSource == nil {
		return nil, errors.New("sweep: nil reading source")
	}
	if statuses == nil {
		return nil, errors.New("sweep: nil status writer")
	}
	if ledger == nil {
		return nil, errors.New("sweep: nil alert ledger")
	}
	if recipients == nil {
		return nil, errors.New("sweep: nil recipient directory")
	}
	if sender == nil {
		return nil, errors.New("sweep: nil alert sender")
	}
	if logger == nil {
		logger = log.Default()
	}
	sweeper := &Sweeper{
		sensors:    sensorSource,
		readings:   readingSource,
		statuses:   statuses,
		ledger:     ledger,
		recipients: recipients,
		sender:     sender,
		clock:      systemClock{},
		logger:     logger,
		window:     24 * time.Hour,
	}
	for _, opt := range opts {
		opt(sweeper)
	}
	return sweeper, nil
}

// Run executes one sweep with the given reference time. The only fatal
// failure is the roster fetch; everything after it degrades per sensor or per
// recipient and is reported in the result instead of returned as an error.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (Result, error) {
	if s == nil {
		return Result{}, errors.New("sweep: nil sweeper")
	}
	now = now.UTC()
	since := now.Add(-s.window)
	started := s.clock.Now()

	roster, err := s.sensors.ListWithLocations(ctx)
	if err != nil {
		s.observe("error", started)
		return Result{}, fmt.Errorf("fetch sensors: %w", err)
	}
	if len(roster) == 0 {
		s.observe("success", started)
		return Result{
			Message:   "No sensors to check",
			Timestamp: now,
		}, nil
	}

	// Best-effort: a failed readings fetch degrades to an empty set, which
	// makes every sensor look inactive this cycle rather than aborting.
	recentIDs := make(map[string]struct{})
	stamps, err := s.readings.RecentStamps(ctx, since)
	if err != nil {
		s.logger.Printf("sweep: recent readings fetch failed, treating as empty: %v", err)
	} else {
		for _, stamp := range stamps {
			recentIDs[stamp.SensorID] = struct{}{}
		}
	}

	classification := Classify(roster, recentIDs)
	s.logger.Printf("sweep: %d inactive of %d sensors", len(classification.Inactive), len(roster))

	s.reconcile(ctx, classification, now)

	result := Result{
		Message:         "Inactive sensor check completed",
		SensorsChecked:  len(roster),
		InactiveSensors: len(classification.Inactive),
		Timestamp:       now,
	}
	s.dispatch(ctx, classification.Inactive, since, &result)

	s.observe("success", started)
	if s.metrics != nil {
		s.metrics.InactiveSensors.Set(float64(result.InactiveSensors))
		s.metrics.AlertsSentTotal.Add(float64(result.AlertsSent))
	}
	return result, nil
}

// reconcile refreshes the persisted status cache. Failures only affect the
// informational label; alerting keeps using the in-memory classification.
func (s *Sweeper) reconcile(ctx context.Context, c Classification, now time.Time) {
	if ids := IDs(c.Inactive); len(ids) > 0 {
		if err := s.statuses.UpdateStatusByIDs(ctx, ids, sensors.StatusInactive, now); err != nil {
			s.logger.Printf("sweep: inactive status update failed: %v", err)
		}
	}
	if ids := IDs(c.Active); len(ids) > 0 {
		if err := s.statuses.UpdateStatusByIDs(ctx, ids, sensors.StatusActive, now); err != nil {
			s.logger.Printf("sweep: active status update failed: %v", err)
		}
	}
}

func (s *Sweeper) dispatch(ctx context.Context, inactive []sensors.Sensor, since time.Time, result *Result) {
	for _, sensor := range inactive {
		alerted, err := s.ledger.HasRecent(ctx, sensor.ID, inactivity.KindInactiveSensor, since)
		if err != nil {
			s.logger.Printf("sweep: ledger check failed for sensor %s: %v", sensor.ID, err)
			continue
		}
		if alerted {
			s.logger.Printf("sweep: alert already sent for sensor %s in window, skipping", sensor.Name)
			continue
		}

		emails, err := s.recipients.ListEmails(ctx)
		if err != nil || len(emails) == 0 {
			if err != nil {
				s.logger.Printf("sweep: recipient fetch failed: %v", err)
			}
			continue
		}

		for _, email := range emails {
			if email == "" {
				continue
			}
			if err := s.sender.Send(ctx, sensor, email); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to send alert to %s: %v", email, err))
				if s.metrics != nil {
					s.metrics.SendErrorsTotal.Inc()
				}
				// No ledger row on failure: the sensor-level check above only
				// short-circuits once some send succeeded, so this recipient
				// stays eligible on the next sweep.
				continue
			}
			record := &inactivity.AlertRecord{
				ID:        uuid.NewString(),
				SensorID:  sensor.ID,
				Kind:      inactivity.KindInactiveSensor,
				Recipient: email,
				SentAt:    s.clock.Now().UTC(),
			}
			if err := s.ledger.Append(ctx, record); err != nil {
				s.logger.Printf("sweep: ledger append failed for sensor %s: %v", sensor.ID, err)
			}
			result.AlertsSent++
			s.logger.Printf("sweep: alert sent to %s for sensor %s", email, sensor.Name)
		}
	}
}

func (s *Sweeper) observe(status string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.SweepsTotal.WithLabelValues(status).Inc()
	s.metrics.SweepDuration.Observe(s.clock.Now().Sub(started).Seconds())
}
