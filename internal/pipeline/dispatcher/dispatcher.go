// Package dispatcher delivers match notifications to suppliers over the
// configured channels with bounded retries. Delivery failures degrade: the
// record captures the outcome and the pipeline run keeps going.
package dispatcher

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rfq-pipeline/internal/common/config"
	"rfq-pipeline/internal/common/errors"
	"rfq-pipeline/internal/common/logger"
	"rfq-pipeline/internal/common/metrics"
	"rfq-pipeline/internal/models"
)

type Dispatcher struct {
	channels []Channel // priority order, first reachable wins
	store    RecordStorer
	cfg      config.NotificationConfig
	logger   logger.Logger
	sleep    func(time.Duration)
	now      func() time.Time
}

func New(channels []Channel, store RecordStorer, cfg config.NotificationConfig, log logger.Logger) *Dispatcher {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = 2000
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 10000
	}
	return &Dispatcher{
		channels: channels,
		store:    store,
		cfg:      cfg,
		logger:   log,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Notify delivers one match notification. The returned record reflects the
// final delivery state; a non-nil error means the record itself could not be
// stored, never that delivery failed.
func (d *Dispatcher) Notify(ctx context.Context, rfq models.RFQRequest, match models.MatchResult, supplier models.SupplierProfile) (models.NotificationRecord, error) {
	channel, recipient := d.pickChannel(supplier)

	// record writes survive run cancellation: whatever happened to an
	// attempt must end up in the store
	storeCtx := context.WithoutCancel(ctx)

	now := d.now().UTC()
	rec := models.NotificationRecord{
		ID:         uuid.NewString(),
		RFQID:      match.RFQID,
		SupplierID: supplier.ID,
		Status:     models.NotificationPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if channel == nil {
		rec.Channel = models.ChannelEmail
		d.transition(&rec, models.NotificationFailed)
		rec.LastError = "supplier has no reachable notification channel"
		d.logger.Warn("no reachable channel for supplier", map[string]interface{}{
			"rfqId":      match.RFQID,
			"supplierId": supplier.ID,
		})
		if err := d.store.Insert(storeCtx, rec); err != nil {
			return rec, err
		}
		return rec, nil
	}

	rec.Channel = channel.Name()
	if err := d.store.Insert(storeCtx, rec); err != nil {
		return rec, err
	}

	payload := buildPayload(rfq, match, supplier)
	delay := config.GetDuration(d.cfg.BaseDelay)

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			d.transition(&rec, models.NotificationFailed)
			rec.LastError = ctx.Err().Error()
			return rec, d.store.Update(storeCtx, rec)
		}

		rec.Attempts++
		err := d.send(ctx, channel, recipient, payload)
		if err == nil {
			d.transition(&rec, models.NotificationSent)
			rec.LastError = ""
			metrics.NotificationsSent.WithLabelValues(string(channel.Name())).Inc()
			d.logger.Info("notification delivered", map[string]interface{}{
				"rfqId":      match.RFQID,
				"supplierId": supplier.ID,
				"channel":    channel.Name(),
				"attempts":   rec.Attempts,
			})
			return rec, d.store.Update(storeCtx, rec)
		}

		deliveryErr := errors.NewDeliveryFailedError(string(channel.Name()), err)
		d.transition(&rec, models.NotificationFailed)
		rec.LastError = deliveryErr.Details
		d.logger.Warn("notification attempt failed", map[string]interface{}{
			"rfqId":      match.RFQID,
			"supplierId": supplier.ID,
			"channel":    channel.Name(),
			"attempt":    rec.Attempts,
			"error":      err.Error(),
		})
		if storeErr := d.store.Update(storeCtx, rec); storeErr != nil {
			return rec, storeErr
		}

		if attempt < d.cfg.MaxAttempts {
			d.transition(&rec, models.NotificationPending)
			if storeErr := d.store.Update(storeCtx, rec); storeErr != nil {
				return rec, storeErr
			}
			d.sleep(delay)
			delay *= 2
		}
	}

	metrics.NotificationsFailed.WithLabelValues(
		string(channel.Name()), string(errors.ErrCodeDeliveryFailed)).Inc()
	return rec, nil
}

// transition moves the record along the status state machine
// (pending->sent, pending->failed, failed->pending). An illegal move is a
// programming error: it is logged and the record is left unchanged.
func (d *Dispatcher) transition(rec *models.NotificationRecord, next models.NotificationStatus) {
	if !rec.Status.CanTransitionTo(next) {
		d.logger.Error("illegal notification status transition", map[string]interface{}{
			"notificationId": rec.ID,
			"from":           string(rec.Status),
			"to":             string(next),
		})
		return
	}
	rec.Status = next
	rec.UpdatedAt = d.now().UTC()
}

// pickChannel returns the first configured channel the supplier is
// reachable on.
func (d *Dispatcher) pickChannel(supplier models.SupplierProfile) (Channel, string) {
	for _, ch := range d.channels {
		if recipient, ok := ch.Recipient(supplier); ok {
			return ch, recipient
		}
	}
	return nil, ""
}

// send runs one channel call under the per-call timeout. The call is
// shielded from run cancellation so an attempt already on the wire finishes;
// the loop in Notify stops before the next attempt instead. A timeout counts
// as a failed attempt like any other channel error.
func (d *Dispatcher) send(ctx context.Context, channel Channel, recipient string, payload Payload) error {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.GetDuration(d.cfg.CallTimeout))
	defer cancel()

	err := channel.Send(callCtx, recipient, payload)
	if err != nil && callCtx.Err() == context.DeadlineExceeded {
		return errors.NewChannelTimeoutError(string(channel.Name()))
	}
	return err
}
