package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"expense-tracker-api/internal/platform/rabbitmq"
)

type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// ReceiptCleanupWorker removes receipt objects that no expense references any more.
type ReceiptCleanupWorker struct {
	conn      *amqp.Connection
	store     ObjectDeleter
	queueName string
	log       logrus.FieldLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReceiptCleanupWorker(conn *amqp.Connection, store ObjectDeleter, queueName string, log logrus.FieldLogger) *ReceiptCleanupWorker {
	return &ReceiptCleanupWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		log:       log.WithField("worker", "receipt_cleanup"),
	}
}

func (w *ReceiptCleanupWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.log.WithError(err).Error("receipt cleanup failed")
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *ReceiptCleanupWorker) handle(ctx context.Context, body []byte) error {
	var msg rabbitmq.ReceiptCleanup
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode cleanup message failed: %w", err)
	}
	if msg.ObjectKey == "" {
		return errors.New("cleanup message has no object key")
	}
	if err := w.store.Delete(ctx, msg.ObjectKey); err != nil {
		return err
	}
	w.log.WithFields(logrus.Fields{
		"object_key": msg.ObjectKey,
		"reason":     msg.Reason,
	}).Info("receipt removed")
	return nil
}

func (w *ReceiptCleanupWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
