// Package fulfilment works the batch queue: it claims batches of accepted
// order items, drives each item through its processor and records produced
// files, then acknowledges the batch. It also hosts the scheduled
// maintenance sweeps for expiry and purging.
package fulfilment

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/earthsight/oseo-server/config"
	"github.com/earthsight/oseo-server/dao"
	"github.com/earthsight/oseo-server/metadata/models"
	"github.com/earthsight/oseo-server/processor"
)

// Engine polls the batch queue with a pool of workers. Item processing is
// idempotent, so a batch redelivered after a lease expiry or a crash picks
// up where the previous attempt stopped.
type Engine struct {
	DAO        dao.DAO
	Ordering   *config.OrderingConfiguration
	Conf       config.FulfilmentConfiguration
	Processors *processor.Registry
	Logger     *zap.Logger
}

// NewEngine constructs an Engine.
func NewEngine(d dao.DAO, ordering *config.OrderingConfiguration, conf config.FulfilmentConfiguration, registry *processor.Registry, logger *zap.Logger) *Engine {
	return &Engine{
		DAO:        d,
		Ordering:   ordering,
		Conf:       conf,
		Processors: registry,
		Logger:     logger.With(zap.String("component", "fulfilment")),
	}
}

// Run blocks working the queue until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < e.Conf.Workers; i++ {
		worker := i
		group.Go(func() error { return e.runWorker(ctx, worker) })
	}
	return group.Wait()
}

func (e *Engine) runWorker(ctx context.Context, id int) error {
	logger := e.Logger.With(zap.Int("worker", id))
	for {
		processed, err := e.ProcessOne(ctx)
		if err != nil {
			logger.Error("batch processing error", zap.Error(err))
		}
		if processed && err == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.Conf.PollInterval()):
		}
	}
}

// ProcessOne claims one batch and works it to completion. It reports false
// when the queue was empty.
func (e *Engine) ProcessOne(ctx context.Context) (bool, error) {
	// The lease only has to outlive the common case; overruns cause a
	// harmless redelivery of an idempotent batch.
	lease := e.Conf.ItemDeadline() * 2
	batch, err := e.DAO.DequeueBatch(lease)
	if err != nil {
		return false, err
	}
	if batch == nil {
		return false, nil
	}

	logger := e.Logger.With(zap.Int64("batchId", batch.ID), zap.Int64("orderId", batch.OrderID))
	order, err := e.DAO.GetOrder(batch.OrderID)
	if err != nil {
		return true, err
	}

	for i, item := range batch.Items {
		if item.Status.IsTerminal() {
			// replayed batch, this item is already settled
			continue
		}

		// cooperative cancellation between items
		fresh, err := e.DAO.GetOrder(order.ID)
		if err != nil {
			return true, err
		}
		if fresh.CancelRequested {
			e.cancelRemaining(batch.Items[i:])
			if _, err := e.DAO.CancelOrder(order.ID); err != nil && err != dao.ErrTerminalOrder {
				logger.Error("could not finalise cancellation", zap.Error(err))
			}
			logger.Info("batch cancelled")
			break
		}

		if err := e.processItem(ctx, order, item); err != nil {
			logger.Warn("item failed",
				zap.String("itemId", item.ItemID), zap.Error(err))
		}
	}

	if err := e.DAO.AckBatch(batch.ID); err != nil {
		return true, err
	}
	logger.Info("batch complete", zap.Int("items", len(batch.Items)))
	return true, nil
}

// processItem drives one order item to Completed or Failed.
func (e *Engine) processItem(ctx context.Context, order models.Order, item models.OrderItem) error {
	proc, err := e.processorFor(order, item)
	if err != nil {
		failure := models.ToNullString(err.Error())
		if uerr := e.DAO.UpdateOrderItemStatus(item.ID, models.StatusFailed, failure); uerr != nil {
			return uerr
		}
		return err
	}

	if err := e.DAO.UpdateOrderItemStatus(item.ID, models.StatusInProduction, models.NullString{}); err != nil {
		return err
	}

	req := e.buildRequest(order, item)
	urls, details, err := e.processWithRetry(ctx, proc, req)
	if err != nil {
		failure := models.ToNullString(err.Error())
		if uerr := e.DAO.UpdateOrderItemStatus(item.ID, models.StatusFailed, failure); uerr != nil {
			return uerr
		}
		return err
	}

	expiry := e.fileExpiry(order.OrderType)
	for _, url := range urls {
		file := models.OseoFile{
			OrderItemID: item.ID,
			URL:         url,
			Name:        baseName(url),
			ExpiresOn:   expiry,
		}
		if _, err := e.DAO.CreateOseoFile(&file); err != nil {
			return err
		}
	}
	return e.DAO.UpdateOrderItemStatus(item.ID, models.StatusCompleted, models.ToNullString(details))
}

// processWithRetry calls the processor under the per-item deadline, retrying
// transient failures with exponential backoff.
func (e *Engine) processWithRetry(ctx context.Context, proc processor.ItemProcessor, req processor.Request) ([]string, string, error) {
	var lastErr error
	for attempt := 0; attempt <= e.Conf.MaxItemRetries; attempt++ {
		if attempt > 0 {
			backoff := e.Conf.RetryBackoff() << uint(attempt-1)
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		itemCtx, cancel := context.WithTimeout(ctx, e.Conf.ItemDeadline())
		urls, details, err := proc.ProcessItemOnlineAccess(itemCtx, req)
		cancel()
		if err == nil {
			return urls, details, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
	}
	return nil, "", lastErr
}

func (e *Engine) cancelRemaining(items []models.OrderItem) {
	info := models.ToNullString("cancelled on request")
	for _, item := range items {
		if item.Status.IsTerminal() {
			continue
		}
		if err := e.DAO.UpdateOrderItemStatus(item.ID, models.StatusCancelled, info); err != nil {
			e.Logger.Error("could not cancel item", zap.Int64("itemId", item.ID), zap.Error(err))
		}
	}
}

func (e *Engine) processorFor(order models.Order, item models.OrderItem) (processor.ItemProcessor, error) {
	var collection *config.CollectionConfiguration
	if item.CollectionID.Valid {
		collection, _ = e.Ordering.CollectionByID(item.CollectionID.String)
	}
	name := e.Ordering.ProcessorFor(collection, order.OrderType)
	if name == "" {
		name = processor.DirectoryProcessorName
	}
	return e.Processors.Get(name)
}

func (e *Engine) buildRequest(order models.Order, item models.OrderItem) processor.Request {
	options := make(map[string]string)
	for _, o := range order.Options {
		options[o.Name] = o.Value
	}
	for _, o := range item.Options {
		options[o.Name] = o.Value
	}
	delivery := item.DeliveryOptions
	if len(delivery) == 0 {
		delivery = order.DeliveryOptions
	}
	return processor.Request{
		Identifier:      item.Identifier.String,
		ItemID:          item.ItemID,
		OrderID:         order.ID,
		Username:        order.Username,
		Packaging:       order.Packaging.String,
		Options:         options,
		DeliveryOptions: delivery,
	}
}

func (e *Engine) fileExpiry(t models.OrderType) models.NullTime {
	otc, ok := e.Ordering.OrderType(t)
	if !ok || otc.ItemAvailabilityDays <= 0 {
		return models.NullTime{}
	}
	return models.ToNullTime(time.Now().UTC().Add(time.Duration(otc.ItemAvailabilityDays) * 24 * time.Hour))
}

func baseName(url string) string {
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			return url[i+1:]
		}
	}
	return url
}
