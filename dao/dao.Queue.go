package dao

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earthsight/oseo-server/events"
	"github.com/earthsight/oseo-server/metadata/models"
)

// EnqueueBatch adds a batch to the durable fulfilment queue. Enqueueing a
// batch that is already queued is a no-op.
func (dao *DataAccessLayer) EnqueueBatch(batchID int64) error {
	return dao.withTransaction("EnqueueBatch", func(tx *sqlx.Tx) ([]events.Event, error) {
		return nil, enqueueBatchInTransaction(tx, batchID, time.Now().UTC())
	})
}

func enqueueBatchInTransaction(tx *sqlx.Tx, batchID int64, now time.Time) error {
	_, err := tx.Exec(
		`insert into batch_queue (batch_id, enqueued_on) values (?, ?)
         on duplicate key update batch_id = batch_id`,
		batchID, now)
	return err
}

// DequeueBatch claims the oldest workable queue entry and returns the batch
// with its items, options and files loaded. A nil batch means the queue is
// empty. The claim expires after leaseDuration so batches held by a crashed
// worker are redelivered.
func (dao *DataAccessLayer) DequeueBatch(leaseDuration time.Duration) (*models.Batch, error) {
	var batchID int64
	claimed := false
	err := dao.withTransaction("DequeueBatch", func(tx *sqlx.Tx) ([]events.Event, error) {
		now := time.Now().UTC()
		err := tx.Get(&batchID,
			`select batch_id from batch_queue
             where leased_until is null or leased_until <= ?
             order by enqueued_on, batch_id limit 1 for update`, now)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(
			`update batch_queue set leased_until = ? where batch_id = ?`,
			now.Add(leaseDuration), batchID); err != nil {
			return nil, err
		}
		claimed = true
		return nil, nil
	})
	if err != nil || !claimed {
		return nil, err
	}
	batch, err := getBatchByID(dao.MetadataDB, batchID)
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// AckBatch removes a fully processed batch from the queue.
func (dao *DataAccessLayer) AckBatch(batchID int64) error {
	_, err := dao.MetadataDB.Exec(
		`delete from batch_queue where batch_id = ?`, batchID)
	return err
}

func getBatchByID(q sqlxQueryer, batchID int64) (models.Batch, error) {
	var batch models.Batch
	err := q.Get(&batch,
		`select id, order_id, created_on, updated_on, completed_on
         from batches where id = ?`, batchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return batch, ErrNoRows
		}
		return batch, err
	}
	order := models.Order{ID: batch.OrderID}
	if err := loadOrderItems(q, &order); err != nil {
		return batch, err
	}
	for i := range order.Items {
		if order.Items[i].BatchID.Valid && order.Items[i].BatchID.Int64 == batch.ID {
			batch.Items = append(batch.Items, order.Items[i])
		}
	}
	return batch, nil
}
