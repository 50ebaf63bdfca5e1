package dao

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earthsight/oseo-server/events"
	"github.com/earthsight/oseo-server/metadata/models"
)

// ApproveOrder records operator approval on a submitted order, moves it to
// Accepted and enqueues its fulfilment batches.
func (dao *DataAccessLayer) ApproveOrder(orderID int64) (models.Order, error) {
	err := dao.withTransaction("ApproveOrder", func(tx *sqlx.Tx) ([]events.Event, error) {
		now := time.Now().UTC()

		var current models.Status
		if err := tx.Get(&current,
			`select status from orders where id = ? for update`, orderID); err != nil {
			return nil, err
		}
		if current != models.StatusSubmitted {
			return nil, ErrNotApprovable
		}
		if _, err := tx.Exec(`update orders set approved = 1 where id = ?`, orderID); err != nil {
			return nil, err
		}
		pending, err := updateOrderStatusInTransaction(tx, orderID, models.StatusAccepted, models.NullString{}, now)
		if err != nil {
			return nil, err
		}

		var batchIDs []int64
		if err := tx.Select(&batchIDs,
			`select id from batches where order_id = ?`, orderID); err != nil {
			return nil, err
		}
		for _, batchID := range batchIDs {
			if err := enqueueBatchInTransaction(tx, batchID, now); err != nil {
				return nil, err
			}
		}
		return pending, nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return dao.GetOrder(orderID)
}
