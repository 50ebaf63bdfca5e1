package dao

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earthsight/oseo-server/events"
	"github.com/earthsight/oseo-server/metadata/models"
)

// CancelOrder requests cancellation of an order. Orders not yet picked up by
// a fulfilment worker are cancelled immediately and removed from the batch
// queue. Orders in production only get the cancel flag raised; workers check
// it between items. Cancelling an already cancelled order is a no-op.
func (dao *DataAccessLayer) CancelOrder(orderID int64) (models.Order, error) {
	err := dao.withTransaction("CancelOrder", func(tx *sqlx.Tx) ([]events.Event, error) {
		now := time.Now().UTC()

		var current models.Status
		if err := tx.Get(&current,
			`select status from orders where id = ? for update`, orderID); err != nil {
			return nil, err
		}
		if current == models.StatusCancelled {
			return nil, nil
		}
		if current.IsTerminal() {
			return nil, ErrTerminalOrder
		}

		if _, err := tx.Exec(
			`update orders set cancel_requested = 1 where id = ?`, orderID); err != nil {
			return nil, err
		}

		var inProduction int
		if err := tx.Get(&inProduction,
			`select count(*) from order_items where order_id = ? and status = ?`,
			orderID, models.StatusInProduction); err != nil {
			return nil, err
		}
		if inProduction > 0 {
			return nil, nil
		}

		if _, err := tx.Exec(
			`delete from batch_queue where batch_id in (select id from batches where order_id = ?)`,
			orderID); err != nil {
			return nil, err
		}
		return updateOrderStatusInTransaction(tx, orderID, models.StatusCancelled, models.NullString{}, now)
	})
	if err != nil {
		return models.Order{}, err
	}
	return dao.GetOrder(orderID)
}

// SetCancelRequested raises only the cooperative cancel flag, leaving the
// current lifecycle state untouched.
func (dao *DataAccessLayer) SetCancelRequested(orderID int64) error {
	_, err := dao.MetadataDB.Exec(
		`update orders set cancel_requested = 1 where id = ?`, orderID)
	return err
}

// SetLastDescribeResultAccessRequest records the time of a result access
// inquiry, which drives the nextReady sub-function.
func (dao *DataAccessLayer) SetLastDescribeResultAccessRequest(orderID int64, at time.Time) error {
	_, err := dao.MetadataDB.Exec(
		`update orders set last_describe_result_access_request = ? where id = ?`,
		at.UTC(), orderID)
	return err
}
