package dao

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earthsight/oseo-server/events"
	"github.com/earthsight/oseo-server/metadata/models"
)

// UpdateOrderItemStatus transitions a single order item and rederives the
// owning order's state as the minimum of its items. Items already in a
// terminal state are left untouched, which makes work item replays safe.
func (dao *DataAccessLayer) UpdateOrderItemStatus(itemID int64, status models.Status, info models.NullString) error {
	return dao.withTransaction("UpdateOrderItemStatus", func(tx *sqlx.Tx) ([]events.Event, error) {
		now := time.Now().UTC()

		var item struct {
			ID      int64            `db:"id"`
			OrderID int64            `db:"order_id"`
			BatchID models.NullInt64 `db:"batch_id"`
			Status  models.Status    `db:"status"`
		}
		if err := tx.Get(&item,
			`select id, order_id, batch_id, status from order_items where id = ? for update`,
			itemID); err != nil {
			return nil, err
		}
		if item.Status.IsTerminal() || item.Status == status {
			return nil, nil
		}

		if err := applyItemStatusInTransaction(tx, itemID, status, info, now); err != nil {
			return nil, err
		}
		pending := []events.Event{statusChangeEvent(tx, "orderItem", itemID, item.OrderID, item.Status, status, now)}

		orderEvent, err := rederiveOrderStatusInTransaction(tx, item.OrderID, now)
		if err != nil {
			return nil, err
		}
		if orderEvent != nil {
			pending = append(pending, *orderEvent)
		}

		if item.BatchID.Valid {
			if err := touchBatchInTransaction(tx, item.BatchID.Int64, now); err != nil {
				return nil, err
			}
		}
		return pending, nil
	})
}

// UpdateOrderStatus transitions an order and all of its non-terminal items
// to the given state. Used by approval, cancellation and termination paths.
func (dao *DataAccessLayer) UpdateOrderStatus(orderID int64, status models.Status, info models.NullString) error {
	return dao.withTransaction("UpdateOrderStatus", func(tx *sqlx.Tx) ([]events.Event, error) {
		return updateOrderStatusInTransaction(tx, orderID, status, info, time.Now().UTC())
	})
}

func updateOrderStatusInTransaction(tx *sqlx.Tx, orderID int64, status models.Status, info models.NullString, now time.Time) ([]events.Event, error) {
	var current models.Status
	if err := tx.Get(&current,
		`select status from orders where id = ? for update`, orderID); err != nil {
		return nil, err
	}
	if current.IsTerminal() {
		return nil, ErrTerminalOrder
	}

	var itemRows []struct {
		ID     int64         `db:"id"`
		Status models.Status `db:"status"`
	}
	if err := tx.Select(&itemRows,
		`select id, status from order_items where order_id = ? for update`, orderID); err != nil {
		return nil, err
	}
	var pending []events.Event
	for _, row := range itemRows {
		if row.Status.IsTerminal() || row.Status == status {
			continue
		}
		if err := applyItemStatusInTransaction(tx, row.ID, status, info, now); err != nil {
			return nil, err
		}
		pending = append(pending, statusChangeEvent(tx, "orderItem", row.ID, orderID, row.Status, status, now))
	}

	if err := applyOrderStatusInTransaction(tx, orderID, status, info, now); err != nil {
		return nil, err
	}
	pending = append(pending, statusChangeEvent(tx, "order", orderID, orderID, current, status, now))
	return pending, nil
}

func applyItemStatusInTransaction(tx *sqlx.Tx, itemID int64, status models.Status, info models.NullString, now time.Time) error {
	stmt := `update order_items
        set status = ?, additional_status_info = ?, status_changed_on = ?
        where id = ?`
	if _, err := tx.Exec(stmt, status, info, now, itemID); err != nil {
		return err
	}
	if status.IsTerminal() {
		_, err := tx.Exec(
			`update order_items set completed_on = ? where id = ? and completed_on is null`,
			now, itemID)
		return err
	}
	return nil
}

func applyOrderStatusInTransaction(tx *sqlx.Tx, orderID int64, status models.Status, info models.NullString, now time.Time) error {
	stmt := `update orders
        set status = ?, additional_status_info = ?, status_changed_on = ?
        where id = ?`
	if _, err := tx.Exec(stmt, status, info, now, orderID); err != nil {
		return err
	}
	if status.IsTerminal() {
		_, err := tx.Exec(
			`update orders set completed_on = ? where id = ? and completed_on is null`,
			now, orderID)
		return err
	}
	return nil
}

// rederiveOrderStatusInTransaction recomputes an order's state as the
// minimum of its items and persists it when it changed. Returns the status
// change event to publish after commit, or nil.
func rederiveOrderStatusInTransaction(tx *sqlx.Tx, orderID int64, now time.Time) (*events.Event, error) {
	var current models.Status
	if err := tx.Get(&current,
		`select status from orders where id = ? for update`, orderID); err != nil {
		return nil, err
	}
	var statuses []models.Status
	if err := tx.Select(&statuses,
		`select status from order_items where order_id = ?`, orderID); err != nil {
		return nil, err
	}
	derived := models.MinimumStatus(statuses)
	if derived == current {
		return nil, nil
	}
	if err := applyOrderStatusInTransaction(tx, orderID, derived, models.NullString{}, now); err != nil {
		return nil, err
	}
	e := statusChangeEvent(tx, "order", orderID, orderID, current, derived, now)
	return &e, nil
}

func touchBatchInTransaction(tx *sqlx.Tx, batchID int64, now time.Time) error {
	if _, err := tx.Exec(
		`update batches set updated_on = ? where id = ?`, now, batchID); err != nil {
		return err
	}
	var statuses []models.Status
	if err := tx.Select(&statuses,
		`select status from order_items where batch_id = ?`, batchID); err != nil {
		return err
	}
	if models.MinimumStatus(statuses).IsTerminal() {
		_, err := tx.Exec(
			`update batches set completed_on = ? where id = ? and completed_on is null`,
			now, batchID)
		return err
	}
	return nil
}

func statusChangeEvent(tx *sqlx.Tx, entity string, id, orderID int64, previous, next models.Status, now time.Time) events.Event {
	var username string
	tx.Get(&username,
		`select u.username from orders o inner join oseo_user u on u.id = o.user_id where o.id = ?`,
		orderID)
	return events.StatusChange{
		Entity:         entity,
		ID:             id,
		OrderID:        orderID,
		PreviousStatus: string(previous),
		NewStatus:      string(next),
		Timestamp:      now.Format(time.RFC3339),
		Username:       username,
	}
}
