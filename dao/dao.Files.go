package dao

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earthsight/oseo-server/events"
	"github.com/earthsight/oseo-server/metadata/models"
)

// CreateOseoFile persists a produced file. Inserting the same
// (order_item_id, url) pair again refreshes the expiry instead of
// duplicating the row, so work item replays are harmless.
func (dao *DataAccessLayer) CreateOseoFile(file *models.OseoFile) (models.OseoFile, error) {
	var fileID int64
	err := dao.withTransaction("CreateOseoFile", func(tx *sqlx.Tx) ([]events.Event, error) {
		now := time.Now().UTC()
		stmt := `insert into oseo_files
                (order_item_id, url, name, created_on, expires_on, available, download_count)
            values (?, ?, ?, ?, ?, 1, 0)
            on duplicate key update
                id = last_insert_id(id), expires_on = values(expires_on), available = 1`
		result, err := tx.Exec(stmt, file.OrderItemID, file.URL, file.Name, now, file.ExpiresOn)
		if err != nil {
			return nil, err
		}
		fileID, err = result.LastInsertId()
		return nil, err
	})
	if err != nil {
		return models.OseoFile{}, err
	}
	var created models.OseoFile
	err = dao.MetadataDB.Get(&created,
		`select id, order_item_id, url, name, created_on, expires_on, available, download_count
         from oseo_files where id = ?`, fileID)
	return created, err
}

// GetFileByURL retrieves a file by its server-relative URL. Returns
// ErrNoRows when no such file exists.
func (dao *DataAccessLayer) GetFileByURL(url string) (models.OseoFile, error) {
	var file models.OseoFile
	err := dao.MetadataDB.Get(&file,
		`select id, order_item_id, url, name, created_on, expires_on, available, download_count
         from oseo_files where url = ?`, url)
	if err == sql.ErrNoRows {
		return file, ErrNoRows
	}
	return file, err
}

// RecordDownload counts a retrieval of a file. When every file of a
// completed order item has been downloaded at least once the item moves to
// Downloaded and the order state is rederived.
func (dao *DataAccessLayer) RecordDownload(fileID int64) error {
	return dao.withTransaction("RecordDownload", func(tx *sqlx.Tx) ([]events.Event, error) {
		now := time.Now().UTC()

		var file struct {
			ID          int64 `db:"id"`
			OrderItemID int64 `db:"order_item_id"`
		}
		if err := tx.Get(&file,
			`select id, order_item_id from oseo_files where id = ? for update`, fileID); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(
			`update oseo_files set download_count = download_count + 1 where id = ?`, fileID); err != nil {
			return nil, err
		}

		var item struct {
			ID      int64         `db:"id"`
			OrderID int64         `db:"order_id"`
			Status  models.Status `db:"status"`
		}
		if err := tx.Get(&item,
			`select id, order_id, status from order_items where id = ? for update`,
			file.OrderItemID); err != nil {
			return nil, err
		}
		if item.Status != models.StatusCompleted {
			return nil, nil
		}

		var undownloaded int
		if err := tx.Get(&undownloaded,
			`select count(*) from oseo_files
             where order_item_id = ? and available = 1 and download_count = 0`,
			item.ID); err != nil {
			return nil, err
		}
		if undownloaded > 0 {
			return nil, nil
		}

		if err := applyItemStatusInTransaction(tx, item.ID, models.StatusDownloaded, models.NullString{}, now); err != nil {
			return nil, err
		}
		pending := []events.Event{statusChangeEvent(tx, "orderItem", item.ID, item.OrderID, item.Status, models.StatusDownloaded, now)}
		orderEvent, err := rederiveOrderStatusInTransaction(tx, item.OrderID, now)
		if err != nil {
			return nil, err
		}
		if orderEvent != nil {
			pending = append(pending, *orderEvent)
		}
		return pending, nil
	})
}

// ExpireFiles marks files past their expiry as unavailable and returns them
// so the caller can remove the artefacts from disk.
func (dao *DataAccessLayer) ExpireFiles(asOf time.Time) ([]models.OseoFile, error) {
	var expired []models.OseoFile
	err := dao.withTransaction("ExpireFiles", func(tx *sqlx.Tx) ([]events.Event, error) {
		if err := tx.Select(&expired,
			`select id, order_item_id, url, name, created_on, expires_on, available, download_count
             from oseo_files
             where available = 1 and expires_on is not null and expires_on <= ?
             for update`, asOf.UTC()); err != nil {
			return nil, err
		}
		for _, file := range expired {
			if _, err := tx.Exec(
				`update oseo_files set available = 0 where id = ?`, file.ID); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// TerminateUnavailableOrders moves completed orders whose produced files
// have all been unavailable since before the cutoff to Terminated. Returns
// the number of orders terminated.
func (dao *DataAccessLayer) TerminateUnavailableOrders(cutoff time.Time) (int64, error) {
	var terminated int64
	err := dao.withTransaction("TerminateUnavailableOrders", func(tx *sqlx.Tx) ([]events.Event, error) {
		now := time.Now().UTC()
		var orderIDs []int64
		stmt := `select o.id from orders o
            where o.status in (?, ?)
              and exists (
                select 1 from oseo_files f
                inner join order_items i on i.id = f.order_item_id
                where i.order_id = o.id)
              and not exists (
                select 1 from oseo_files f
                inner join order_items i on i.id = f.order_item_id
                where i.order_id = o.id
                  and (f.available = 1 or f.expires_on is null or f.expires_on > ?))
            for update`
		if err := tx.Select(&orderIDs, stmt,
			models.StatusCompleted, models.StatusDownloaded, cutoff.UTC()); err != nil {
			return nil, err
		}
		var pending []events.Event
		for _, orderID := range orderIDs {
			info := models.ToNullString("all produced files expired")
			more, err := terminateOrderInTransaction(tx, orderID, info, now)
			if err != nil {
				return nil, err
			}
			pending = append(pending, more...)
			terminated++
		}
		return pending, nil
	})
	return terminated, err
}

// terminateOrderInTransaction forces an order and its items to Terminated,
// terminal items included. Termination outranks every other terminal state.
func terminateOrderInTransaction(tx *sqlx.Tx, orderID int64, info models.NullString, now time.Time) ([]events.Event, error) {
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
		if row.Status == models.StatusTerminated {
			continue
		}
		if err := applyItemStatusInTransaction(tx, row.ID, models.StatusTerminated, info, now); err != nil {
			return nil, err
		}
		pending = append(pending, statusChangeEvent(tx, "orderItem", row.ID, orderID, row.Status, models.StatusTerminated, now))
	}
	var current models.Status
	if err := tx.Get(&current, `select status from orders where id = ?`, orderID); err != nil {
		return nil, err
	}
	if err := applyOrderStatusInTransaction(tx, orderID, models.StatusTerminated, info, now); err != nil {
		return nil, err
	}
	pending = append(pending, statusChangeEvent(tx, "order", orderID, orderID, current, models.StatusTerminated, now))
	return pending, nil
}

// PurgeFailedOrders deletes failed orders whose last status change predates
// the cutoff, cascading to their items, batches and file records. Returns
// the number of orders removed.
func (dao *DataAccessLayer) PurgeFailedOrders(cutoff time.Time) (int64, error) {
	result, err := dao.MetadataDB.Exec(
		`delete from orders where status = ? and status_changed_on <= ?`,
		models.StatusFailed, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
