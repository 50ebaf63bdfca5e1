package models

import "time"

// OseoFile is a produced artefact for an order item, retrievable through
// the online access endpoint. (order_item_id, url) is unique, which keeps
// work item replays from duplicating files.
type OseoFile struct {
	ID          int64  `db:"id"`
	OrderItemID int64  `db:"order_item_id"`
	// URL is server-relative: <user>/order_<id:02d>/<name>.
	URL           string    `db:"url"`
	Name          string    `db:"name"`
	CreatedOn     time.Time `db:"created_on"`
	ExpiresOn     NullTime  `db:"expires_on"`
	Available     bool      `db:"available"`
	DownloadCount int       `db:"download_count"`
}
