package dao

import (
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/earthsight/oseo-server/metadata/models"
)

// sqlxQueryer covers both *sqlx.DB and *sqlx.Tx for read helpers.
type sqlxQueryer interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
}

const orderColumns = `
        o.id, o.order_type, o.user_id, u.username, o.status,
        o.additional_status_info, o.mission_specific_status_info, o.created_on,
        o.status_changed_on, o.completed_on, o.reference, o.packaging,
        o.priority, o.remark, o.approved, o.status_notification,
        o.cancel_requested, o.last_describe_result_access_request`

// GetOrder retrieves an order with its items, options, batches and files.
// Returns ErrNoRows when the order does not exist.
func (dao *DataAccessLayer) GetOrder(orderID int64) (models.Order, error) {
	return getOrderByID(dao.MetadataDB, orderID)
}

func getOrderByID(q sqlxQueryer, orderID int64) (models.Order, error) {
	var order models.Order
	stmt := `select ` + orderColumns + `
        from orders o
        inner join oseo_user u on u.id = o.user_id
        where o.id = ?`
	err := q.Get(&order, stmt, orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return order, ErrNoRows
		}
		return order, err
	}
	if err := loadOrderRelations(q, &order); err != nil {
		return order, err
	}
	return order, nil
}

func loadOrderRelations(q sqlxQueryer, order *models.Order) error {
	if err := q.Select(&order.Options,
		`select id, order_id, order_item_id, name, value
         from selected_options where order_id = ? order by id`, order.ID); err != nil {
		return err
	}
	if err := q.Select(&order.DeliveryOptions,
		`select id, order_id, order_item_id, kind, protocol, package_medium,
                shipping_instructions, copies, annotation, special_instructions
         from selected_delivery_options where order_id = ? order by id`, order.ID); err != nil {
		return err
	}
	if err := loadOrderItems(q, order); err != nil {
		return err
	}
	if err := q.Select(&order.Batches,
		`select id, order_id, created_on, updated_on, completed_on
         from batches where order_id = ? order by id`, order.ID); err != nil {
		return err
	}
	for b := range order.Batches {
		batch := &order.Batches[b]
		for i := range order.Items {
			if order.Items[i].BatchID.Valid && order.Items[i].BatchID.Int64 == batch.ID {
				batch.Items = append(batch.Items, order.Items[i])
			}
		}
	}
	return loadDeliveryInformation(q, order)
}

func loadOrderItems(q sqlxQueryer, order *models.Order) error {
	stmt := `select id, order_id, batch_id, item_id, identifier, collection_id,
            status, additional_status_info, mission_specific_status_info,
            remark, created_on, status_changed_on, completed_on
        from order_items where order_id = ? order by id`
	if err := q.Select(&order.Items, stmt, order.ID); err != nil {
		return err
	}
	for i := range order.Items {
		item := &order.Items[i]
		if err := q.Select(&item.Options,
			`select id, order_id, order_item_id, name, value
             from selected_options where order_item_id = ? order by id`, item.ID); err != nil {
			return err
		}
		if err := q.Select(&item.DeliveryOptions,
			`select id, order_id, order_item_id, kind, protocol, package_medium,
                    shipping_instructions, copies, annotation, special_instructions
             from selected_delivery_options where order_item_id = ? order by id`, item.ID); err != nil {
			return err
		}
		if err := q.Select(&item.Files,
			`select id, order_item_id, url, name, created_on, expires_on,
                    available, download_count
             from oseo_files where order_item_id = ? order by id`, item.ID); err != nil {
			return err
		}
	}
	return nil
}

func loadDeliveryInformation(q sqlxQueryer, order *models.Order) error {
	var row struct {
		ID            int64            `db:"id"`
		OrderID       int64            `db:"order_id"`
		MailAddressID models.NullInt64 `db:"mail_address_id"`
	}
	err := q.Get(&row,
		`select id, order_id, mail_address_id from delivery_information where order_id = ?`,
		order.ID)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if err == nil {
		di := models.DeliveryInformation{ID: row.ID, OrderID: row.OrderID}
		if row.MailAddressID.Valid {
			address, err := getAddress(q, row.MailAddressID.Int64)
			if err != nil {
				return err
			}
			di.MailAddress = &address
		}
		if err := q.Select(&di.OnlineAddresses,
			`select id, delivery_information_id, protocol, server_address,
                    user_name, user_password, path
             from online_addresses where delivery_information_id = ? order by id`, di.ID); err != nil {
			return err
		}
		order.DeliveryInformation = &di
	}

	var invoiceAddressID models.NullInt64
	if err := q.Get(&invoiceAddressID,
		`select invoice_address_id from orders where id = ?`, order.ID); err != nil {
		return err
	}
	if invoiceAddressID.Valid {
		address, err := getAddress(q, invoiceAddressID.Int64)
		if err != nil {
			return err
		}
		order.InvoiceAddress = &address
	}
	return nil
}

func getAddress(q sqlxQueryer, id int64) (models.DeliveryAddress, error) {
	var address models.DeliveryAddress
	err := q.Get(&address,
		`select id, first_name, last_name, company_ref, street_address, city,
                state, postal_code, country, post_box, telephone_number,
                facsimile_number
         from delivery_addresses where id = ?`, id)
	return address, err
}

var _ sqlxQueryer = (*sqlx.DB)(nil)
var _ sqlxQueryer = (*sqlx.Tx)(nil)
