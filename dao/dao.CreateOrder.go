package dao

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earthsight/oseo-server/events"
	"github.com/earthsight/oseo-server/metadata/models"
)

// massiveBatchSize is how many items go into each fulfilment batch of a
// massive order. Regular product orders get a single batch.
const massiveBatchSize = 25

// CreateOrder persists an order together with its addresses, options, items
// and fulfilment batches in a single transaction. Batches of orders created
// in the Accepted state are enqueued for fulfilment before the transaction
// commits, so a crash never loses accepted work. The stored order is
// retrieved and returned.
func (dao *DataAccessLayer) CreateOrder(order *models.Order) (models.Order, error) {
	if order.UserID == 0 {
		return models.Order{}, ErrMissingUserID
	}
	if !order.OrderType.Valid() {
		return models.Order{}, ErrMissingOrderType
	}
	if len(order.Items) == 0 {
		return models.Order{}, ErrNoItems
	}
	if order.Status == "" {
		order.Status = models.StatusSubmitted
	}

	var orderID int64
	err := dao.withIsolatedTransaction("CreateOrder", sql.LevelSerializable, func(tx *sqlx.Tx) ([]events.Event, error) {
		var err error
		orderID, err = createOrderInTransaction(tx, order)
		if err != nil {
			return nil, err
		}
		e := events.StatusChange{
			Entity:    "order",
			ID:        orderID,
			OrderID:   orderID,
			NewStatus: string(order.Status),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Username:  order.Username,
		}
		return []events.Event{e}, nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return dao.GetOrder(orderID)
}

func createOrderInTransaction(tx *sqlx.Tx, order *models.Order) (int64, error) {
	now := time.Now().UTC()

	stmt := `insert into orders (
            order_type, user_id, status, additional_status_info,
            mission_specific_status_info, created_on, status_changed_on,
            reference, packaging, priority, remark, approved,
            status_notification, cancel_requested)
        values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	result, err := tx.Exec(stmt, order.OrderType, order.UserID, order.Status,
		order.AdditionalStatusInfo, order.MissionSpecificStatusInfo, now, now,
		order.Reference, order.Packaging, order.Priority, order.Remark,
		order.Approved, order.StatusNotification)
	if err != nil {
		return 0, err
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if order.DeliveryInformation != nil {
		if err := createDeliveryInformationInTransaction(tx, orderID, order.DeliveryInformation); err != nil {
			return 0, err
		}
	}
	if order.InvoiceAddress != nil {
		addressID, err := createAddressInTransaction(tx, order.InvoiceAddress)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(`update orders set invoice_address_id = ? where id = ?`, addressID, orderID); err != nil {
			return 0, err
		}
	}
	for _, opt := range order.Options {
		if err := createOptionInTransaction(tx, models.ToNullInt64(orderID), models.NullInt64{}, opt); err != nil {
			return 0, err
		}
	}
	for _, dopt := range order.DeliveryOptions {
		if err := createDeliveryOptionInTransaction(tx, models.ToNullInt64(orderID), models.NullInt64{}, dopt); err != nil {
			return 0, err
		}
	}

	itemIDs := make([]int64, 0, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		// Items start in the order's state so the derived order status does
		// not fall back below it on the first item transition.
		if item.Status == "" {
			item.Status = order.Status
		}
		itemID, err := createOrderItemInTransaction(tx, orderID, now, item)
		if err != nil {
			return 0, err
		}
		itemIDs = append(itemIDs, itemID)
	}

	// Product and massive orders are fulfilled through batches. Subscription
	// and tasking orders wait on external triggers instead.
	if order.OrderType == models.OrderTypeProduct || order.OrderType == models.OrderTypeMassive {
		batchSize := len(itemIDs)
		if order.OrderType == models.OrderTypeMassive {
			batchSize = massiveBatchSize
		}
		for start := 0; start < len(itemIDs); start += batchSize {
			end := start + batchSize
			if end > len(itemIDs) {
				end = len(itemIDs)
			}
			batchID, err := createBatchInTransaction(tx, orderID, now, itemIDs[start:end])
			if err != nil {
				return 0, err
			}
			if order.Status == models.StatusAccepted {
				if err := enqueueBatchInTransaction(tx, batchID, now); err != nil {
					return 0, err
				}
			}
		}
	}

	return orderID, nil
}

func createOrderItemInTransaction(tx *sqlx.Tx, orderID int64, now time.Time, item *models.OrderItem) (int64, error) {
	stmt := `insert into order_items (
            order_id, item_id, identifier, collection_id, status,
            additional_status_info, mission_specific_status_info, remark,
            created_on, status_changed_on)
        values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.Exec(stmt, orderID, item.ItemID, item.Identifier,
		item.CollectionID, item.Status, item.AdditionalStatusInfo,
		item.MissionSpecificStatusInfo, item.Remark, now, now)
	if err != nil {
		return 0, err
	}
	itemID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	item.ID = itemID
	for _, opt := range item.Options {
		if err := createOptionInTransaction(tx, models.NullInt64{}, models.ToNullInt64(itemID), opt); err != nil {
			return 0, err
		}
	}
	for _, dopt := range item.DeliveryOptions {
		if err := createDeliveryOptionInTransaction(tx, models.NullInt64{}, models.ToNullInt64(itemID), dopt); err != nil {
			return 0, err
		}
	}
	return itemID, nil
}

func createBatchInTransaction(tx *sqlx.Tx, orderID int64, now time.Time, itemIDs []int64) (int64, error) {
	result, err := tx.Exec(`insert into batches (order_id, created_on) values (?, ?)`, orderID, now)
	if err != nil {
		return 0, err
	}
	batchID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, itemID := range itemIDs {
		if _, err := tx.Exec(`update order_items set batch_id = ? where id = ?`, batchID, itemID); err != nil {
			return 0, err
		}
	}
	return batchID, nil
}

func createOptionInTransaction(tx *sqlx.Tx, orderID, orderItemID models.NullInt64, opt models.SelectedOption) error {
	_, err := tx.Exec(
		`insert into selected_options (order_id, order_item_id, name, value) values (?, ?, ?, ?)`,
		orderID, orderItemID, opt.Name, opt.Value)
	return err
}

func createDeliveryOptionInTransaction(tx *sqlx.Tx, orderID, orderItemID models.NullInt64, dopt models.SelectedDeliveryOption) error {
	stmt := `insert into selected_delivery_options (
            order_id, order_item_id, kind, protocol, package_medium,
            shipping_instructions, copies, annotation, special_instructions)
        values (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.Exec(stmt, orderID, orderItemID, dopt.Kind, dopt.Protocol,
		dopt.PackageMedium, dopt.ShippingInstructions, dopt.Copies,
		dopt.Annotation, dopt.SpecialInstructions)
	return err
}

func createAddressInTransaction(tx *sqlx.Tx, a *models.DeliveryAddress) (int64, error) {
	stmt := `insert into delivery_addresses (
            first_name, last_name, company_ref, street_address, city, state,
            postal_code, country, post_box, telephone_number, facsimile_number)
        values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.Exec(stmt, a.FirstName, a.LastName, a.CompanyRef,
		a.StreetAddress, a.City, a.State, a.PostalCode, a.Country, a.PostBox,
		a.TelephoneNumber, a.FacsimileNumber)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func createDeliveryInformationInTransaction(tx *sqlx.Tx, orderID int64, di *models.DeliveryInformation) error {
	var mailAddressID models.NullInt64
	if di.MailAddress != nil {
		addressID, err := createAddressInTransaction(tx, di.MailAddress)
		if err != nil {
			return err
		}
		mailAddressID = models.ToNullInt64(addressID)
	}
	result, err := tx.Exec(
		`insert into delivery_information (order_id, mail_address_id) values (?, ?)`,
		orderID, mailAddressID)
	if err != nil {
		return err
	}
	diID, err := result.LastInsertId()
	if err != nil {
		return err
	}
	for _, oa := range di.OnlineAddresses {
		stmt := `insert into online_addresses (
                delivery_information_id, protocol, server_address, user_name,
                user_password, path)
            values (?, ?, ?, ?, ?, ?)`
		if _, err := tx.Exec(stmt, diID, oa.Protocol, oa.ServerAddress,
			oa.UserName, oa.UserPassword, oa.Path); err != nil {
			return err
		}
	}
	return nil
}
