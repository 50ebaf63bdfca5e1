package models

import "time"

// Packaging values accepted on an order.
var PackagingValues = []string{"zip"}

// Priority values accepted on an order.
var PriorityValues = []string{"STANDARD", "FAST_TRACK"}

// StatusNotification values accepted on an order.
var StatusNotificationValues = []string{"None", "Final", "All"}

// ValidPackaging reports whether p is an accepted packaging value.
func ValidPackaging(p string) bool {
	return stringIn(p, PackagingValues)
}

// Order is a customizable item ordered by a user. The order type
// discriminator is immutable after creation.
type Order struct {
	ID        int64     `db:"id"`
	OrderType OrderType `db:"order_type"`
	UserID    int64     `db:"user_id"`
	// Username is populated on reads joining the user table.
	Username                  string     `db:"username"`
	Status                    Status     `db:"status"`
	AdditionalStatusInfo      NullString `db:"additional_status_info"`
	MissionSpecificStatusInfo NullString `db:"mission_specific_status_info"`
	CreatedOn                 time.Time  `db:"created_on"`
	// StatusChangedOn is maintained by the store on every status write.
	StatusChangedOn time.Time  `db:"status_changed_on"`
	CompletedOn     NullTime   `db:"completed_on"`
	Reference       NullString `db:"reference"`
	Packaging       NullString `db:"packaging"`
	Priority        NullString `db:"priority"`
	Remark          NullString `db:"remark"`
	// Approved records operator (or automatic) approval.
	Approved           bool   `db:"approved"`
	StatusNotification string `db:"status_notification"`
	// CancelRequested is the cooperative cancellation flag checked by
	// fulfilment workers between items.
	CancelRequested bool `db:"cancel_requested"`
	// LastDescribeResultAccessRequest supports the nextReady sub-function.
	LastDescribeResultAccessRequest NullTime `db:"last_describe_result_access_request"`

	DeliveryInformation *DeliveryInformation `db:"-"`
	InvoiceAddress      *DeliveryAddress     `db:"-"`
	Options             []SelectedOption     `db:"-"`
	DeliveryOptions     []SelectedDeliveryOption
	Items               []OrderItem `db:"-"`
	Batches             []Batch     `db:"-"`
}

// OrderItem is a single requested product within an order. ItemID is
// client-supplied and unique within the order.
type OrderItem struct {
	ID      int64     `db:"id"`
	OrderID int64     `db:"order_id"`
	BatchID NullInt64 `db:"batch_id"`
	ItemID  string    `db:"item_id"`
	// Identifier is the catalogue product id. Optional for subscription and
	// tasking items.
	Identifier NullString `db:"identifier"`
	// CollectionID is the collection the item belongs to. Omitted for
	// tasking items.
	CollectionID              NullString `db:"collection_id"`
	Status                    Status     `db:"status"`
	AdditionalStatusInfo      NullString `db:"additional_status_info"`
	MissionSpecificStatusInfo NullString `db:"mission_specific_status_info"`
	Remark                    NullString `db:"remark"`
	CreatedOn                 time.Time  `db:"created_on"`
	StatusChangedOn           time.Time  `db:"status_changed_on"`
	CompletedOn               NullTime   `db:"completed_on"`

	Options         []SelectedOption         `db:"-"`
	DeliveryOptions []SelectedDeliveryOption `db:"-"`
	Files           []OseoFile               `db:"-"`
}

// HasOnlineDataAccess reports whether any delivery option on the item is of
// the online data access kind.
func (i OrderItem) HasOnlineDataAccess() bool {
	for _, d := range i.DeliveryOptions {
		if d.Kind == DeliveryKindOnlineDataAccess {
			return true
		}
	}
	return false
}

// Batch groups order items for fulfilment. Its status is derived from its
// items, never stored.
type Batch struct {
	ID        int64     `db:"id"`
	OrderID   int64     `db:"order_id"`
	CreatedOn time.Time `db:"created_on"`
	UpdatedOn NullTime  `db:"updated_on"`
	// CompletedOn is set when the batch reaches Completed, Failed or
	// Terminated, and retained through Downloaded.
	CompletedOn NullTime `db:"completed_on"`

	Items []OrderItem `db:"-"`
}

// Status derives the batch state as the minimum of its items' states under
// the precedence ordering.
func (b Batch) Status() Status {
	statuses := make([]Status, 0, len(b.Items))
	for _, item := range b.Items {
		statuses = append(statuses, item.Status)
	}
	return MinimumStatus(statuses)
}
