package models

// SelectedOption is a named option value attached to an order (global) or a
// single order item.
type SelectedOption struct {
	ID          int64     `db:"id"`
	OrderID     NullInt64 `db:"order_id"`
	OrderItemID NullInt64 `db:"order_item_id"`
	Name        string    `db:"name"`
	Value       string    `db:"value"`
}

// SelectedDeliveryOption is a delivery choice attached to an order or a
// single order item.
type SelectedDeliveryOption struct {
	ID          int64              `db:"id"`
	OrderID     NullInt64          `db:"order_id"`
	OrderItemID NullInt64          `db:"order_item_id"`
	Kind        DeliveryOptionKind `db:"kind"`
	// Protocol applies to the online data access and delivery kinds.
	Protocol NullString `db:"protocol"`
	// PackageMedium and ShippingInstructions apply to media delivery.
	PackageMedium        NullString `db:"package_medium"`
	ShippingInstructions NullString `db:"shipping_instructions"`
	Copies               int        `db:"copies"`
	Annotation           NullString `db:"annotation"`
	SpecialInstructions  NullString `db:"special_instructions"`
}

// DeliveryAddress is a postal address for deliveries or invoicing.
type DeliveryAddress struct {
	ID             int64      `db:"id"`
	FirstName      NullString `db:"first_name"`
	LastName       NullString `db:"last_name"`
	CompanyRef     NullString `db:"company_ref"`
	StreetAddress  NullString `db:"street_address"`
	City           NullString `db:"city"`
	State          NullString `db:"state"`
	PostalCode     NullString `db:"postal_code"`
	Country        NullString `db:"country"`
	PostBox        NullString `db:"post_box"`
	TelephoneNumber NullString `db:"telephone_number"`
	FacsimileNumber NullString `db:"facsimile_number"`
}

// DeliveryInformation carries the mail address and online addresses used
// for order delivery.
type DeliveryInformation struct {
	ID              int64            `db:"id"`
	OrderID         int64            `db:"order_id"`
	MailAddress     *DeliveryAddress `db:"-"`
	OnlineAddresses []OnlineAddress  `db:"-"`
}

// OnlineAddress is an ftp/sftp target supplied by the client for delivery.
type OnlineAddress struct {
	ID                    int64      `db:"id"`
	DeliveryInformationID int64      `db:"delivery_information_id"`
	Protocol              string     `db:"protocol"`
	ServerAddress         string     `db:"server_address"`
	UserName              NullString `db:"user_name"`
	UserPassword          NullString `db:"user_password"`
	Path                  NullString `db:"path"`
}
