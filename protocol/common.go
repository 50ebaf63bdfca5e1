package protocol

// Option is a named option value carried on an order or an order item.
type Option struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

// DeliveryOptions is the delivery choice of an order or order item. Exactly
// one of the three sub-kinds is expected to be set.
type DeliveryOptions struct {
	OnlineDataAccess    *OnlineDataAccess   `xml:"onlineDataAccess"`
	OnlineDataDelivery  *OnlineDataDelivery `xml:"onlineDataDelivery"`
	MediaDelivery       *MediaDelivery      `xml:"mediaDelivery"`
	NumberOfCopies      int                 `xml:"numberOfCopies,omitempty"`
	ProductAnnotation   string              `xml:"productAnnotation,omitempty"`
	SpecialInstructions string              `xml:"specialInstructions,omitempty"`
}

// OnlineDataAccess requests retrieval of produced files from the server.
type OnlineDataAccess struct {
	Protocol string `xml:"protocol"`
}

// OnlineDataDelivery requests push delivery of produced files.
type OnlineDataDelivery struct {
	Protocol string `xml:"protocol"`
}

// MediaDelivery requests shipment on physical media.
type MediaDelivery struct {
	PackageMedium        string `xml:"packageMedium"`
	ShippingInstructions string `xml:"shippingInstructions,omitempty"`
}

// StatusInfo reports the lifecycle state of an order or order item.
type StatusInfo struct {
	Status                    string `xml:"status"`
	AdditionalStatusInfo      string `xml:"additionalStatusInfo,omitempty"`
	MissionSpecificStatusInfo string `xml:"missionSpecificStatusInfo,omitempty"`
}

// ProductID identifies a catalogue product, optionally qualified by its
// parent collection.
type ProductID struct {
	Identifier   string `xml:"identifier"`
	CollectionID string `xml:"collectionId,omitempty"`
}

// DeliveryAddress is a postal address.
type DeliveryAddress struct {
	FirstName       string `xml:"firstName,omitempty"`
	LastName        string `xml:"lastName,omitempty"`
	CompanyRef      string `xml:"companyRef,omitempty"`
	StreetAddress   string `xml:"streetAddress,omitempty"`
	City            string `xml:"city,omitempty"`
	State           string `xml:"state,omitempty"`
	PostalCode      string `xml:"postalCode,omitempty"`
	Country         string `xml:"country,omitempty"`
	PostBox         string `xml:"postBox,omitempty"`
	TelephoneNumber string `xml:"telephoneNumber,omitempty"`
	FacsimileNumber string `xml:"facsimileTelephoneNumber,omitempty"`
}

// DeliveryInformation carries the mail address and any online addresses for
// order delivery.
type DeliveryInformation struct {
	MailAddress   *DeliveryAddress `xml:"mailAddress"`
	OnlineAddress []OnlineAddress  `xml:"onlineAddress"`
}

// OnlineAddress is a client-supplied push delivery target.
type OnlineAddress struct {
	Protocol      string `xml:"protocol"`
	ServerAddress string `xml:"serverAddress"`
	UserName      string `xml:"userName,omitempty"`
	UserPassword  string `xml:"userPassword,omitempty"`
	Path          string `xml:"path,omitempty"`
}
