package models

// DeliveryOptionKind separates the three disjoint delivery sub-kinds.
type DeliveryOptionKind string

// Delivery sub-kinds.
const (
	DeliveryKindOnlineDataAccess   DeliveryOptionKind = "onlineDataAccess"
	DeliveryKindOnlineDataDelivery DeliveryOptionKind = "onlineDataDelivery"
	DeliveryKindMediaDelivery      DeliveryOptionKind = "mediaDelivery"
)

// OnlineDataProtocols are the protocols accepted for online data access and
// online data delivery.
var OnlineDataProtocols = []string{
	"http", "https", "ftp", "sftp", "ftps", "P2P", "wcs", "wms", "dds", "e-mail",
}

// PackageMedia are the accepted physical media for media delivery.
var PackageMedia = []string{
	"NTP", "DAT", "CD-ROM", "DVD", "BD", "LTO", "LTO2", "LTO4",
}

// ShippingInstructionValues are the accepted media shipping instructions.
var ShippingInstructionValues = []string{"each_ready", "all_ready", "other"}

// ValidProtocol reports whether p is an accepted online data protocol.
func ValidProtocol(p string) bool {
	return stringIn(p, OnlineDataProtocols)
}

// ValidPackageMedium reports whether m is an accepted package medium.
func ValidPackageMedium(m string) bool {
	return stringIn(m, PackageMedia)
}

// ValidShippingInstructions reports whether s is an accepted shipping
// instruction value.
func ValidShippingInstructions(s string) bool {
	return stringIn(s, ShippingInstructionValues)
}

func stringIn(a string, list []string) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}
