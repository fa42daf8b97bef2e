package enums

import "fmt"

// ShippingType is the delivery option picked at checkout.
type ShippingType string

const (
	ShippingTypeDeliveryCaracas  ShippingType = "delivery_caracas"
	ShippingTypeDeliveryNational ShippingType = "delivery_national"
	ShippingTypeOfficePickup     ShippingType = "office_pickup"
)

var validShippingTypes = []ShippingType{
	ShippingTypeDeliveryCaracas,
	ShippingTypeDeliveryNational,
	ShippingTypeOfficePickup,
}

func (t ShippingType) IsValid() bool {
	for _, candidate := range validShippingTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseShippingType accepts an empty value as "not chosen".
func ParseShippingType(value string) (ShippingType, error) {
	if value == "" {
		return "", nil
	}
	for _, candidate := range validShippingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping type %q", value)
}

// ShippingAgency is the courier used for national deliveries.
type ShippingAgency string

const (
	ShippingAgencyNone   ShippingAgency = ""
	ShippingAgencyMRW    ShippingAgency = "mrw"
	ShippingAgencyDomesa ShippingAgency = "domesa"
	ShippingAgencyZoom   ShippingAgency = "zoom"
	ShippingAgencyTealca ShippingAgency = "tealca"
	ShippingAgencyDHL    ShippingAgency = "dhl"
)

var validShippingAgencies = []ShippingAgency{
	ShippingAgencyNone,
	ShippingAgencyMRW,
	ShippingAgencyDomesa,
	ShippingAgencyZoom,
	ShippingAgencyTealca,
	ShippingAgencyDHL,
}

func (a ShippingAgency) IsValid() bool {
	for _, candidate := range validShippingAgencies {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseShippingAgency converts raw input into a ShippingAgency.
func ParseShippingAgency(value string) (ShippingAgency, error) {
	for _, candidate := range validShippingAgencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping agency %q", value)
}
