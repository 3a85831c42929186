package appletree

// Service IDs on the VAS aggregator.
const (
	ServiceMobileAirtime     = 1
	ServiceMobileData        = 2
	ServiceMobileBundles     = 3
	ServiceInternetBroadband = 5
	ServiceElectricity       = 6
	ServiceGas               = 8
	ServiceEducation         = 9
	ServiceInsurance         = 10
	ServicePhone             = 12
	ServiceTelevision        = 13
	ServiceLocalAuthorities  = 17
	ServiceRetailShops       = 18
)

// envelope is the common response wrapper. A Status of ERROR or NOTFOUND is a
// logical failure even when the HTTP status is 200.
type envelope struct {
	Status        string `json:"Status"`
	ResultMessage string `json:"ResultMessage"`
}

const (
	statusError    = "ERROR"
	statusNotFound = "NOTFOUND"
)

// Country is a VAS catalog country.
type Country struct {
	CountryCode  string `json:"CountryCode"`
	Name         string `json:"Name"`
	CurrencyCode string `json:"CurrencyCode"`
}

// Service is a VAS service category (airtime, data, electricity, ...).
type Service struct {
	ID   int    `json:"Id"`
	Name string `json:"Name"`
}

// ServiceProvider is a carrier/utility selling through the aggregator.
type ServiceProvider struct {
	ID          int    `json:"Id"`
	Name        string `json:"Name"`
	CountryCode string `json:"CountryCode"`
	ServiceID   int    `json:"ServiceId"`
}

// Product is a purchasable VAS product (top-up denomination, bundle, ...).
type Product struct {
	ID                int     `json:"Id"`
	Name              string  `json:"Name"`
	Description       string  `json:"Description"`
	Currency          string  `json:"Currency"`
	MinimumAmount     float64 `json:"MinimumAmount"`
	MaximumAmount     float64 `json:"MaximumAmount"`
	ServiceID         int     `json:"ServiceId"`
	ServiceProviderID int     `json:"ServiceProviderId"`
}

// CustomerDetails identifies the receiving customer on a payment.
type CustomerDetails struct {
	FirstName    string `json:"FirstName,omitempty"`
	LastName     string `json:"LastName,omitempty"`
	MobileNumber string `json:"MobileNumber"`
	EmailAddress string `json:"EmailAddress,omitempty"`
}

// PaymentRequest is the payload for ValidatePayment and PostPayment.
//
// Amount is a pointer: the aggregator requires the field to be present but -
// unlike the merchant payment API - does not require it to be positive. Keep
// the asymmetry; the two backends disagree and the aggregator's contract is
// presence-only.
type PaymentRequest struct {
	RequestID              string            `json:"RequestId"`
	ProductID              int               `json:"ProductId"`
	Currency               string            `json:"Currency"`
	Amount                 *float64          `json:"Amount"`
	CustomerDetails        *CustomerDetails  `json:"CustomerDetails"`
	CreditPartyIdentifiers map[string]string `json:"CreditPartyIdentifiers,omitempty"`
}

// PaymentResult is the decoded response from ValidatePayment, PostPayment,
// PaymentStatus and ReversePayment.
type PaymentResult struct {
	envelope
	RequestID      string `json:"RequestId,omitempty"`
	TransactionID  string `json:"TransactionId,omitempty"`
	PaymentStatus  string `json:"PaymentStatus,omitempty"`
	ReceiptNumber  string `json:"ReceiptNumber,omitempty"`
	DeliveredToken string `json:"Token,omitempty"`
}

// TokenRequest is the payload for GetLastToken.
type TokenRequest struct {
	ProductID              int               `json:"ProductId"`
	CreditPartyIdentifiers map[string]string `json:"CreditPartyIdentifiers"`
}

// ProductCatalog is the combined services+products view for one country and
// service.
type ProductCatalog struct {
	CountryCode   string    `json:"countryCode"`
	Service       *Service  `json:"service,omitempty"`
	Products      []Product `json:"products"`
	TotalProducts int       `json:"totalProducts"`
}

// ProductFilter selects products from the catalog.
type ProductFilter struct {
	CountryCode       string
	ServiceID         int
	ServiceProviderID int
}

// ProviderFilter selects service providers from the catalog.
type ProviderFilter struct {
	CountryCode string
	ServiceID   int
}
