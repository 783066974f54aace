package pricing

// Operation names.
const (
	OpSearchPrice          = "search_medication_price"
	OpGenericAlternatives  = "find_generic_alternatives"
	OpFindPharmacies       = "find_pharmacies"
	OpComparePrices        = "compare_prices"
	defaultRadiusMiles     = 5.0
	maxPricesReturned      = 5
	maxResultsPerSearch    = 10
	maxAlternativesPerCall = 10
)

// DefaultPharmacyTypes are compared when none are requested.
var DefaultPharmacyTypes = []string{"retail", "online", "discount"}

// MedicationQuery is the input of search_medication_price.
type MedicationQuery struct {
	MedicationName string `json:"medication_name"`
	Dosage         string `json:"dosage,omitempty"`
	Quantity       int    `json:"quantity,omitempty"`
	Location       string `json:"location,omitempty"`
	InsuranceType  string `json:"insurance_type,omitempty"`
}

// MedicationPrice is one price observation.
type MedicationPrice struct {
	PharmacyName string  `json:"pharmacy_name"`
	Price        float64 `json:"price"`
	Location     string  `json:"location"`
	Distance     string  `json:"distance,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Website      string  `json:"website,omitempty"`
	InStock      bool    `json:"in_stock"`
	LastUpdated  string  `json:"last_updated"`
}

// PriceResult is the output of search_medication_price.
type PriceResult struct {
	MedicationName string            `json:"medication_name"`
	Prices         []MedicationPrice `json:"prices"`
}

// GenericQuery is the input of find_generic_alternatives.
type GenericQuery struct {
	BrandName     string `json:"brand_name"`
	IncludePrices *bool  `json:"include_prices,omitempty"`
}

// GenericAlternative is one generic equivalent of a brand-name drug.
type GenericAlternative struct {
	GenericName  string   `json:"generic_name"`
	Manufacturer string   `json:"manufacturer"`
	Price        *float64 `json:"price,omitempty"`
	Source       string   `json:"source,omitempty"`
}

// GenericResult is the output of find_generic_alternatives.
type GenericResult struct {
	BrandName    string               `json:"brand_name"`
	Alternatives []GenericAlternative `json:"alternatives"`
}

// PharmacyQuery is the input of find_pharmacies.
type PharmacyQuery struct {
	Location       string  `json:"location"`
	RadiusMiles    float64 `json:"radius_miles,omitempty"`
	MedicationName string  `json:"medication_name,omitempty"`
}

// Pharmacy is one pharmacy found near a location.
type Pharmacy struct {
	Name     string   `json:"name"`
	Address  string   `json:"address,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
	Website  string   `json:"website,omitempty"`
}

// PharmacyResult is the output of find_pharmacies.
type PharmacyResult struct {
	Location    string     `json:"location"`
	RadiusMiles float64    `json:"radius_miles"`
	Pharmacies  []Pharmacy `json:"pharmacies"`
}

// CompareQuery is the input of compare_prices.
type CompareQuery struct {
	MedicationName string   `json:"medication_name"`
	Dosage         string   `json:"dosage,omitempty"`
	Quantity       int      `json:"quantity,omitempty"`
	PharmacyTypes  []string `json:"pharmacy_types,omitempty"`
}

// PriceComparison summarizes prices for one pharmacy type.
type PriceComparison struct {
	PharmacyType     string  `json:"pharmacy_type"`
	AveragePrice     float64 `json:"average_price"`
	LowestPrice      float64 `json:"lowest_price"`
	HighestPrice     float64 `json:"highest_price"`
	SampleCount      int     `json:"sample_count"`
	CheapestPharmacy string  `json:"cheapest_pharmacy,omitempty"`
}

// CompareResult is the output of compare_prices.
type CompareResult struct {
	MedicationName   string            `json:"medication_name"`
	Comparisons      []PriceComparison `json:"comparisons"`
	BestPharmacyType string            `json:"best_pharmacy_type,omitempty"`
}
