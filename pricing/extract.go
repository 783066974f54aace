package pricing

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Plausible medication price range in dollars.
const (
	MinPrice = 1.0
	MaxPrice = 1000.0
)

// FallbackPharmacy names a result whose domain is not recognized.
const FallbackPharmacy = "Online Pharmacy"

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$(\d+\.?\d*)`),
	regexp.MustCompile(`(\d+\.?\d*)\s*dollars?`),
	regexp.MustCompile(`price:\s*\$?(\d+\.?\d*)`),
	regexp.MustCompile(`cost:\s*\$?(\d+\.?\d*)`),
}

// ExtractPrice returns the first plausible price in content.
//
// Patterns are tried in order against the lower-cased text. Only the first
// match of each pattern is considered; it is accepted when it falls within
// [MinPrice, MaxPrice].
func ExtractPrice(content string) (float64, bool) {
	lower := strings.ToLower(content)
	for _, re := range pricePatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		price, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if price >= MinPrice && price <= MaxPrice {
			return price, true
		}
	}
	return 0, false
}

type pharmacyDomain struct {
	domain string
	name   string
}

var pharmacyDomains = []pharmacyDomain{
	{"goodrx.com", "GoodRx"},
	{"walgreens.com", "Walgreens"},
	{"cvs.com", "CVS Pharmacy"},
	{"costco.com", "Costco Pharmacy"},
	{"walmart.com", "Walmart Pharmacy"},
	{"pharmacychecker.com", "PharmacyChecker"},
	{"rite-aid.com", "Rite Aid"},
	{"riteaid.com", "Rite Aid"},
	{"kroger.com", "Kroger Pharmacy"},
	{"wellrx.com", "WellRx"},
	{"singlecare.com", "SingleCare"},
	{"rxsaver.com", "RxSaver"},
	{"drugs.com", "Drugs.com"},
	{"needymeds.org", "NeedyMeds"},
}

// PharmacyName maps a result URL to a display name.
func PharmacyName(rawURL string) string {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Hostname()
	} else if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(host)
	for _, d := range pharmacyDomains {
		if host == d.domain || strings.HasSuffix(host, "."+d.domain) {
			return d.name
		}
	}
	return FallbackPharmacy
}

// KnownMedications are recognized by name in free text.
var KnownMedications = []string{
	"ibuprofen", "acetaminophen", "aspirin", "metformin", "lisinopril",
	"amlodipine", "metoprolol", "omeprazole", "simvastatin", "losartan",
	"gabapentin", "sertraline", "escitalopram", "fluoxetine", "alprazolam",
	"lorazepam", "prednisone", "amoxicillin", "azithromycin", "ciprofloxacin",
	"insulin", "levothyroxine", "atorvastatin", "hydrochlorothiazide",
}

// ExtractMedicationName picks a medication name out of a chat message.
//
// A known medication wins. Otherwise the first purely alphabetic word longer
// than four letters is taken. The result is title-cased; "" means none.
func ExtractMedicationName(message string) string {
	lower := strings.ToLower(message)
	for _, med := range KnownMedications {
		if strings.Contains(lower, med) {
			return titleWord(med)
		}
	}
	for _, word := range strings.Fields(message) {
		if len([]rune(word)) > 4 && isAlpha(word) {
			return titleWord(word)
		}
	}
	return ""
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func titleWord(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

var (
	phonePattern    = regexp.MustCompile(`\(?\b\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`)
	distancePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:mi|miles)\b`)
	addressPattern  = regexp.MustCompile(`(?i)\b\d{1,5}\s+(?:[a-z0-9.]+\s){1,4}(?:st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|way|hwy|highway|pkwy|parkway)\b\.?`)
)

// ExtractPhone returns the first US-style phone number in content.
func ExtractPhone(content string) string {
	return strings.TrimSpace(phonePattern.FindString(content))
}

// ExtractDistance returns the first "<n> mi(les)" figure in content.
func ExtractDistance(content string) (float64, bool) {
	m := distancePattern.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	d, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return d, true
}

// ExtractAddress returns the first street address in content.
func ExtractAddress(content string) string {
	return strings.TrimSpace(addressPattern.FindString(content))
}

var (
	genericPatterns = []*regexp.Regexp{
		regexp.MustCompile(`([a-z][a-z-]{3,})\s*\(generic\)`),
		regexp.MustCompile(`generic(?:\s+(?:name|version|form|equivalent))?\s*(?:is|:|-)\s*([a-z][a-z-]{3,})`),
		regexp.MustCompile(`generic\s+([a-z][a-z-]{3,})`),
		regexp.MustCompile(`\(([a-z][a-z-]{3,})\)`),
	}
	manufacturerPattern = regexp.MustCompile(`(?:manufactured|made|produced) by\s+([a-z][a-z0-9&.\- ]{1,40}?)(?:[,;:()]|\.\s|\.$|$)`)

	genericStopwords = map[string]struct{}{
		"version": {}, "versions": {}, "form": {}, "forms": {}, "name": {}, "names": {},
		"equivalent": {}, "equivalents": {}, "drug": {}, "drugs": {}, "medication": {},
		"medications": {}, "medicine": {}, "alternative": {}, "alternatives": {},
		"price": {}, "prices": {}, "brand": {}, "available": {}, "option": {},
		"options": {}, "tablet": {}, "tablets": {}, "capsule": {}, "capsules": {},
		"also": {}, "with": {}, "from": {}, "that": {}, "this": {}, "coupon": {},
		"coupons": {}, "generic": {}, "generics": {}, "cost": {}, "costs": {},
		"pharmacy": {}, "pharmacies": {}, "same": {}, "only": {}, "oral": {},
	}
)

// ExtractGenericNames returns candidate generic drug names mentioned in
// content, in order of first appearance. brand is excluded.
func ExtractGenericNames(content, brand string) []string {
	lower := strings.ToLower(content)
	brand = strings.ToLower(brand)

	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for _, re := range genericPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(lower, -1) {
			name := strings.Trim(lower[m[2]:m[3]], "-")
			if name == "" || name == brand {
				continue
			}
			if _, stop := genericStopwords[name]; stop {
				continue
			}
			hits = append(hits, hit{pos: m[2], name: name})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]struct{}, len(hits))
	var out []string
	for _, h := range hits {
		if _, dup := seen[h.name]; dup {
			continue
		}
		seen[h.name] = struct{}{}
		out = append(out, titleWord(h.name))
	}
	return out
}

// ExtractManufacturer returns the maker named in content, or "".
func ExtractManufacturer(content string) string {
	m := manufacturerPattern.FindStringSubmatch(strings.ToLower(content))
	if m == nil {
		return ""
	}
	words := strings.Fields(m[1])
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}
