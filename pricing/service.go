package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/rxprice/observe"
	"github.com/jonwraymond/rxprice/search"
	"github.com/jonwraymond/rxprice/tool"
)

// Service runs the pricing operations against a search provider.
type Service struct {
	provider search.Provider
	logger   observe.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for last_updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service.
func NewService(provider search.Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		logger:   observe.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Descriptor names and describes an operation.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Descriptors lists the operations in a stable order.
func Descriptors() []Descriptor {
	return []Descriptor{
		{OpSearchPrice, "Search for current prices of a medication across pharmacies."},
		{OpGenericAlternatives, "Find generic alternatives for a brand-name medication."},
		{OpFindPharmacies, "Find pharmacies near a location."},
		{OpComparePrices, "Compare medication prices across pharmacy types."},
	}
}

// Tools returns every operation as an unwrapped tool.Func keyed by name.
func (s *Service) Tools() map[string]tool.Func {
	return map[string]tool.Func{
		OpSearchPrice: func(ctx context.Context, call tool.Call) (any, error) {
			var q MedicationQuery
			if err := decodeKwargs(call, &q); err != nil {
				return nil, err
			}
			return s.SearchMedicationPrice(ctx, q)
		},
		OpGenericAlternatives: func(ctx context.Context, call tool.Call) (any, error) {
			var q GenericQuery
			if err := decodeKwargs(call, &q); err != nil {
				return nil, err
			}
			return s.FindGenericAlternatives(ctx, q)
		},
		OpFindPharmacies: func(ctx context.Context, call tool.Call) (any, error) {
			var q PharmacyQuery
			if err := decodeKwargs(call, &q); err != nil {
				return nil, err
			}
			return s.FindPharmacies(ctx, q)
		},
		OpComparePrices: func(ctx context.Context, call tool.Call) (any, error) {
			var q CompareQuery
			if err := decodeKwargs(call, &q); err != nil {
				return nil, err
			}
			return s.ComparePrices(ctx, q)
		},
	}
}

// decodeKwargs maps a call's keyword arguments onto dst. Unknown keys are
// ignored.
func decodeKwargs(call tool.Call, dst any) error {
	raw, err := json.Marshal(call.Kwargs)
	if err != nil {
		return invalid(call.Name, "kwargs", err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		field := "kwargs"
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field = typeErr.Field
			return invalid(call.Name, field, fmt.Sprintf("expected %s", typeErr.Type))
		}
		return invalid(call.Name, field, err.Error())
	}
	return nil
}

func (s *Service) search(ctx context.Context, req search.Request) (*search.Response, error) {
	resp, err := s.provider.Search(ctx, req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return nil, &DependencyError{Dependency: s.provider.Name(), Err: err}
}

func (s *Service) pricesFromResults(results []search.Result, location string) []MedicationPrice {
	if location == "" {
		location = "Online"
	}
	stamp := s.now().Format(time.RFC3339)

	prices := make([]MedicationPrice, 0, len(results))
	for _, r := range results {
		price, ok := ExtractPrice(r.Content)
		if !ok {
			continue
		}
		prices = append(prices, MedicationPrice{
			PharmacyName: PharmacyName(r.URL),
			Price:        price,
			Location:     location,
			Website:      r.URL,
			InStock:      true,
			LastUpdated:  stamp,
		})
	}
	sort.SliceStable(prices, func(i, j int) bool { return prices[i].Price < prices[j].Price })
	return prices
}

// SearchMedicationPrice returns the cheapest prices found for a medication.
func (s *Service) SearchMedicationPrice(ctx context.Context, q MedicationQuery) (*PriceResult, error) {
	q.MedicationName = strings.TrimSpace(q.MedicationName)
	if q.MedicationName == "" {
		return nil, invalid(OpSearchPrice, "medication_name", "field required")
	}
	if q.Quantity < 0 {
		return nil, invalid(OpSearchPrice, "quantity", "must not be negative")
	}

	terms := []string{q.MedicationName + " price", "pharmacy", "medication cost"}
	if q.Dosage != "" {
		terms = append(terms, q.Dosage)
	}
	if q.Location != "" {
		terms = append(terms, "near "+q.Location)
	}

	resp, err := s.search(ctx, search.Request{
		Query:          strings.Join(terms, " "),
		SearchDepth:    search.DepthAdvanced,
		MaxResults:     maxResultsPerSearch,
		IncludeDomains: search.PharmacyDomains,
	})
	if err != nil {
		return nil, err
	}

	prices := s.pricesFromResults(resp.Results, q.Location)
	if len(prices) > maxPricesReturned {
		prices = prices[:maxPricesReturned]
	}
	return &PriceResult{MedicationName: q.MedicationName, Prices: prices}, nil
}

// FindGenericAlternatives mines search results for generic equivalents.
func (s *Service) FindGenericAlternatives(ctx context.Context, q GenericQuery) (*GenericResult, error) {
	q.BrandName = strings.TrimSpace(q.BrandName)
	if q.BrandName == "" {
		return nil, invalid(OpGenericAlternatives, "brand_name", "field required")
	}
	includePrices := q.IncludePrices == nil || *q.IncludePrices

	resp, err := s.search(ctx, search.Request{
		Query:          q.BrandName + " generic alternatives generic name",
		SearchDepth:    search.DepthAdvanced,
		MaxResults:     maxResultsPerSearch,
		IncludeDomains: search.DiscountDomains,
	})
	if err != nil {
		return nil, err
	}

	out := &GenericResult{BrandName: q.BrandName, Alternatives: make([]GenericAlternative, 0)}
	index := make(map[string]int)
	for _, r := range resp.Results {
		manufacturer := ExtractManufacturer(r.Content)
		if manufacturer == "" {
			manufacturer = "Various"
		}
		var price *float64
		if includePrices {
			if p, ok := ExtractPrice(r.Content); ok {
				price = &p
			}
		}

		for _, name := range ExtractGenericNames(r.Title+" "+r.Content, q.BrandName) {
			if i, seen := index[name]; seen {
				if out.Alternatives[i].Price == nil && price != nil {
					out.Alternatives[i].Price = price
				}
				continue
			}
			if len(out.Alternatives) == maxAlternativesPerCall {
				break
			}
			index[name] = len(out.Alternatives)
			out.Alternatives = append(out.Alternatives, GenericAlternative{
				GenericName:  name,
				Manufacturer: manufacturer,
				Price:        price,
				Source:       r.URL,
			})
		}
	}
	return out, nil
}

// FindPharmacies lists pharmacies mentioned in results for a location.
// Results reporting a distance beyond the radius are dropped.
func (s *Service) FindPharmacies(ctx context.Context, q PharmacyQuery) (*PharmacyResult, error) {
	q.Location = strings.TrimSpace(q.Location)
	if q.Location == "" {
		return nil, invalid(OpFindPharmacies, "location", "field required")
	}
	if q.RadiusMiles < 0 {
		return nil, invalid(OpFindPharmacies, "radius_miles", "must not be negative")
	}
	if q.RadiusMiles == 0 {
		q.RadiusMiles = defaultRadiusMiles
	}

	query := "pharmacies near " + q.Location
	if q.MedicationName != "" {
		query += " that carry " + q.MedicationName
	}
	resp, err := s.search(ctx, search.Request{
		Query:       query,
		SearchDepth: search.DepthBasic,
		MaxResults:  maxResultsPerSearch,
	})
	if err != nil {
		return nil, err
	}

	out := &PharmacyResult{Location: q.Location, RadiusMiles: q.RadiusMiles, Pharmacies: make([]Pharmacy, 0)}
	seen := make(map[string]struct{})
	for _, r := range resp.Results {
		ph := Pharmacy{
			Name:    pharmacyTitle(r.Title, r.URL),
			Address: ExtractAddress(r.Content),
			Phone:   ExtractPhone(r.Content),
			Website: r.URL,
		}
		if d, ok := ExtractDistance(r.Content); ok {
			if d > q.RadiusMiles {
				continue
			}
			ph.Distance = &d
		}
		key := strings.ToLower(ph.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Pharmacies = append(out.Pharmacies, ph)
	}

	sort.SliceStable(out.Pharmacies, func(i, j int) bool {
		a, b := out.Pharmacies[i].Distance, out.Pharmacies[j].Distance
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out, nil
}

func pharmacyTitle(title, url string) string {
	for _, sep := range []string{" | ", " - ", " : "} {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
		}
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return PharmacyName(url)
	}
	return title
}

// ComparePrices runs one search per pharmacy type concurrently and
// summarizes the prices found for each.
func (s *Service) ComparePrices(ctx context.Context, q CompareQuery) (*CompareResult, error) {
	q.MedicationName = strings.TrimSpace(q.MedicationName)
	if q.MedicationName == "" {
		return nil, invalid(OpComparePrices, "medication_name", "field required")
	}
	if q.Quantity < 0 {
		return nil, invalid(OpComparePrices, "quantity", "must not be negative")
	}
	types := q.PharmacyTypes
	if len(types) == 0 {
		types = DefaultPharmacyTypes
	}
	for i, t := range types {
		if strings.TrimSpace(t) == "" {
			return nil, invalid(OpComparePrices, fmt.Sprintf("pharmacy_types.%d", i), "must not be empty")
		}
	}

	comparisons := make([]PriceComparison, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, pharmacyType := range types {
		g.Go(func() error {
			terms := []string{q.MedicationName}
			if q.Dosage != "" {
				terms = append(terms, q.Dosage)
			}
			terms = append(terms, "price at", pharmacyType, "pharmacies")

			resp, err := s.search(gctx, search.Request{
				Query:          strings.Join(terms, " "),
				SearchDepth:    search.DepthAdvanced,
				MaxResults:     maxResultsPerSearch,
				IncludeDomains: domainsFor(pharmacyType),
			})
			if err != nil {
				return err
			}
			comparisons[i] = summarize(pharmacyType, s.pricesFromResults(resp.Results, ""))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &CompareResult{MedicationName: q.MedicationName, Comparisons: comparisons}
	best := math.Inf(1)
	for _, c := range comparisons {
		if c.SampleCount > 0 && c.LowestPrice < best {
			best = c.LowestPrice
			out.BestPharmacyType = c.PharmacyType
		}
	}
	return out, nil
}

func domainsFor(pharmacyType string) []string {
	switch strings.ToLower(pharmacyType) {
	case "retail":
		return search.PharmacyDomains
	case "discount":
		return search.DiscountDomains
	default:
		return nil
	}
}

// summarize expects prices sorted ascending.
func summarize(pharmacyType string, prices []MedicationPrice) PriceComparison {
	c := PriceComparison{PharmacyType: pharmacyType, SampleCount: len(prices)}
	if len(prices) == 0 {
		return c
	}
	var total float64
	for _, p := range prices {
		total += p.Price
	}
	c.AveragePrice = math.Round(total/float64(len(prices))*100) / 100
	c.LowestPrice = prices[0].Price
	c.HighestPrice = prices[len(prices)-1].Price
	c.CheapestPharmacy = prices[0].PharmacyName
	return c
}
