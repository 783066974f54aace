// Package config loads rxprice configuration.
//
// Loading order:
//  1. YAML file (optional)
//  2. Defaults for unset fields
//  3. RXPRICE_SECTION_FIELD environment overrides
//  4. Secret resolution (search.api_key, see package secret)
//  5. Validation
//
// A minimal file:
//
//	search:
//	  api_key: secretref:env:TAVILY_API_KEY
//	rate_limits:
//	  search_medication_price: {rate: 5, capacity: 10}
//	cache:
//	  default_ttl: 1h
//	  ttl_overrides:
//	    find_pharmacies: 6h
package config
