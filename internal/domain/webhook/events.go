// Package webhook maps billing provider events to the cache keys they make stale.
package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// EventCategory is a closed set of billing event families.
type EventCategory string

const (
	CategoryProduct      EventCategory = "product"
	CategoryPrice        EventCategory = "price"
	CategorySubscription EventCategory = "subscription"
	CategoryCustomer     EventCategory = "customer"
	CategoryInvoice      EventCategory = "invoice"
)

// DefaultObjectIDPath locates the affected object in a provider payload.
const DefaultObjectIDPath = "data.object.id"

// IDPlaceholder is replaced with the affected object id in invalidation patterns.
const IDPlaceholder = "{id}"

// AllEventCategories returns every category. InvalidationTable must cover each one.
func AllEventCategories() []EventCategory {
	return []EventCategory{
		CategoryProduct,
		CategoryPrice,
		CategorySubscription,
		CategoryCustomer,
		CategoryInvoice,
	}
}

// Rule describes how one category invalidates the billing cache.
type Rule struct {
	ObjectIDPath string
	Patterns     []string
}

// InvalidationTable maps each category to the billing cache key patterns it invalidates.
var InvalidationTable = map[EventCategory]Rule{
	CategoryProduct: {
		ObjectIDPath: DefaultObjectIDPath,
		Patterns:     []string{"product:{id}", "products:*", "prices:product:{id}:*"},
	},
	CategoryPrice: {
		ObjectIDPath: DefaultObjectIDPath,
		Patterns:     []string{"price:{id}", "prices:*"},
	},
	CategorySubscription: {
		ObjectIDPath: DefaultObjectIDPath,
		Patterns:     []string{"subscription:{id}", "subscriptions:*"},
	},
	CategoryCustomer: {
		ObjectIDPath: DefaultObjectIDPath,
		Patterns:     []string{"customer:{id}", "customer:{id}:*"},
	},
	CategoryInvoice: {
		ObjectIDPath: DefaultObjectIDPath,
		Patterns:     []string{"invoice:{id}", "invoices:*"},
	},
}

// prefixes is ordered most specific first; customer.subscription.* is a subscription event.
var prefixes = []struct {
	prefix   string
	category EventCategory
}{
	{"customer.subscription.", CategorySubscription},
	{"product.", CategoryProduct},
	{"price.", CategoryPrice},
	{"plan.", CategoryPrice},
	{"invoice.", CategoryInvoice},
	{"customer.", CategoryCustomer},
}

// Classify maps a dotted provider event type to its category.
func Classify(eventType string) (EventCategory, bool) {
	t := strings.ToLower(strings.TrimSpace(eventType))
	for _, p := range prefixes {
		if strings.HasPrefix(t, p.prefix) {
			return p.category, true
		}
	}
	return "", false
}

// Patterns expands the rule for a category with the given object id.
// Patterns that need an id are skipped when objectID is empty.
func Patterns(category EventCategory, objectID string) ([]string, error) {
	rule, ok := InvalidationTable[category]
	if !ok {
		return nil, fmt.Errorf("no invalidation rule for category %q", category)
	}
	out := make([]string, 0, len(rule.Patterns))
	for _, p := range rule.Patterns {
		if strings.Contains(p, IDPlaceholder) {
			if objectID == "" {
				continue
			}
			p = strings.ReplaceAll(p, IDPlaceholder, objectID)
		}
		out = append(out, p)
	}
	return out, nil
}

// ExtractObjectID evaluates the category's JMESPath against the raw payload.
// A missing or non-string value yields an empty id.
func ExtractObjectID(category EventCategory, payload json.RawMessage) (string, error) {
	path := DefaultObjectIDPath
	if rule, ok := InvalidationTable[category]; ok && rule.ObjectIDPath != "" {
		path = rule.ObjectIDPath
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	v, err := jmespath.Search(path, doc)
	if err != nil {
		return "", fmt.Errorf("evaluate %q: %w", path, err)
	}
	s, _ := v.(string)
	return s, nil
}

// ValidateTable compiles every object id expression.
func ValidateTable() error {
	for cat, rule := range InvalidationTable {
		if _, err := jmespath.Compile(rule.ObjectIDPath); err != nil {
			return fmt.Errorf("category %s: %w", cat, err)
		}
	}
	return nil
}
