package cache

import (
	"context"
	"strings"
	"time"
)

// Cache keeps lookups that are expensive to repeat. Entries expire after the
// TTL the cache was built with unless Set names another.
type Cache interface {
	// Get returns the value and whether the key was present
	Get(ctx context.Context, key string) (interface{}, bool)
	// Set stores value; an expiration of 0 means the cache TTL
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	Flush(ctx context.Context)
}

const PrefixPaymentMethod = "payment_method:v1"

// PaymentMethodKey identifies a verified account and routing number pair of
// a tenant
func PaymentMethodKey(tenantID, accountNumber, routingNumber string) string {
	return GenerateKey(PrefixPaymentMethod, tenantID, accountNumber, routingNumber)
}

// GenerateKey joins the prefix and parts with colons
func GenerateKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), ":")
}
