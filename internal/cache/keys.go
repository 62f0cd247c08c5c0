package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Cache namespaces. Every cached entry belongs to exactly one namespace and
// is tracked in that namespace's registry set, so invalidating a namespace
// never needs pattern scans against the store.
const (
	NamespaceEmployeeList   = "employees:list"
	NamespaceEmployeeEntity = "employees:entity"
	NamespaceEmployeeRecent = "employees:recent"
	NamespaceEmployeeCount  = "employees:count"
	NamespaceDepartmentList = "departments:list"
	NamespaceDepartmentStat = "departments:stats"
	NamespaceResponse       = "http:response"
)

const registryPrefix = "cache:registry:"

// RegistryKey is the set key holding every tracked cache key of a namespace.
func RegistryKey(namespace string) string {
	return registryPrefix + namespace
}

// Key builds a deterministic cache key from a namespace and a parameter map.
// Parameters are serialized in sorted key order so that two logically equal
// maps always produce the same key regardless of insertion order, then
// digested so keys stay short and store-safe whatever the values contain.
func Key(namespace string, params map[string]any) string {
	if len(params) == 0 {
		return namespace
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(formatParam(params[name]))
	}

	digest := xxhash.Sum64String(b.String())
	return namespace + ":" + strconv.FormatUint(digest, 16)
}

// EntityKey builds the cache key of a single entity by its identifier.
func EntityKey(namespace, id string) string {
	return namespace + ":" + id
}

func formatParam(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
