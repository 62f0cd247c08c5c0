package cache

import "testing"

func TestKeyIsOrderIndependent(t *testing.T) {
	a := Key(NamespaceEmployeeList, map[string]any{
		"page":     2,
		"per_page": 25,
		"search":   "jane",
		"sort_by":  "salary",
	})
	b := Key(NamespaceEmployeeList, map[string]any{
		"sort_by":  "salary",
		"search":   "jane",
		"per_page": 25,
		"page":     2,
	})
	if a != b {
		t.Fatalf("equal params produced different keys: %q vs %q", a, b)
	}
}

func TestKeyDiffersPerParams(t *testing.T) {
	a := Key(NamespaceEmployeeList, map[string]any{"page": 1})
	b := Key(NamespaceEmployeeList, map[string]any{"page": 2})
	if a == b {
		t.Fatalf("different params produced identical key %q", a)
	}
}

func TestKeyWithoutParamsIsNamespace(t *testing.T) {
	if got := Key(NamespaceDepartmentStat, nil); got != NamespaceDepartmentStat {
		t.Fatalf("expected bare namespace, got %q", got)
	}
}

func TestKeyHandlesMixedValueTypes(t *testing.T) {
	key := Key(NamespaceEmployeeList, map[string]any{
		"min_salary":      1500.50,
		"department_id":   int64(7),
		"include_deleted": true,
		"search":          "",
	})
	same := Key(NamespaceEmployeeList, map[string]any{
		"search":          "",
		"include_deleted": true,
		"department_id":   int64(7),
		"min_salary":      1500.50,
	})
	if key != same {
		t.Fatalf("typed params not canonical: %q vs %q", key, same)
	}
}
