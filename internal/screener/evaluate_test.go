package screener

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"screener-systemv1/internal/model"
)

func vec(symbol string, price, volume float64, rsi *float64) *model.IndicatorVector {
	return &model.IndicatorVector{
		Symbol:        symbol,
		Price:         price,
		Volume:        volume,
		ChangePercent: 0,
		RSI14:         rsi,
		UpdatedAt:     time.Now().UTC(),
	}
}

func mustFilter(t *testing.T, raw string) *Filter {
	t.Helper()
	var f Filter
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("bad filter JSON: %v", err)
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("filter validation failed: %v", err)
	}
	return &f
}

func TestEvaluate_VolumeGreaterThan(t *testing.T) {
	snapshot := []*model.IndicatorVector{
		vec("AAA", 10, 50000, nil),
		vec("BBB", 20, 150000, nil),
		vec("CCC", 30, 1000000, nil),
	}
	f := mustFilter(t, `{"id":"vol","conditions":[{"field":"volume","operator":"gt","value":100000}]}`)

	r := Evaluate(f, snapshot, 1, 100)
	if r.Total != 2 {
		t.Fatalf("expected total=2, got %d", r.Total)
	}
	// No sortBy — match order equals snapshot order
	if r.Stocks[0].Symbol != "BBB" || r.Stocks[1].Symbol != "CCC" {
		t.Errorf("expected snapshot order [BBB CCC], got [%s %s]",
			r.Stocks[0].Symbol, r.Stocks[1].Symbol)
	}
}

func TestEvaluate_BetweenInclusiveBounds(t *testing.T) {
	snapshot := []*model.IndicatorVector{
		vec("LO", 1, 1, model.Float64Ptr(19.999)),
		vec("EXACTLO", 1, 1, model.Float64Ptr(20)),
		vec("MID", 1, 1, model.Float64Ptr(55)),
		vec("EXACTHI", 1, 1, model.Float64Ptr(80)),
		vec("HI", 1, 1, model.Float64Ptr(80.001)),
	}
	f := mustFilter(t, `{"id":"rsi","conditions":[{"field":"rsi14","operator":"between","value":[20,80]}]}`)

	r := Evaluate(f, snapshot, 1, 100)
	if r.Total != 3 {
		t.Fatalf("expected total=3, got %d", r.Total)
	}
	want := []string{"EXACTLO", "MID", "EXACTHI"}
	for i, w := range want {
		if r.Stocks[i].Symbol != w {
			t.Errorf("stock %d: expected %s, got %s", i, w, r.Stocks[i].Symbol)
		}
	}
}

func TestEvaluate_AbsentFieldNeverMatches(t *testing.T) {
	snapshot := []*model.IndicatorVector{
		vec("WARM", 1, 1, nil), // rsi14 still warming up
		vec("COLD", 1, 1, model.Float64Ptr(10)),
	}
	f := mustFilter(t, `{"id":"f","conditions":[{"field":"rsi14","operator":"lt","value":50}]}`)

	r := Evaluate(f, snapshot, 1, 100)
	if r.Total != 1 || r.Stocks[0].Symbol != "COLD" {
		t.Fatalf("expected only COLD to match, got total=%d", r.Total)
	}
}

func TestEvaluate_SortAndTiebreak(t *testing.T) {
	snapshot := []*model.IndicatorVector{
		vec("ZED", 100, 5, nil),
		vec("ABC", 100, 5, nil),
		vec("MMM", 50, 9, nil),
	}
	f := mustFilter(t, `{"id":"s","conditions":[],"sortBy":"price","sortOrder":"desc"}`)

	r := Evaluate(f, snapshot, 1, 100)
	want := []string{"ABC", "ZED", "MMM"} // price desc, ties lexical
	for i, w := range want {
		if r.Stocks[i].Symbol != w {
			t.Errorf("position %d: expected %s, got %s", i, w, r.Stocks[i].Symbol)
		}
	}
}

func TestEvaluate_ZeroConditionsRequiresSortField(t *testing.T) {
	snapshot := []*model.IndicatorVector{
		vec("HAS", 1, 1, model.Float64Ptr(42)),
		vec("LACKS", 1, 1, nil),
	}
	f := mustFilter(t, `{"id":"z","conditions":[],"sortBy":"rsi14"}`)

	r := Evaluate(f, snapshot, 1, 100)
	if r.Total != 1 || r.Stocks[0].Symbol != "HAS" {
		t.Fatalf("expected only HAS, got total=%d", r.Total)
	}
}

func TestEvaluate_Pagination(t *testing.T) {
	var snapshot []*model.IndicatorVector
	for _, s := range []string{"A", "B", "C", "D", "E"} {
		snapshot = append(snapshot, vec(s, 1, 1, nil))
	}
	f := mustFilter(t, `{"id":"p","conditions":[]}`)

	r := Evaluate(f, snapshot, 2, 2)
	if r.Total != 5 {
		t.Errorf("expected total=5 regardless of page, got %d", r.Total)
	}
	if len(r.Stocks) != 2 || r.Stocks[0].Symbol != "C" || r.Stocks[1].Symbol != "D" {
		t.Errorf("expected page 2 = [C D], got %v", r.Stocks)
	}

	// Page past the end is empty, not an error
	r = Evaluate(f, snapshot, 9, 2)
	if len(r.Stocks) != 0 || r.Total != 5 {
		t.Errorf("expected empty page with total=5, got %d stocks total=%d", len(r.Stocks), r.Total)
	}
}

func TestMembership_SeesPastPageBoundary(t *testing.T) {
	var snapshot []*model.IndicatorVector
	for _, s := range []string{"A", "B", "C", "D", "E"} {
		snapshot = append(snapshot, vec(s, 1, 1, nil))
	}
	f := mustFilter(t, `{"id":"p","conditions":[]}`)

	r := Evaluate(f, snapshot, 1, 2)
	m := Membership(r)
	if len(m) != 5 {
		t.Fatalf("expected membership over all 5 matches, got %d", len(m))
	}
	// The last match is beyond the page but must still be diffable.
	if _, ok := m["E"]; !ok {
		t.Error("match past the page boundary missing from membership")
	}
}

func TestEvaluate_Pure(t *testing.T) {
	snapshot := []*model.IndicatorVector{
		vec("B", 2, 10, model.Float64Ptr(70)),
		vec("A", 1, 20, model.Float64Ptr(30)),
	}
	f := mustFilter(t, `{"id":"pure","conditions":[{"field":"rsi14","operator":"gte","value":10}],"sortBy":"rsi14"}`)

	r1 := Evaluate(f, snapshot, 1, 100)
	r2 := Evaluate(f, snapshot, 1, 100)
	if r1.Total != r2.Total || len(r1.Stocks) != len(r2.Stocks) {
		t.Fatal("repeated evaluation differed")
	}
	for i := range r1.Stocks {
		if r1.Stocks[i].Symbol != r2.Stocks[i].Symbol {
			t.Errorf("position %d differs: %s vs %s", i, r1.Stocks[i].Symbol, r2.Stocks[i].Symbol)
		}
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := map[string]string{
		"unknown field":       `{"id":"x","conditions":[{"field":"pe_ratio","operator":"gt","value":1}]}`,
		"unknown operator":    `{"id":"x","conditions":[{"field":"price","operator":"like","value":1}]}`,
		"pair for gt":         `{"id":"x","conditions":[{"field":"price","operator":"gt","value":[1,2]}]}`,
		"scalar for between":  `{"id":"x","conditions":[{"field":"price","operator":"between","value":5}]}`,
		"triple for between":  `{"id":"x","conditions":[{"field":"price","operator":"between","value":[1,2,3]}]}`,
		"missing id":          `{"conditions":[]}`,
		"unknown sort field":  `{"id":"x","conditions":[],"sortBy":"garbage"}`,
		"unknown sort order":  `{"id":"x","conditions":[],"sortBy":"price","sortOrder":"sideways"}`,
	}
	for name, raw := range cases {
		var f Filter
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			t.Fatalf("%s: bad test JSON: %v", name, err)
		}
		err := f.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %v", name, err)
		}
	}
}

func TestRegistry_RegisterResolve(t *testing.T) {
	reg := NewRegistry()

	f := mustFilter(t, `{"id":"r1","conditions":[]}`)
	if err := reg.Register(f); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	got, err := reg.Resolve("r1")
	if err != nil || got.ID != "r1" {
		t.Fatalf("resolve failed: %v", err)
	}

	if _, err := reg.Resolve("missing"); !errors.Is(err, ErrFilterNotFound) {
		t.Errorf("expected ErrFilterNotFound, got %v", err)
	}

	bad := &Filter{ID: "r1", Conditions: []Condition{{Field: "nope", Operator: OpEqual, Value: json.RawMessage(`1`)}}}
	if err := reg.Register(bad); err == nil {
		t.Error("expected rejection of invalid filter")
	}
	// Prior definition survives a rejected replacement
	if _, err := reg.Resolve("r1"); err != nil {
		t.Errorf("prior definition lost: %v", err)
	}
}
