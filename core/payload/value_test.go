package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNestedDocument(t *testing.T) {
	v, err := Decode([]byte(`{"billingReference": {"activityType": "Copy", "billableDuration": [{"duration": 2.5, "unit": "Hours"}]}}`))
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind())

	ref, ok := v.Get("billingReference")
	require.True(t, ok)

	durations, ok := ref.Get("billableDuration")
	require.True(t, ok)
	first, ok := durations.Index(0)
	require.True(t, ok)

	d, ok := first.Get("duration")
	require.True(t, ok)
	n, ok := d.AsNumber()
	require.True(t, ok)
	assert.Equal(t, 2.5, n)

	_, ok = durations.Index(1)
	assert.False(t, ok, "index past the end")
}

func TestDecodeEmptyInputIsNull(t *testing.T) {
	for _, in := range []string{"", "   ", "null"} {
		v, err := Decode([]byte(in))
		require.NoError(t, err)
		assert.True(t, v.IsNull(), "input %q", in)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"billingReference": `))
	assert.Error(t, err)
}

func TestIntegersDecodeAsNumbers(t *testing.T) {
	v, err := Decode([]byte(`{"duration": 4}`))
	require.NoError(t, err)
	d, _ := v.Get("duration")
	n, ok := d.AsNumber()
	require.True(t, ok)
	assert.Equal(t, 4.0, n)
}

func TestAccessorsReportWrongShape(t *testing.T) {
	s := String("Hours")

	_, ok := s.AsNumber()
	assert.False(t, ok)
	_, ok = s.AsMap()
	assert.False(t, ok)
	_, ok = s.AsList()
	assert.False(t, ok)
	_, ok = s.Get("unit")
	assert.False(t, ok)
	_, ok = Number(1).AsString()
	assert.False(t, ok)
	_, ok = Null().AsBool()
	assert.False(t, ok)
}

func TestValuesDoNotShareStorage(t *testing.T) {
	elements := map[string]Value{"unit": String("Hours")}
	m := Map(elements)
	elements["unit"] = String("DIUHours")

	inner, ok := m.AsMap()
	require.True(t, ok)
	inner["unit"] = Number(1)
	delete(inner, "unit")

	unit, _ := m.Get("unit")
	s, _ := unit.AsString()
	assert.Equal(t, "Hours", s)

	items := []Value{Number(1), Number(2)}
	l := List(items...)
	items[0] = Null()

	got, ok := l.AsList()
	require.True(t, ok)
	got[1] = Null()

	first, _ := l.Index(0)
	second, _ := l.Index(1)
	assert.True(t, first.Equal(Number(1)))
	assert.True(t, second.Equal(Number(2)))
}

func TestGetDistinguishesExplicitNull(t *testing.T) {
	m := Map(map[string]Value{"output": Null()})

	v, ok := m.Get("output")
	assert.True(t, ok)
	assert.True(t, v.IsNull())

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		empty bool
	}{
		{"zero value", Value{}, true},
		{"null", Null(), true},
		{"empty map", Map(nil), true},
		{"empty list", List(), true},
		{"empty string", String(""), true},
		{"zero number", Number(0), false},
		{"false", Bool(false), false},
		{"populated map", Map(map[string]Value{"a": Null()}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.value.IsEmpty())
		})
	}
}

func TestFromGoHandlesTypedContainers(t *testing.T) {
	v := FromGo(map[string]any{
		"list":    []map[string]any{{"unit": "Hours"}},
		"strings": map[string]string{"meterType": "AzureIR"},
		"count":   int64(3),
	})

	list, _ := v.Get("list")
	first, ok := list.Index(0)
	require.True(t, ok)
	unit, _ := first.Get("unit")
	s, _ := unit.AsString()
	assert.Equal(t, "Hours", s)

	strs, _ := v.Get("strings")
	meter, _ := strs.Get("meterType")
	s, _ = meter.AsString()
	assert.Equal(t, "AzureIR", s)

	count, _ := v.Get("count")
	n, _ := count.AsNumber()
	assert.Equal(t, 3.0, n)
}

func TestJSONRoundTripPreservesStructure(t *testing.T) {
	type envelope struct {
		Output Value `json:"output"`
	}

	var in envelope
	require.NoError(t, json.Unmarshal([]byte(`{"output": {"rowsCopied": 10, "errors": []}}`), &in))

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out envelope
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Output.Equal(out.Output))
}

func TestMissingFieldDecodesToNull(t *testing.T) {
	var in struct {
		Output Value `json:"output"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &in))
	assert.True(t, in.Output.IsNull())
}

func TestStringSortsMapKeys(t *testing.T) {
	v := Map(map[string]Value{"b": Number(2), "a": List(Bool(true), String("x"))})
	assert.Equal(t, `{"a": [true, "x"], "b": 2}`, v.String())
}
