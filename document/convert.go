package document

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// FromName converts a (name, payload) pair, as emitted by a run engine, into a Document.
func FromName(name string, payload map[string]any) (Document, error) {
	kind, ok := ParseKind(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}

	return FromMap(kind, payload)
}

// FromMap converts a generic document payload into the typed document of the given kind.
//
// Numeric values are normalized to int64 or float64. Missing or mistyped optional fields
// are left at their zero value; only an unknown kind is an error.
func FromMap(kind Kind, payload map[string]any) (Document, error) {
	m, _ := Normalize(payload).(map[string]any)
	if m == nil {
		m = map[string]any{}
	}

	switch kind {
	case StartKind:
		return startFromMap(m), nil
	case DescriptorKind:
		return descriptorFromMap(m), nil
	case EventKind:
		return eventFromMap(m), nil
	case ResourceKind:
		return &Resource{
			UID:          getString(m, "uid"),
			RunStart:     getString(m, "run_start"),
			Spec:         getString(m, "spec"),
			Root:         getString(m, "root"),
			ResourcePath: getString(m, "resource_path"),
			Params:       getMap(m, "resource_kwargs"),
		}, nil
	case DatumKind:
		return &Datum{
			DatumID:  getString(m, "datum_id"),
			Resource: getString(m, "resource"),
			Kwargs:   getMap(m, "datum_kwargs"),
		}, nil
	case StopKind:
		stop := &Stop{
			UID:        getString(m, "uid"),
			RunStart:   getString(m, "run_start"),
			Time:       getFloat(m, "time"),
			ExitStatus: getString(m, "exit_status"),
			Reason:     getString(m, "reason"),
			NumEvents:  map[string]int64{},
		}
		for stream, n := range getMap(m, "num_events") {
			if v, ok := toInt(n); ok {
				stop.NumEvents[stream] = v
			}
		}
		return stop, nil
	case UnknownKind:
	}

	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
}

func startFromMap(m map[string]any) *Start {
	start := &Start{
		UID:       getString(m, "uid"),
		Time:      getFloat(m, "time"),
		PlanName:  getString(m, "plan_name"),
		Detectors: getStrings(m, "detectors"),
		Fields:    make(map[string]any, len(m)),
	}
	if v, ok := toInt(m["scan_id"]); ok {
		start.ScanID = v
	}

	start.Positioners = getStrings(m, "positioners")
	if len(start.Positioners) == 0 {
		start.Positioners = getStrings(m, "motors")
	}

	for k, v := range m {
		if k == "uid" || k == "scan_id" {
			continue
		}
		start.Fields[k] = v
	}

	return start
}

func descriptorFromMap(m map[string]any) *Descriptor {
	desc := &Descriptor{
		UID:      getString(m, "uid"),
		RunStart: getString(m, "run_start"),
		Name:     getString(m, "name"),
		Time:     getFloat(m, "time"),
		DataKeys: map[string]DataKey{},
	}
	for key, raw := range getMap(m, "data_keys") {
		dk, _ := raw.(map[string]any)
		desc.DataKeys[key] = DataKey{
			Source:         getString(dk, "source"),
			DType:          getString(dk, "dtype"),
			Shape:          getInts(dk, "shape"),
			Units:          getString(dk, "units"),
			LowerCtrlLimit: getFloat(dk, "lower_ctrl_limit"),
			UpperCtrlLimit: getFloat(dk, "upper_ctrl_limit"),
			Precision:      int(getInt(dk, "precision")),
			ObjectName:     getString(dk, "object_name"),
		}
	}

	return desc
}

func eventFromMap(m map[string]any) *Event {
	ev := &Event{
		UID:        getString(m, "uid"),
		Descriptor: getString(m, "descriptor"),
		SeqNum:     getInt(m, "seq_num"),
		Time:       getFloat(m, "time"),
		Data:       getMap(m, "data"),
		Timestamps: map[string]float64{},
	}
	for k, v := range getMap(m, "timestamps") {
		if ts, ok := toFloat(v); ok {
			ev.Timestamps[k] = ts
		}
	}

	return ev
}

// Normalize rewrites decoded values into the small set of types used by the recorder:
// string, bool, int64, float64, []any and map[string]any. Maps with non-string keys are
// converted using fmt formatting of the key.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil, string, bool, int64, float64:
		return val
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return normalizeUint(uint64(val))
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return normalizeUint(val)
	case float32:
		return float64(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case []float64:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = Normalize(item)
		}
		return out
	default:
		return val
	}
}

func normalizeUint(v uint64) any {
	if v > math.MaxInt64 {
		return float64(v)
	}

	return int64(v)
}

func getString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func getFloat(m map[string]any, key string) float64 {
	f, _ := toFloat(m[key])
	return f
}

func getInt(m map[string]any, key string) int64 {
	i, _ := toInt(m[key])
	return i
}

func getMap(m map[string]any, key string) map[string]any {
	sub, _ := m[key].(map[string]any)
	if sub == nil {
		return map[string]any{}
	}

	return sub
}

func getStrings(m map[string]any, key string) []string {
	list, _ := m[key].([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

func getInts(m map[string]any, key string) []int {
	list, _ := m[key].([]any)
	out := make([]int, 0, len(list))
	for _, item := range list {
		if v, ok := toInt(item); ok {
			out = append(out, int(v))
		}
	}

	return out
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

func toInt(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case float64:
		if val == math.Trunc(val) {
			return int64(val), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// SortedKeys returns the data keys of a descriptor in lexical order.
func (d *Descriptor) SortedKeys() []string {
	keys := make([]string, 0, len(d.DataKeys))
	for k := range d.DataKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
