package document

import "maps"

// ToMap converts a document back into its generic payload form, the inverse of FromMap.
func ToMap(doc Document) map[string]any {
	switch d := doc.(type) {
	case *Start:
		m := maps.Clone(d.Fields)
		if m == nil {
			m = map[string]any{}
		}
		m["uid"] = d.UID
		m["scan_id"] = d.ScanID
		m["time"] = d.Time
		m["plan_name"] = d.PlanName
		m["detectors"] = toAnySlice(d.Detectors)
		m["positioners"] = toAnySlice(d.Positioners)
		return m
	case *Descriptor:
		keys := make(map[string]any, len(d.DataKeys))
		for k, dk := range d.DataKeys {
			shape := make([]any, len(dk.Shape))
			for i, n := range dk.Shape {
				shape[i] = int64(n)
			}
			keys[k] = map[string]any{
				"source":           dk.Source,
				"dtype":            dk.DType,
				"shape":            shape,
				"units":            dk.Units,
				"lower_ctrl_limit": dk.LowerCtrlLimit,
				"upper_ctrl_limit": dk.UpperCtrlLimit,
				"precision":        int64(dk.Precision),
				"object_name":      dk.ObjectName,
			}
		}
		return map[string]any{
			"uid":       d.UID,
			"run_start": d.RunStart,
			"name":      d.Name,
			"time":      d.Time,
			"data_keys": keys,
		}
	case *Event:
		ts := make(map[string]any, len(d.Timestamps))
		for k, v := range d.Timestamps {
			ts[k] = v
		}
		return map[string]any{
			"uid":        d.UID,
			"descriptor": d.Descriptor,
			"seq_num":    d.SeqNum,
			"time":       d.Time,
			"data":       maps.Clone(d.Data),
			"timestamps": ts,
		}
	case *Resource:
		return map[string]any{
			"uid":             d.UID,
			"run_start":       d.RunStart,
			"spec":            d.Spec,
			"root":            d.Root,
			"resource_path":   d.ResourcePath,
			"resource_kwargs": maps.Clone(d.Params),
		}
	case *Datum:
		return map[string]any{
			"datum_id":     d.DatumID,
			"resource":     d.Resource,
			"datum_kwargs": maps.Clone(d.Kwargs),
		}
	case *Stop:
		n := make(map[string]any, len(d.NumEvents))
		for k, v := range d.NumEvents {
			n[k] = v
		}
		return map[string]any{
			"uid":         d.UID,
			"run_start":   d.RunStart,
			"time":        d.Time,
			"exit_status": d.ExitStatus,
			"reason":      d.Reason,
			"num_events":  n,
		}
	default:
		return map[string]any{}
	}
}

func toAnySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}

	return out
}
