// Package saxs is the recorder of a small-angle X-ray scattering beamline: it records the
// SAXS plans only and describes the guard and sample slits of the instrument.
package saxs

import (
	"time"

	"github.com/arloliu/go-nxrec/docsim"
	"github.com/arloliu/go-nxrec/exporter"
	"github.com/arloliu/go-nxrec/nexus"
	"github.com/arloliu/go-nxrec/recorder"
)

// Plans are the plan names recorded by the beamline.
var Plans = []string{"saxs_exposure", "saxs_scan", "saxs_tune", "count"}

// SlitDevices are the slit devices read into the baseline stream.
var SlitDevices = []string{"guard_slit", "sample_slit"}

// slitFields are the NXslit fields and the baseline key suffix feeding them.
var slitFields = map[string]string{
	"x_gap":    "_h_size",
	"y_gap":    "_v_size",
	"x_center": "_h_center",
	"y_center": "_v_center",
}

// DeviceMap returns the beamline device map.
func DeviceMap() exporter.DeviceMap {
	baseline := exporter.DefaultBaselineStream

	devices := exporter.DefaultDeviceMap()
	devices.Monochromator = exporter.FieldMap{
		"energy":     exporter.StreamRef(baseline, "dcm_energy", exporter.ValueStartField),
		"wavelength": exporter.StreamRef(baseline, "dcm_wavelength", exporter.ValueStartField),
	}
	devices.Source.Name = "SAXS beamline source"
	devices.Sample["thickness"] = exporter.MetadataRef("sample_thickness")
	devices.Sample["transmission"] = exporter.StreamRef(baseline, "sample_transmission", exporter.ValueStartField)
	devices.Sample["x_translation"] = exporter.StreamRef(baseline, "sample_x", exporter.ValueStartField)
	devices.Sample["y_translation"] = exporter.StreamRef(baseline, "sample_y", exporter.ValueStartField)

	return devices
}

// Sections replaces the slit subsection of the default sections.
type Sections struct {
	*exporter.DefaultSections
	SlitDevices []string
}

var _ exporter.Sections = (*Sections)(nil)

// NewSections creates the beamline sections over devices.
func NewSections(devices exporter.DeviceMap) *Sections {
	return &Sections{
		DefaultSections: exporter.NewDefaultSections(devices),
		SlitDevices:     SlitDevices,
	}
}

// Slits writes one NXslit group per slit device with at least one baseline reading.
func (s *Sections) Slits(b *exporter.Builder, instrument *nexus.Group) error {
	baseline := b.BaselineStream()

	for _, device := range s.SlitDevices {
		fields := exporter.FieldMap{}
		for field, suffix := range slitFields {
			fields[field] = exporter.StreamRef(baseline, device+suffix, exporter.ValueStartField)
		}

		g, ok := b.LinkedGroup(instrument, device, "NXslit", fields)
		if !ok {
			continue
		}
		b.SetAttr(g, "device", device)
	}

	return nil
}

// NewRecorder creates the beamline recorder. opts are applied after the beamline defaults.
func NewRecorder(opts ...recorder.Option) (*recorder.Recorder, error) {
	base := []recorder.Option{
		recorder.WithAllowedPlans(Plans...),
		recorder.WithExportOptions(exporter.WithSections(NewSections(DeviceMap()))),
	}

	return recorder.New(append(base, opts...)...)
}

// SimulatedRun returns a synthetic SAXS scan of the sample stage with slit, monochromator
// and ring readings in the baseline.
func SimulatedRun(scanID int64, points int) docsim.Run {
	run := docsim.Default()
	run.PlanName = "saxs_scan"
	run.ScanID = scanID
	run.Points = points
	run.Interval = 500 * time.Millisecond
	run.Positioners = []docsim.Signal{
		{Name: "sample_stage_x", Source: "PV:SAXS:motor:sx.RBV", Units: "mm", Start: -2, Step: 0.25},
	}
	run.Detectors = []docsim.Signal{
		{Name: "saxs_det_stats_total", Source: "PV:SAXS:det:Stats1:Total_RBV", Units: "counts", Start: 1e5, Step: 250},
		{Name: "i0", Source: "PV:SAXS:scaler:I0", Units: "counts", Start: 5e4, Step: 0},
	}
	run.Baseline = []docsim.Signal{
		{Name: "dcm_energy", Source: "PV:DCM:energy", Units: "keV", Start: 12.4},
		{Name: "dcm_wavelength", Source: "PV:DCM:wavelength", Units: "angstrom", Start: 1.0},
		{Name: "ring_current", Source: "PV:SR:current", Units: "mA", Start: 200, Step: -0.1},
		{Name: "guard_slit_h_size", Source: "PV:GS:h_size", Units: "mm", Start: 0.5},
		{Name: "guard_slit_v_size", Source: "PV:GS:v_size", Units: "mm", Start: 0.4},
		{Name: "sample_slit_h_size", Source: "PV:SS:h_size", Units: "mm", Start: 0.3},
		{Name: "sample_transmission", Source: "PV:SAXS:transmission", Start: 0.82},
	}
	run.Metadata = map[string]any{
		"sample":           "silver behenate",
		"sample_thickness": 1.0,
		"user_name":        "beamline staff",
		"proposal_id":      "GUP-00000",
	}

	return run
}
