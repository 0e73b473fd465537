// Package exporter turns a finished run buffer into a NeXus-structured hierarchy and
// writes it into one container file.
//
// The hierarchy is laid out as
//
//	/                               root attributes (file_name, file_time, default=entry, ...)
//	/entry                          NXentry: identifiers, times, duration, exit status
//	/entry/instrument               NXinstrument
//	  bluesky_metadata              NXnote: one dataset per start document field
//	  bluesky_streams/<s>/<k>       NXdata: value, time, EPOCH (+ value_start, value_end for baseline)
//	  detectors, positioners        links to primary stream key groups, by signal_type
//	  slits, monochromator, source  links built by the Sections strategy
//	/entry/data                     NXdata: plot view linking the primary stream values
//	/entry/sample, /entry/contact   links built by the Sections strategy
//
// Every node outside bluesky_metadata and bluesky_streams is a link to a canonical node;
// data is never copied.
package exporter
