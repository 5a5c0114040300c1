// Package harness runs conformance scenarios against atom schemas.
//
// A scenario is a YAML file naming a schema, an optional module filter and a
// list of assertions over the collation result:
//
//	name: ble_scan_state
//	description: chained state atom keeps its exclusive field
//	schema: atoms.cue
//	assertions:
//	  - type: error_count
//	    count: 0
//	  - type: annotation
//	    atom: ble_scan_state_changed
//	    field: 2
//	    annotation: exclusive_state
//	    value: true
//	  - type: signature
//	    kind: pushed
//	    types: [attribution_chain, int]
//	    members: [ble_scan_state_changed]
//
// The schema path is resolved relative to the scenario file. Run collates
// the schema and evaluates every assertion; RunWithGolden additionally
// compares the canonical catalog against testdata/golden/<name>.golden.
package harness
