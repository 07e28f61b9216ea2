// Package harness runs pacing scenarios against the scheduler.
//
// A scenario is a YAML file describing a scheduler configuration, the cost
// of each hook in simulated seconds, and a list of steps:
//
//	name: catch-up
//	description: three ticks due run three updates then one draw
//	updates_per_second: 100
//	steps:
//	  - advance: 0.031
//	  - pending: {expect: 3}
//	  - run_once: true
//	assertions:
//	  - type: call_count
//	    hook: update
//	    exact: 3
//	  - type: updated
//	    expect: 3
//
// Scenarios run on a testutil.ManualClock, so sleeps and hook costs move
// simulated time instead of wall time and every run is reproducible. Each
// hook call, sleep, pending read and bail is recorded in a trace that can
// be compared against golden files with RunWithGolden.
package harness
