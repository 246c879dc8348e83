// Package harness runs end-to-end generation scenarios against a scripted
// server and toolchain.
//
// A scenario describes the server's inventory, the masks of the run, which
// databases and units fail at which stage, and assertions on the result.
// The harness drives the real pipeline with fake collaborators, so mask
// selection, unit naming, manifest registration, build ordering and run
// history are all exercised as in production.
//
// # Scenario Format
//
//	name: sales_only
//	description: "Only sales databases are generated"
//	server:
//	  name: db01
//	  databases: [master, SalesEU, HR]
//	  tables:
//	    SalesEU: [dbo.Orders, dbo.systemLog]
//	masks: ["Sales*"]
//	options:
//	  prefix: Contoso
//	  generate_api: true
//	failures:
//	  generation: { HR: "login failed" }
//	  compile: { Contoso.DAL.SalesEU: "CS0103" }
//	assertions:
//	  - type: outcome
//	    unit: Contoso.DAL.SalesEU
//	    stage: compile
//	    success: false
//
// # Assertion Types
//
//   - outcome: a unit has an outcome for a stage, optionally with a given success
//   - outcome_count: the number of outcomes of a stage (all stages when empty)
//   - unit_order: the manifest lists exactly these units in this order
//   - selected: the plan selected exactly these databases
//   - status: the recorded run status
//   - aborted: the run aborted with an error containing the given text
//
// # Deterministic Testing
//
// Runs use a fixed run ID and a deterministic clock, with one worker unless
// the scenario asks for more. Golden snapshots leave out unit IDs and
// durations.
package harness
