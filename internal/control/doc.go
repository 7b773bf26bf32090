// Package control holds the coupling-controller contract and the ordered,
// leveled controller table of a multi-energy network.
//
// A coupling controller moves a value from one domain network to another
// (for example a gas offtake driving an electrical load) and judges its own
// local convergence:
//
//   - [Controller]: Run against the network registry, then IsConverged
//   - [Descriptor]: a table row with service state, order, level, initial-run
//     and recycle flags
//   - [Table]: the ordered rows, from which an execution [Plan] is derived
//
// # Ordering
//
// Levels are synchronization barriers and run in ascending [Level] order.
// Within a level, rows run by ascending Order; ties keep insertion order.
//
//	tbl := control.NewTable()
//	tbl.AddController(p2g, control.AtLevel(0), control.Order(1))
//	tbl.AddController(g2p, control.AtLevel(1))
//	plan := tbl.Plan()
package control
