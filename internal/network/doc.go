// Package network defines the domain networks that take part in a coupled
// multi-energy simulation.
//
// Every network carries an explicit [Domain] tag and may expose one of two
// capability sets that the coupling layer probes for:
//
//   - [PowerGrid]: bus and line tables of an electrical network
//   - [Hydraulic]: junction and pipe tables of a gas or heat network
//
// [PowerNet] and [HydraulicNet] are the reference implementations used by the
// bundled solvers. [Collection] groups several networks under one registry
// entry.
//
// # Ownership
//
// Networks are plain mutable values. Solvers write result tables in place;
// [Network.Clone] returns a copy that shares no tables with the original.
package network
