// Package viz renders multi-network summaries for the terminal.
//
//   - [Describe]: styled network listing with per-domain colors
//   - [Summary]: outcome of a coupled run with iterations per level
//   - [PlotResiduals]: convergence chart of the level residuals
//
// Colors follow the current [Theme]; the "plain" theme renders without
// styling for logs and pipes.
package viz
