// Package viz draws renders and statistics in the terminal.
//
//   - [Preview]: truecolor half-block image, two pixels per cell
//   - [Canvas] and [Outline]: monochrome Braille view of set membership
//   - [HistogramPlot]: escape-count distribution as an ASCII chart
//   - Styles and themes shared by the CLI and the explorer
//
// Every function returns a string; nothing here writes to the terminal.
package viz
