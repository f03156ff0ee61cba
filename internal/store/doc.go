// Package store persists estimation runs in SQLite: run metadata keyed by
// UUID, the spectrum and breakdown of every completed pass, and the final
// summary counters. Storing each pass as it lands is what makes the pipeline
// resumable: a run killed after the birth pass restarts at the merger pass
// from the stored birth spectrum.
//
// The package also exports spectra and breakdowns as CSV for plotting.
package store
