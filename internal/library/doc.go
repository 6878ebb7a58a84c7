// Package library models the media items a project works with and exposes
// helpers for driving their lifecycle.
//
// An Item owns exactly one data source and collapses that source's
// acquisition status into the coarser media status the editing layers
// consume: pending, asyncprocessing, webavdecoding, ready, error, cancelled,
// missing. Every change flows through TransitionTo and its legality table;
// the single notification callback is the only side channel an item exposes.
// Decoded metadata is present exactly while an item is ready.
//
// Items are looked up by id through an Index so presentation-layer records
// can reference media without owning it.
package library
