// Package frameloop drives one render-loop frame at a time: pull the latest
// tracking snapshot, place at most one queued tap, reconcile render poses
// and hand the draw list to the renderer.
//
// Only the tap queue, the command queue and the published snapshot are
// touched from other goroutines. Everything that mutates the placement
// registry runs inside Step on the frame thread.
package frameloop
