// Package tracking defines the contract between the placement core and the
// AR tracking collaborator (the SLAM/plane-detection engine).
//
// Responsibilities: the per-frame view of anchors and planes, anchor
// creation and release, and hit-testing a screen tap against detected
// planes. The core only ever reads Anchor and Plane state; the session
// that produced them is their sole owner and mutator.
//
// Dependency rule: tracking depends on spatial only. It must never import
// placement or frameloop.
package tracking
