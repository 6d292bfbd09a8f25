// Package placement owns the placed virtual objects and the per-frame
// reconciliation of their render poses.
//
// Responsibilities: the Record that ties a model instance to the anchor
// and plane it was placed on, the Reconciler that merges anchor X/Z and
// orientation with the plane's current height, and the bounded,
// insertion-ordered Registry with oldest-eviction, undo and reset.
// Key types: Record, Reconciler, Registry.
//
// Threading: everything here runs on the frame thread. There are no locks;
// callers on other goroutines must go through frameloop.
//
// Dependency rule: placement may depend on tracking, spatial, catalog and
// config, never on frameloop, journal or monitor.
package placement
