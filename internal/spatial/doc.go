// Package spatial holds the rigid-transform types shared between the
// tracking contracts and the placement core.
//
// All poses are expressed in the AR session's world frame: metres,
// right-handed, +Y up. Rotations are unit quaternions stored X, Y, Z, W
// with W the scalar part. Quaternion arithmetic is delegated to
// gonum's num/quat and the 4×4 model matrix to gonum's mat.
package spatial
