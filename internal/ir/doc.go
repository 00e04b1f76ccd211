// Package ir provides the in-memory representation of a loaded network model.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Elements live in an arena addressed by a stable integer index.
//     Name lookup goes through Model.Lookup and is never needed once a
//     model has been resolved.
//   - Rules store target and operand indices, not names.
//   - A Model is read-only after load and may be shared by many
//     sequential runs.
//   - Element values are uint8 and always 0 or 1.
package ir
