// Package mute owns the radio-at-head mute reconciliation loop.
//
// Ownership boundary:
// - policy and confirmation state
//
// - the unmute debounce timer and the convergence (sync) timer
//
// - actuator command issue and re-issue
//
// Control loop:
// - policy true -> mute now, verify after one delay window
//
// - policy false -> unmute once the policy has held false for one window
//
// - sync expiry -> re-assert the commanded state until confirmation agrees
//
// Transition rules live in Step, a pure function over State. Reconciler
// applies the resulting effects under a single mutex against an injected
// clock. The package does not own transports; signals arrive through
// PolicyChanged and ConfirmedMutedChanged.
package mute
