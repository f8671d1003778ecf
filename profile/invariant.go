//go:build !profilerstrict

package profile

// strictInvariants is enabled with -tags profilerstrict. Default builds clamp
// inconsistent data and log a warning instead of panicking.
const strictInvariants = false
