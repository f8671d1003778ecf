//go:build profilerstrict

package profile

const strictInvariants = true
