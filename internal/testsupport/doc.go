// Package testsupport provides helpers for constructing test configs,
// opening throwaway databases, and stubbing the external encoder binary.
package testsupport
