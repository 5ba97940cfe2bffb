// Package testutil holds testify mocks and filesystem fixtures shared by
// package tests.
package testutil
