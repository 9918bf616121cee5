// Package hostingtest provides an in-memory hosting.Provider that
// records every call it receives. It is meant for tests of the layers
// above the hosting backends.
package hostingtest
