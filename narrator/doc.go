// Package narrator turns an operation envelope and the request that
// produced it into a short reply for a person.
package narrator
