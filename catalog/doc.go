// Package catalog declares the closed set of repository operations the
// assistant understands, together with their parameter contracts.
//
// The operations are described in the embedded operations.yaml document
// and parsed once by New into an immutable Registry. Each descriptor is
// bound to an Action enum value so that handler tables keyed by Action
// can be checked for exhaustiveness at construction time. Descriptors
// validate and default raw parameter maps through Bind, and the Registry
// renders itself as model instructions (Instructions) and as JSON Schema
// documents for protocol discovery (InputSchema).
package catalog
