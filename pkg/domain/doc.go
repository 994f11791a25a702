// Package domain contains the core types shared across the loopwise engine:
// steps and branch rules, parsed conditions, variable bindings, sessions,
// quality scores, and the error taxonomy.
//
// Types here carry no behavior beyond what is intrinsic to the data (condition
// evaluation, variable substitution, status transitions). Everything that
// talks to the outside world lives behind the interfaces in pkg/ports.
package domain
