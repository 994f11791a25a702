// Package ports defines the interfaces between the loopwise core and its
// collaborators: the persistence recorder, the raw completion transport, the
// browser, the workspace, and the project scanner. Adapters for these live
// under internal/adapters and internal/{browser,workspace,project}; the core
// only ever sees these interfaces.
package ports
