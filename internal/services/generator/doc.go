// Package generator calls the external prompt-optimization model. The
// pipeline treats the model as an opaque collaborator: a brief plus
// accumulated context goes in, an optimized prompt with metadata comes
// out. Transient transport failures are retried a bounded number of
// times inside the client; a failure that survives the retries is fatal
// for the run.
package generator
