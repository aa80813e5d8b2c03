// Package compile turns a wizard configuration snapshot, the artifact
// catalog, and the discovered synthesis sessions into an ordered job plan.
// Compilation is a pure function of its inputs: it reads no disk state and
// produces the same plan for the same inputs, workflow identity aside.
package compile
