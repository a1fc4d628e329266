// Package core defines the shared leaf types of the Skye agent SDK:
// chat messages, the per-session memory profile and its merge rules,
// session checkpoint state, tool contracts, and the stream event model.
//
// core has no dependencies on the other SDK packages; everything else
// (engine, workflow, server) builds on top of it.
package core
