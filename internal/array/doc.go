// Package array drives the kernel-array backend: the multi-step configure
// pipeline, array lifecycle passthroughs, and the combined status report.
//
// Configure is one logical operation decomposed into ordered steps, each
// mapped onto an equal slice of the overall progress percentage. A failing
// step stops the pipeline where it stands; completed steps are not rolled
// back, the operator intervenes.
package array
