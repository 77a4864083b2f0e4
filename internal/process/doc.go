// Package process spawns the host binary with debug instrumentation and
// guarantees its termination on session teardown.
//
// The supervisor owns the process handle exclusively: it is replaced only
// by Start and cleared only by Stop. Host output is streamed line by line
// through a module logger and never accumulated in memory. Teardown always
// runs a platform forced-kill fallback because signal delivery to the
// host's embedding platform is not reliable.
package process
