// Package audit delivers auth outcome events to a pluggable sink off the request path.
//
// The engine decides which events exist. This package only buffers and delivers
// them, so it imports nothing from the rest of the module.
package audit
