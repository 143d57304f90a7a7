package info

// Version is overridden at link time with -ldflags "-X".
var Version = "0.1.0-dev"
