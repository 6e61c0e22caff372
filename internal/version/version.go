package version

// Version is the application version, overridable at build time with
// -ldflags "-X ytharvest/internal/version.Version=...".
var Version = "0.3.0"
