package version

// Version is the runtime build version.
// Set at build time using ldflags:
// -ldflags "-X github.com/helix-quant/cta-trading/internal/version.Version=1.2.3"
// The default value indicates a development build.
var Version = "dev"

// GetVersion returns the runtime build version.
func GetVersion() string {
	return Version
}
