package utils

import "fmt"

// Build information, set with -ldflags "-X devhost-keeper/internal/utils.SoftwareVer=..."
var (
	SoftwareVer   = "dev"
	BuildTime     = ""
	BuildTag      = ""
	BuildCommitId = ""
)

// VersionString is the one-line form reported by /healthz and --version.
func VersionString() string {
	if BuildCommitId == "" {
		return SoftwareVer
	}
	short := BuildCommitId
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s (%s)", SoftwareVer, short)
}
