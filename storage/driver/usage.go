package driver

// Usage restricts which programs accept a driver.
//
// Drivers are linked at build time: a backend package registers itself
// in init() and a binary enables it by importing that package (often as
// a blank import).
type Usage uint8

const (
	// UsageCLI marks drivers available to the astrobase CLI.
	UsageCLI Usage = 1 << iota
	// UsageDaemon marks drivers available to long-running daemons.
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }

func (u Usage) String() string {
	switch u {
	case UsageCLI:
		return "cli"
	case UsageDaemon:
		return "daemon"
	case UsageCLI | UsageDaemon:
		return "cli,daemon"
	default:
		return "none"
	}
}
