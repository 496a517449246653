package version

// Version and Commit are set with -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
)

func String() string {
	return Version + " (" + Commit + ")"
}
